// Package domain contains the core domain types for the blockchain context.
package domain

import "time"

// Head is the most recently observed chain head. Time is when the head
// was observed locally, not the block timestamp; staleness checks use it
// to decide whether the cached head is still trustworthy.
type Head struct {
	Number uint64
	Time   time.Time
}

// ConnectionState represents the state of the chain head feed.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)
