// Package domain contains the core domain types for the strategy context.
package domain

import "time"

// Severity classifies an event for display and filtering.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarn    Severity = "warn"
	SeverityError   Severity = "error"
)

// Priority orders events when a sink has to drop some. Higher is more
// important; auto-halt and execution outcomes ride above routine scans.
type Priority int

const (
	PriorityLow    Priority = 0
	PriorityNormal Priority = 1
	PriorityHigh   Priority = 2
)

// Event is one strategy-lifecycle occurrence pushed to the event sinks.
type Event struct {
	Time       time.Time `json:"time"`
	StrategyID string    `json:"strategy_id"`
	Severity   Severity  `json:"severity"`
	Priority   Priority  `json:"priority"`
	Text       string    `json:"text"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(strategyID string, severity Severity, priority Priority, text string) Event {
	return Event{
		Time:       time.Now(),
		StrategyID: strategyID,
		Severity:   severity,
		Priority:   priority,
		Text:       text,
	}
}
