// Package di contains dependency injection tokens for the strategy context.
package di

import (
	"github.com/oxarb/flasharb/business/strategy/app"
	"github.com/oxarb/flasharb/business/strategy/infra/controlapi"
	"github.com/oxarb/flasharb/business/strategy/infra/wsfeed"
	"github.com/oxarb/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Registry    = di.NewToken[*app.Registry]("strategy.Registry")
	ModeManager = di.NewToken[*app.ModeManager]("strategy.ModeManager")
)

// Private dependency tokens - internal to strategy module
var (
	EventSink  = di.NewToken[app.EventSink]("strategy:eventSink")
	EventHub   = di.NewToken[*wsfeed.Hub]("strategy:eventHub")
	ControlAPI = di.NewToken[*controlapi.Server]("strategy:controlAPI")
)

// Helper functions for type-safe access
func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetModeManager(c di.ServiceRegistry) *app.ModeManager {
	return di.GetToken(c, ModeManager)
}

func GetEventSink(c di.ServiceRegistry) app.EventSink {
	return di.GetToken(c, EventSink)
}

func GetEventHub(c di.ServiceRegistry) *wsfeed.Hub {
	return di.GetToken(c, EventHub)
}

func GetControlAPI(c di.ServiceRegistry) *controlapi.Server {
	return di.GetToken(c, ControlAPI)
}
