// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/oxarb/flasharb/business/pricing/app"
	"github.com/oxarb/flasharb/business/pricing/domain"
	"github.com/oxarb/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Oracle          = di.NewToken[*app.Oracle]("pricing.Oracle")
	DepthMonitor    = di.NewToken[*app.DepthMonitor]("pricing.DepthMonitor")
	ReferencePricer = di.NewToken[app.ReferencePricer]("pricing.ReferencePricer")
)

// Private dependency tokens - internal to pricing module
var (
	VenueReaders = di.NewToken[map[domain.VenueKind]app.VenueReader]("pricing:venueReaders")
)

// Helper functions for type-safe access
func GetOracle(c di.ServiceRegistry) *app.Oracle {
	return di.GetToken(c, Oracle)
}

func GetDepthMonitor(c di.ServiceRegistry) *app.DepthMonitor {
	return di.GetToken(c, DepthMonitor)
}

func GetReferencePricer(c di.ServiceRegistry) app.ReferencePricer {
	return di.GetToken(c, ReferencePricer)
}

func GetVenueReaders(c di.ServiceRegistry) map[domain.VenueKind]app.VenueReader {
	return di.GetToken(c, VenueReaders)
}
