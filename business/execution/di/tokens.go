// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/oxarb/flasharb/business/execution/app"
	"github.com/oxarb/flasharb/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ExecutionClient = di.NewToken[*app.Client]("execution.Client")
)

// Private dependency tokens - internal to execution module
var (
	ContractGateway = di.NewToken[app.ContractGateway]("execution:contractGateway")
)

// Helper functions for type-safe access
func GetExecutionClient(c di.ServiceRegistry) *app.Client {
	return di.GetToken(c, ExecutionClient)
}

func GetContractGateway(c di.ServiceRegistry) app.ContractGateway {
	return di.GetToken(c, ContractGateway)
}
