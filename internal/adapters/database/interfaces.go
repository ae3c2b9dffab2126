package database

import (
	"github.com/kevin07696/gateway-reconciler/pkg/observability"
)

// The adapter backs the readiness check
var _ observability.Pinger = (*PostgreSQLAdapter)(nil)
