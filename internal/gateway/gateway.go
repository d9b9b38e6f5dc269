// Package gateway connects external messaging surfaces to the
// orchestrator. Each gateway turns an inbound message into an
// objective run and ships the final report back.
package gateway

import (
	"context"

	"overseer/internal/agent"
)

// Runner starts one objective run to completion.
type Runner interface {
	Run(ctx context.Context, objective string) (*agent.RunState, error)
}

// Messenger is one inbound message surface.
type Messenger interface {
	Name() string
	// Start blocks until ctx is done or the transport fails.
	Start(ctx context.Context) error
}
