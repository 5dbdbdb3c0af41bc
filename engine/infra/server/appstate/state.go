// Package appstate carries the service dependencies to HTTP handlers
// through the request context.
package appstate

import (
	"context"
	"fmt"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/checkpoint"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/runner"
	"github.com/gin-gonic/gin"
)

type contextKey string

const stateKey contextKey = "app_state"

// LogReader lists persisted audit entries of one execution.
type LogReader interface {
	ListLogs(ctx context.Context, executionID string, limit int) ([]execution.LogEntry, error)
}

// HealthChecker is a dependency probed by the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type State struct {
	Registry    *agent.Registry
	Tracker     *execution.Tracker
	Runner      *runner.Runner
	Checkpoints checkpoint.Store
	// Logs is nil when the audit log is disabled.
	Logs LogReader
	// Checks are keyed by component name.
	Checks map[string]HealthChecker
}

func NewState(
	registry *agent.Registry,
	tracker *execution.Tracker,
	run *runner.Runner,
	checkpoints checkpoint.Store,
) (*State, error) {
	if registry == nil || tracker == nil || run == nil {
		return nil, fmt.Errorf("registry, tracker and runner are required")
	}
	return &State{
		Registry:    registry,
		Tracker:     tracker,
		Runner:      run,
		Checkpoints: checkpoints,
		Checks:      make(map[string]HealthChecker),
	}, nil
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok || state == nil {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

// StateMiddleware attaches state to every request context.
func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithState(c.Request.Context(), state))
		c.Next()
	}
}
