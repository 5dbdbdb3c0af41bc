package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoutes(t *testing.T) {
	t.Run("Should build paths under the versioned base", func(t *testing.T) {
		assert.Equal(t, "/api/v0", Base())
		assert.Equal(t, "/api/v0/agents", Agents())
		assert.Equal(t, "/api/v0/executions", Executions())
		assert.Equal(t, "/api/v0/cache", Cache())
		assert.Equal(t, "/api/v0/health", HealthVersioned())
		assert.Equal(t, "/api/v0/agents/:agent_id/executions", AgentExecutions())
	})
}
