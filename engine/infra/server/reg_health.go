package server

import (
	"context"
	"net/http"
	"sort"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/appstate"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/version"
	"github.com/gin-gonic/gin"
)

type componentHealth struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

// Health endpoint
//
//	@Summary      Get server health
//	@Description  Returns service health, version, execution counts and component status
//	@Tags         health
//	@Produce      json
//	@Success      200 {object} router.Response{data=map[string]any} "Service is healthy"
//	@Failure      503 {object} router.Response{data=map[string]any} "A component is unhealthy"
//	@Router       /health [get]
func CreateHealthHandler(state *appstate.State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		components, healthy := checkComponents(ctx, state)
		status := statusHealthy
		code := http.StatusOK
		if !healthy {
			status = statusDegraded
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, router.Response{
			Status:  code,
			Message: status,
			Data: gin.H{
				"status":     status,
				"version":    version.Get(),
				"executions": state.Tracker.Stats(),
				"cache":      gin.H{"size": state.Registry.CacheStats().Size},
				"components": components,
			},
		})
	}
}

func checkComponents(ctx context.Context, state *appstate.State) (map[string]componentHealth, bool) {
	out := make(map[string]componentHealth, len(state.Checks))
	names := make([]string, 0, len(state.Checks))
	for name := range state.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	healthy := true
	for _, name := range names {
		checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
		err := state.Checks[name].HealthCheck(checkCtx)
		cancel()
		if err != nil {
			logger.FromContext(ctx).Warn("Health check failed", "component", name, "error", err)
			out[name] = componentHealth{Healthy: false, Error: err.Error()}
			healthy = false
			continue
		}
		out[name] = componentHealth{Healthy: true}
	}
	return out, healthy
}
