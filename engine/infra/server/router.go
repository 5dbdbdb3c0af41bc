package server

import (
	"context"
	"net/http"

	agentrouter "github.com/DavinciDreams/agents-of-empires-sub001/engine/agent/router"
	execrouter "github.com/DavinciDreams/agents-of-empires-sub001/engine/execution/router"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/appstate"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/middleware/ratelimit"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/middleware/size"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/routes"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/logger"
	"github.com/gin-gonic/gin"
)

func convertRateLimitConfig(cfg *config.Config) *ratelimit.Config {
	rl := ratelimit.DefaultConfig()
	rl.GlobalRate = ratelimit.RateConfig{
		Limit:  cfg.Server.RateLimit.Limit,
		Period: cfg.Server.RateLimit.Period,
	}
	rl.RouteRates = map[string]ratelimit.RateConfig{}
	rl.Prefix = cfg.Server.RateLimit.Prefix
	rl.ExcludedPaths = []string{
		"/health",
		routes.HealthVersioned(),
		cfg.Monitoring.Path,
	}
	return rl
}

func (s *Server) buildRouter(ctx context.Context, cfg *config.Config) error {
	log := logger.FromContext(ctx)
	r := gin.New()
	r.Use(gin.Recovery())
	if s.deps.Monitoring != nil && s.deps.Monitoring.IsInitialized() {
		r.Use(s.deps.Monitoring.GinMiddleware())
	}
	r.Use(LoggerMiddleware(log))
	if cfg.Server.RateLimit.Limit > 0 {
		meter := s.deps.meter()
		manager, err := ratelimit.NewManager(ctx, convertRateLimitConfig(cfg), s.deps.Redis, meter)
		if err != nil {
			return err
		}
		r.Use(manager.Middleware())
		log.Info("Rate limiter initialized",
			"store", manager.Store(),
			"limit", cfg.Server.RateLimit.Limit,
			"period", cfg.Server.RateLimit.Period)
	}
	r.Use(appstate.StateMiddleware(s.deps.State))
	r.NoRoute(func(c *gin.Context) {
		router.RespondWithError(c, http.StatusNotFound, router.ErrNotFoundCode, "route not found", nil)
	})

	health := CreateHealthHandler(s.deps.State)
	r.GET("/health", health)
	if s.deps.Monitoring != nil && s.deps.Monitoring.IsInitialized() {
		r.GET(s.deps.Monitoring.Path(), gin.WrapH(s.deps.Monitoring.ExporterHandler()))
	}

	api := r.Group(routes.Base())
	api.Use(size.BodySizeLimiter(cfg.Server.MaxBodyBytes))
	api.GET("/health", health)
	agentrouter.Register(api)
	execrouter.Register(api)
	s.router = r
	return nil
}
