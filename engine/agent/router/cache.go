package agentrouter

import (
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/gin-gonic/gin"
)

// getCacheStats handles GET /cache.
//
//	@Summary		Agent cache statistics
//	@Description	Size, bounds and per-entry usage of the agent instance cache, least recently used first.
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	router.Response{data=agent.CacheStats}	"Cache statistics"
//	@Router			/cache [get]
func getCacheStats(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	router.RespondOK(c, "cache stats retrieved", state.Registry.CacheStats())
}

// updateCacheConfig handles PUT /cache/config.
//
//	@Summary		Update cache configuration
//	@Description	Shrinking max_size evicts least recently used entries immediately.
//	@Tags			cache
//	@Accept			json
//	@Produce		json
//	@Param			config	body		agentrouter.CacheConfigRequest			true	"New bounds"
//	@Success		200		{object}	router.Response{data=agent.CacheStats}	"Cache updated"
//	@Failure		400		{object}	router.Response{error=router.ErrorInfo}	"Invalid configuration"
//	@Router			/cache/config [put]
func updateCacheConfig(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	req := CacheConfigRequest{}
	if err := c.ShouldBindJSON(&req); err != nil {
		router.RespondBadRequest(c, "invalid request body", err)
		return
	}
	cfg, err := req.toConfig()
	if err != nil {
		router.RespondBadRequest(c, "invalid cache configuration", err)
		return
	}
	if err := state.Registry.SetCacheConfig(c.Request.Context(), cfg); err != nil {
		router.RespondWithDomainError(c, "failed to update cache configuration", err)
		return
	}
	router.RespondOK(c, "cache configuration updated", state.Registry.CacheStats())
}

// clearCache handles DELETE /cache.
//
//	@Summary		Clear agent cache
//	@Tags			cache
//	@Produce		json
//	@Success		200	{object}	router.Response{data=object{cleared=int}}	"Cache cleared"
//	@Router			/cache [delete]
func clearCache(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	cleared := state.Registry.ClearCache(c.Request.Context())
	router.RespondOK(c, "cache cleared", gin.H{"cleared": cleared})
}
