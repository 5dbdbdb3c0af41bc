package agentrouter

import "github.com/gin-gonic/gin"

func Register(apiBase *gin.RouterGroup) {
	agentsGroup := apiBase.Group("/agents")
	{
		// GET /api/v0/agents
		// List registered agents
		agentsGroup.GET("", listAgents)

		// POST /api/v0/agents
		// Register or replace an agent definition
		agentsGroup.POST("", registerAgent)

		// GET /api/v0/agents/:agent_id
		// Get agent definition
		agentsGroup.GET("/:agent_id", getAgentByID)

		// DELETE /api/v0/agents/:agent_id
		// Remove an agent definition and its cached instance
		agentsGroup.DELETE("/:agent_id", deleteAgent)

		// POST /api/v0/agents/:agent_id/executions
		// Run an agent synchronously, or as SSE with ?stream=true
		agentsGroup.POST("/:agent_id/executions", executeAgent)

		// GET /api/v0/agents/:agent_id/executions
		// List tracked executions of an agent
		agentsGroup.GET("/:agent_id/executions", listExecutionsByAgentID)
	}

	cacheGroup := apiBase.Group("/cache")
	{
		// GET /api/v0/cache
		// Agent instance cache statistics
		cacheGroup.GET("", getCacheStats)

		// PUT /api/v0/cache/config
		// Change cache size or expiration
		cacheGroup.PUT("/config", updateCacheConfig)

		// DELETE /api/v0/cache
		// Drop every cached instance
		cacheGroup.DELETE("", clearCache)
	}
}
