package agentrouter

import (
	"net/http"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/agent"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/gin-gonic/gin"
)

// listAgents handles GET /agents.
//
//	@Summary		List agents
//	@Description	Retrieve every registered agent definition, sorted by ID.
//	@Tags			agents
//	@Produce		json
//	@Success		200	{object}	router.Response{data=object{agents=[]agentrouter.AgentDTO}}	"Agents retrieved"
//	@Router			/agents [get]
func listAgents(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	cached := cachedIDs(state.Registry)
	configs := state.Registry.Configs()
	agents := make([]AgentDTO, 0, len(configs))
	for _, cfg := range configs {
		_, isCached := cached[cfg.ID]
		agents = append(agents, AgentDTO{Config: cfg, Cached: isCached})
	}
	router.RespondOK(c, "agents retrieved", gin.H{"agents": agents})
}

// getAgentByID handles GET /agents/{agent_id}.
//
//	@Summary		Get agent by ID
//	@Tags			agents
//	@Produce		json
//	@Param			agent_id	path		string									true	"Agent ID"	example("scout")
//	@Success		200			{object}	router.Response{data=agentrouter.AgentDTO}	"Agent retrieved"
//	@Failure		404			{object}	router.Response{error=router.ErrorInfo}	"Agent not found"
//	@Router			/agents/{agent_id} [get]
func getAgentByID(c *gin.Context) {
	agentID := router.GetAgentID(c)
	if agentID == "" {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	cfg, ok := state.Registry.Config(agentID)
	if !ok {
		respondAgentNotFound(c, agentID)
		return
	}
	_, cached := cachedIDs(state.Registry)[agentID]
	router.RespondOK(c, "agent retrieved", AgentDTO{Config: cfg, Cached: cached})
}

// registerAgent handles POST /agents.
//
//	@Summary		Register agent
//	@Description	Register an agent definition, replacing any existing one with the same ID.
//	@Tags			agents
//	@Accept			json
//	@Produce		json
//	@Param			agent	body		agent.Config							true	"Agent definition"
//	@Success		201		{object}	router.Response{data=agentrouter.AgentDTO}	"Agent registered"
//	@Failure		400		{object}	router.Response{error=router.ErrorInfo}	"Invalid definition"
//	@Router			/agents [post]
func registerAgent(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	cfg := &agent.Config{}
	if err := c.ShouldBindJSON(cfg); err != nil {
		router.RespondBadRequest(c, "invalid request body", err)
		return
	}
	if err := state.Registry.Register(c.Request.Context(), cfg); err != nil {
		router.RespondWithDomainError(c, "failed to register agent", err)
		return
	}
	stored, _ := state.Registry.Config(cfg.ID)
	router.RespondCreated(c, "agent registered", AgentDTO{Config: stored})
}

// deleteAgent handles DELETE /agents/{agent_id}.
//
//	@Summary		Unregister agent
//	@Tags			agents
//	@Produce		json
//	@Param			agent_id	path		string									true	"Agent ID"
//	@Success		200			{object}	router.Response							"Agent removed"
//	@Failure		404			{object}	router.Response{error=router.ErrorInfo}	"Agent not found"
//	@Router			/agents/{agent_id} [delete]
func deleteAgent(c *gin.Context) {
	agentID := router.GetAgentID(c)
	if agentID == "" {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	if !state.Registry.Unregister(c.Request.Context(), agentID) {
		respondAgentNotFound(c, agentID)
		return
	}
	router.RespondOK(c, "agent removed", gin.H{"agent_id": agentID})
}

func cachedIDs(registry *agent.Registry) map[string]struct{} {
	stats := registry.CacheStats()
	out := make(map[string]struct{}, len(stats.Entries))
	for _, entry := range stats.Entries {
		out[entry.AgentID] = struct{}{}
	}
	return out
}

func respondAgentNotFound(c *gin.Context, agentID string) {
	router.RespondWithError(c, http.StatusNotFound, core.ErrCodeAgentNotFound, "agent not found",
		map[string]any{"agent_id": agentID})
}
