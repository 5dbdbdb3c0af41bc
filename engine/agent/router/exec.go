package agentrouter

import (
	"context"
	"strconv"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
	execrouter "github.com/DavinciDreams/agents-of-empires-sub001/engine/execution/router"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/appstate"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/runner"
	"github.com/gin-gonic/gin"
)

// SSE event names.
const (
	eventStart    = "start"
	eventChunk    = "chunk"
	eventComplete = "complete"
	eventError    = "error"
)

// executeAgent handles POST /agents/{agent_id}/executions.
//
//	@Summary		Execute agent
//	@Description	Run an agent and wait for its output. With stream=true the response is an SSE stream of start, chunk, complete and error events.
//	@Tags			executions
//	@Accept			json
//	@Produce		json,text/event-stream
//	@Param			agent_id	path		string									true	"Agent ID"
//	@Param			stream		query		bool									false	"Stream output as server-sent events"
//	@Param			request		body		agentrouter.ExecRequest					true	"Execution request"
//	@Success		200			{object}	router.Response{data=runner.Result}		"Execution completed"
//	@Failure		400			{object}	router.Response{error=router.ErrorInfo}	"Invalid request"
//	@Failure		404			{object}	router.Response{error=router.ErrorInfo}	"Agent or checkpoint not found"
//	@Failure		409			{object}	router.Response{error=router.ErrorInfo}	"Execution cancelled"
//	@Failure		422			{object}	router.Response{error=router.ErrorInfo}	"Missing provider credentials"
//	@Failure		504			{object}	router.Response{error=router.ErrorInfo}	"Execution timed out"
//	@Router			/agents/{agent_id}/executions [post]
func executeAgent(c *gin.Context) {
	agentID := router.GetAgentID(c)
	if agentID == "" {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	body := ExecRequest{}
	if err := c.ShouldBindJSON(&body); err != nil {
		router.RespondBadRequest(c, "invalid request body", err)
		return
	}
	messages, err := body.messages()
	if err != nil {
		router.RespondBadRequest(c, "invalid execution request", err)
		return
	}
	req := &runner.Request{
		AgentID:      agentID,
		Messages:     messages,
		ThreadID:     body.ThreadID,
		CheckpointID: body.CheckpointID,
	}
	if stream, _ := strconv.ParseBool(c.Query("stream")); stream {
		streamAgent(c, state, req)
		return
	}
	res, err := state.Runner.Execute(c.Request.Context(), req)
	if err != nil {
		router.RespondWithDomainError(c, "agent execution failed", err)
		return
	}
	router.RespondOK(c, "agent executed", res)
}

// streamAgent writes the run as SSE. Errors after the stream started are
// sent as an error event since the status line is already written.
func streamAgent(c *gin.Context, state *appstate.State, req *runner.Request) {
	stream := router.StartSSE(c.Writer)
	var seq int64
	next := func() int64 {
		seq++
		return seq
	}
	req.OnStart = func(rec execution.Record) {
		_ = stream.WriteEvent(next(), eventStart, gin.H{
			"exec_id":   rec.ID,
			"agent_id":  rec.AgentID,
			"thread_id": rec.ThreadID,
		})
	}
	res, err := state.Runner.Stream(c.Request.Context(), req, func(_ context.Context, chunk []byte) error {
		return stream.WriteEvent(next(), eventChunk, chunk)
	})
	if err != nil {
		_ = stream.WriteEvent(next(), eventError, router.ErrorInfoFrom(err))
		return
	}
	_ = stream.WriteEvent(next(), eventComplete, res)
}

// listExecutionsByAgentID handles GET /agents/{agent_id}/executions.
//
//	@Summary		List agent executions
//	@Description	Tracked executions of an agent, newest first.
//	@Tags			executions
//	@Produce		json
//	@Param			agent_id	path		string									true	"Agent ID"
//	@Success		200			{object}	router.Response{data=object{executions=[]execrouter.ExecutionDTO}}	"Executions retrieved"
//	@Router			/agents/{agent_id}/executions [get]
func listExecutionsByAgentID(c *gin.Context) {
	agentID := router.GetAgentID(c)
	if agentID == "" {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	recs := state.Tracker.List(agentID)
	router.RespondOK(c, "executions retrieved", gin.H{
		"executions": execrouter.NewExecutionDTOs(recs, time.Now()),
	})
}
