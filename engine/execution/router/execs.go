package execrouter

import (
	"net/http"
	"time"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/execution"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/router"
	"github.com/gin-gonic/gin"
)

const defaultLogLimit = 100

// getExecution handles GET /executions/{exec_id}.
//
//	@Summary		Get execution status
//	@Description	Retrieve the current status of a tracked agent execution.
//	@Tags			executions
//	@Produce		json
//	@Param			exec_id	path		string									true	"Execution ID"
//	@Success		200		{object}	router.Response{data=execrouter.ExecutionDTO}	"Execution retrieved"
//	@Failure		400		{object}	router.Response{error=router.ErrorInfo}	"Invalid execution ID"
//	@Failure		404		{object}	router.Response{error=router.ErrorInfo}	"Execution not found"
//	@Router			/executions/{exec_id} [get]
func getExecution(c *gin.Context) {
	execID, ok := router.GetExecID(c)
	if !ok {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	rec, found := state.Tracker.Get(execID)
	if !found {
		respondNotFound(c, core.ErrCodeExecutionNotFound, "execution not found", "exec_id", execID.String())
		return
	}
	router.RespondOK(c, "execution retrieved", NewExecutionDTO(&rec, time.Now()))
}

// cancelExecution handles POST /executions/{exec_id}/cancel.
//
//	@Summary		Cancel execution
//	@Description	Signal a running execution to stop. The status changes immediately.
//	@Tags			executions
//	@Produce		json
//	@Param			exec_id	path		string									true	"Execution ID"
//	@Success		200		{object}	router.Response{data=execrouter.ExecutionDTO}	"Execution cancelled"
//	@Failure		404		{object}	router.Response{error=router.ErrorInfo}	"Execution not found"
//	@Failure		409		{object}	router.Response{error=router.ErrorInfo}	"Execution is not running"
//	@Router			/executions/{exec_id}/cancel [post]
func cancelExecution(c *gin.Context) {
	execID, ok := router.GetExecID(c)
	if !ok {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	if err := state.Runner.Cancel(c.Request.Context(), execID); err != nil {
		router.RespondWithDomainError(c, "failed to cancel execution", err)
		return
	}
	rec, _ := state.Tracker.Get(execID)
	router.RespondOK(c, "execution cancelled", NewExecutionDTO(&rec, time.Now()))
}

// getExecutionLogs handles GET /executions/{exec_id}/logs.
//
//	@Summary		Get execution logs
//	@Description	List the audit log of an execution, oldest first.
//	@Tags			executions
//	@Produce		json
//	@Param			exec_id	path		string									true	"Execution ID"
//	@Param			limit	query		int										false	"Maximum entries"	default(100)
//	@Success		200		{object}	router.Response{data=object{logs=[]execution.LogEntry}}	"Logs retrieved"
//	@Failure		503		{object}	router.Response{error=router.ErrorInfo}	"Audit log disabled"
//	@Router			/executions/{exec_id}/logs [get]
func getExecutionLogs(c *gin.Context) {
	execID, ok := router.GetExecID(c)
	if !ok {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	if state.Logs == nil {
		router.RespondWithError(c, http.StatusServiceUnavailable, router.ErrServiceUnavailableCode,
			"audit log is disabled", nil)
		return
	}
	limit := router.LimitOrDefault(c, defaultLogLimit, 0)
	logs, err := state.Logs.ListLogs(c.Request.Context(), execID.String(), limit)
	if err != nil {
		router.RespondWithDomainError(c, "failed to list execution logs", err)
		return
	}
	if logs == nil {
		logs = []execution.LogEntry{}
	}
	router.RespondOK(c, "execution logs retrieved", gin.H{"logs": logs})
}

// getExecutionStats handles GET /executions/stats.
//
//	@Summary		Execution statistics
//	@Tags			executions
//	@Produce		json
//	@Success		200	{object}	router.Response{data=execution.Stats}	"Statistics retrieved"
//	@Router			/executions/stats [get]
func getExecutionStats(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	router.RespondOK(c, "execution stats retrieved", state.Tracker.Stats())
}

// getExecutionByThread handles GET /threads/{thread_id}/execution.
//
//	@Summary		Get latest execution of a thread
//	@Tags			executions
//	@Produce		json
//	@Param			thread_id	path		string									true	"Thread ID"
//	@Success		200			{object}	router.Response{data=execrouter.ExecutionDTO}	"Execution retrieved"
//	@Failure		404			{object}	router.Response{error=router.ErrorInfo}	"No execution for thread"
//	@Router			/threads/{thread_id}/execution [get]
func getExecutionByThread(c *gin.Context) {
	threadID := router.GetURLParam(c, "thread_id")
	if threadID == "" {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	rec, found := state.Tracker.GetByThread(threadID)
	if !found {
		respondNotFound(c, core.ErrCodeExecutionNotFound, "no execution for thread", "thread_id", threadID)
		return
	}
	router.RespondOK(c, "execution retrieved", NewExecutionDTO(&rec, time.Now()))
}

// getExecutionByCheckpoint handles GET /checkpoints/{checkpoint_id}/execution.
//
//	@Summary		Get execution by checkpoint
//	@Tags			executions
//	@Produce		json
//	@Param			checkpoint_id	path		string									true	"Checkpoint ID"
//	@Success		200				{object}	router.Response{data=execrouter.ExecutionDTO}	"Execution retrieved"
//	@Failure		404				{object}	router.Response{error=router.ErrorInfo}	"No execution for checkpoint"
//	@Router			/checkpoints/{checkpoint_id}/execution [get]
func getExecutionByCheckpoint(c *gin.Context) {
	checkpointID := router.GetURLParam(c, "checkpoint_id")
	if checkpointID == "" {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	rec, found := state.Tracker.GetByCheckpoint(checkpointID)
	if !found {
		respondNotFound(c, core.ErrCodeExecutionNotFound, "no execution for checkpoint", "checkpoint_id", checkpointID)
		return
	}
	router.RespondOK(c, "execution retrieved", NewExecutionDTO(&rec, time.Now()))
}

func respondNotFound(c *gin.Context, code, message, key, value string) {
	router.RespondWithError(c, http.StatusNotFound, code, message, map[string]any{key: value})
}
