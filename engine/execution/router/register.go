package execrouter

import "github.com/gin-gonic/gin"

func Register(apiBase *gin.RouterGroup) {
	execGroup := apiBase.Group("/executions")
	{
		// GET /api/v0/executions/stats
		// Counts of tracked executions per status
		execGroup.GET("/stats", getExecutionStats)

		// GET /api/v0/executions/:exec_id
		// Get execution status
		execGroup.GET("/:exec_id", getExecution)

		// POST /api/v0/executions/:exec_id/cancel
		// Cancel a running execution
		execGroup.POST("/:exec_id/cancel", cancelExecution)

		// GET /api/v0/executions/:exec_id/logs
		// Audit log of an execution
		execGroup.GET("/:exec_id/logs", getExecutionLogs)
	}

	// GET /api/v0/threads/:thread_id/execution
	// Latest execution of a conversation thread
	apiBase.GET("/threads/:thread_id/execution", getExecutionByThread)

	// GET /api/v0/checkpoints/:checkpoint_id/execution
	// Execution that produced or resumed a checkpoint
	apiBase.GET("/checkpoints/:checkpoint_id/execution", getExecutionByCheckpoint)
}
