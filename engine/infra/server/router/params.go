package router

import (
	"net/http"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/core"
	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/appstate"
	"github.com/gin-gonic/gin"
)

const ErrMsgAppStateNotInitialized = "application state not initialized"

// GetAppState returns the request's state or writes a 500 and returns nil.
func GetAppState(c *gin.Context) *appstate.State {
	state, err := appstate.GetState(c.Request.Context())
	if err != nil {
		RespondWithError(c, http.StatusInternalServerError, ErrInternalCode, ErrMsgAppStateNotInitialized, nil)
		return nil
	}
	return state
}

// GetURLParam returns a required path parameter or writes a 400 and
// returns "".
func GetURLParam(c *gin.Context, name string) string {
	value := c.Param(name)
	if value == "" {
		RespondWithError(c, http.StatusBadRequest, ErrBadRequestCode, name+" is required", nil)
	}
	return value
}

func GetAgentID(c *gin.Context) string {
	return GetURLParam(c, "agent_id")
}

// GetExecID parses the exec_id path parameter or writes a 400.
func GetExecID(c *gin.Context) (core.ID, bool) {
	raw := GetURLParam(c, "exec_id")
	if raw == "" {
		return "", false
	}
	id, err := core.ParseID(raw)
	if err != nil {
		RespondBadRequest(c, "invalid execution id", err)
		return "", false
	}
	return id, true
}
