package router

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// LimitOrDefault returns a sanitized page size from the limit query
// parameter, capped at maxCap.
func LimitOrDefault(c *gin.Context, def int, maxCap int) int {
	if def <= 0 {
		def = defaultLimit
	}
	if maxCap <= 0 {
		maxCap = maxLimit
	}
	val, err := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	if err != nil || val <= 0 {
		return def
	}
	if val > maxCap {
		return maxCap
	}
	return val
}
