package routes

import "fmt"

const apiVersion = "v0"

// Version returns the current API version string used in routing (e.g., "v0").
func Version() string {
	return apiVersion
}

// Base returns the versioned API base path (e.g., "/api/v0").
func Base() string {
	return fmt.Sprintf("/api/%s", Version())
}

func Agents() string     { return Base() + "/agents" }
func Executions() string { return Base() + "/executions" }
func Cache() string      { return Base() + "/cache" }

// AgentExecutions is the route template of agent runs, as reported by
// gin's FullPath.
func AgentExecutions() string {
	return Agents() + "/:agent_id/executions"
}

// HealthVersioned returns the versioned health path (e.g., "/api/v0/health").
func HealthVersioned() string {
	return Base() + "/health"
}
