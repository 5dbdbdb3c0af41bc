//	@title			Agents of Empires API
//	@version		1.0
//	@description	HTTP API for registering, running and tracking LLM agents

//	@BasePath	/api/v0

//	@tag.name			agents
//	@tag.description	Agent definition management

//	@tag.name			executions
//	@tag.description	Agent execution and tracking

//	@tag.name			cache
//	@tag.description	Agent instance cache

//	@tag.name			health
//	@tag.description	Service health

package main

import (
	"fmt"
	"os"

	"github.com/DavinciDreams/agents-of-empires-sub001/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
