package monitoring

import (
	"fmt"
	"strings"

	"github.com/DavinciDreams/agents-of-empires-sub001/engine/infra/server/routes"
	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
)

// Config selects whether the scrape endpoint is served and where.
type Config struct {
	Enabled bool
	Path    string
}

func DefaultConfig() *Config {
	return &Config{Path: "/metrics"}
}

// FromConfig converts the service's monitoring section.
func FromConfig(cfg *config.MonitoringConfig) *Config {
	if cfg == nil {
		return DefaultConfig()
	}
	return &Config{Enabled: cfg.Enabled, Path: cfg.Path}
}

// Validate rejects scrape paths that would shadow an API or health route.
func (c *Config) Validate() error {
	switch {
	case c.Path == "":
		return fmt.Errorf("monitoring path cannot be empty")
	case c.Path[0] != '/':
		return fmt.Errorf("monitoring path must start with '/': got %s", c.Path)
	case strings.ContainsRune(c.Path, '?'):
		return fmt.Errorf("monitoring path cannot contain query parameters")
	case c.Path == "/health" || c.Path == routes.HealthVersioned():
		return fmt.Errorf("monitoring path %s collides with the health route", c.Path)
	case c.Path == routes.Base() || strings.HasPrefix(c.Path, routes.Base()+"/"):
		return fmt.Errorf("monitoring path cannot be under %s", routes.Base())
	}
	return nil
}
