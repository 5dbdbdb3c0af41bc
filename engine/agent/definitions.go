package agent

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Definitions is the on-disk format of an agent definitions file.
type Definitions struct {
	Agents []Config `yaml:"agents"`
}

// LoadDefinitions reads and validates the agents listed in a YAML file.
func LoadDefinitions(path string) ([]*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent definitions: %w", err)
	}
	configs, err := ParseDefinitions(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return configs, nil
}

// ParseDefinitions decodes a definitions document. Unknown fields are
// rejected and agent ids must be unique.
func ParseDefinitions(data []byte) ([]*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var defs Definitions
	if err := dec.Decode(&defs); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse agent definitions: %w", err)
	}
	seen := make(map[string]struct{}, len(defs.Agents))
	out := make([]*Config, 0, len(defs.Agents))
	for i := range defs.Agents {
		cfg := &defs.Agents[i]
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("agent #%d: %w", i, err)
		}
		if _, ok := seen[cfg.ID]; ok {
			return nil, fmt.Errorf("agent #%d: duplicate agent id %q", i, cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}
