package config

import (
	"context"
	"fmt"
	"maps"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

// Source contributes configuration values as a nested map. Later sources
// override earlier ones.
type Source interface {
	Load() (map[string]any, error)
	Name() string
}

// sensitiveStringDecodeHook is a mapstructure decode hook that converts strings to SensitiveString
func sensitiveStringDecodeHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeOf(SensitiveString("")) {
		return data, nil
	}
	switch v := data.(type) {
	case string:
		return SensitiveString(v), nil
	case []byte:
		return SensitiveString(v), nil
	default:
		return data, nil
	}
}

// Load builds the configuration from defaults, then sources in order, then
// environment variables, then flag sources, and validates the result.
func Load(_ context.Context, sources ...Source) (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	var flags []Source
	for _, source := range sources {
		if source == nil {
			continue
		}
		if _, ok := source.(*flagSource); ok {
			flags = append(flags, source)
			continue
		}
		if err := applySource(k, source); err != nil {
			return nil, err
		}
	}
	if err := loadEnvironment(k); err != nil {
		return nil, err
	}
	for _, source := range flags {
		if err := applySource(k, source); err != nil {
			return nil, err
		}
	}
	return unmarshalAndValidate(k)
}

func applySource(k *koanf.Koanf, source Source) error {
	data, err := source.Load()
	if err != nil {
		return fmt.Errorf("failed to load from source %s: %w", source.Name(), err)
	}
	// Set keys one by one so a partial section keeps the other defaults.
	for key, value := range flattenMap("", data) {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("failed to set key %s from source %s: %w", key, source.Name(), err)
		}
	}
	return nil
}

func loadEnvironment(k *koanf.Koanf) error {
	envToPath := GenerateEnvToConfigMap()
	err := k.Load(env.Provider(".", env.Opt{
		TransformFunc: func(key string, value string) (string, any) {
			if path, ok := envToPath[key]; ok && value != "" {
				return path, value
			}
			return "", nil
		},
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment variables: %w", err)
	}
	return nil
}

func unmarshalAndValidate(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				sensitiveStringDecodeHook,
			),
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var validate = validator.New()

// Validate checks struct tag constraints.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// flattenMap flattens a nested map into dot-notation keys
func flattenMap(prefix string, m map[string]any) map[string]any {
	result := make(map[string]any)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			maps.Copy(result, flattenMap(key, nested))
			continue
		}
		if v != nil {
			result[key] = v
		}
	}
	return result
}

type yamlSource struct {
	path string
}

// NewYAMLSource reads a YAML file. A missing file contributes nothing.
func NewYAMLSource(path string) Source {
	return &yamlSource{path: path}
}

func (y *yamlSource) Name() string {
	return "yaml:" + y.path
}

func (y *yamlSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(y.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("failed to read YAML file: %w", err)
	}
	var out map[string]any
	if err := yaml.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to parse YAML file: %w", err)
	}
	return out, nil
}

type mapSource struct {
	name string
	data map[string]any
}

// NewMapSource wraps already parsed values, such as CLI flags keyed by
// their dotted config path.
func NewMapSource(name string, values map[string]any) Source {
	data := make(map[string]any, len(values))
	for path, value := range values {
		data[path] = value
	}
	return &mapSource{name: name, data: data}
}

func (m *mapSource) Name() string {
	return m.name
}

func (m *mapSource) Load() (map[string]any, error) {
	return m.data, nil
}

// flagSource holds command line values. It is applied after the
// environment so explicit flags win.
type flagSource struct {
	mapSource
}

func NewFlagSource(values map[string]any) Source {
	return &flagSource{mapSource: mapSource{name: "flags", data: values}}
}
