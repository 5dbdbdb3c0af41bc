package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config is the complete runtime configuration of the agent service.
type Config struct {
	Server     ServerConfig     `koanf:"server"     json:"server"`
	Runtime    RuntimeConfig    `koanf:"runtime"    json:"runtime"`
	Executions ExecutionsConfig `koanf:"executions" json:"executions"`
	Agents     AgentsConfig     `koanf:"agents"     json:"agents"`
	Retry      RetryConfig      `koanf:"retry"      json:"retry"`
	Providers  ProvidersConfig  `koanf:"providers"  json:"providers"`
	Audit      AuditConfig      `koanf:"audit"      json:"audit"`
	Checkpoint CheckpointConfig `koanf:"checkpoint" json:"checkpoint"`
	Monitoring MonitoringConfig `koanf:"monitoring" json:"monitoring"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host            string          `koanf:"host"             json:"host"             validate:"required"        env:"SERVER_HOST"`
	Port            int             `koanf:"port"             json:"port"             validate:"min=1,max=65535" env:"SERVER_PORT"`
	Timeout         time.Duration   `koanf:"timeout"          json:"timeout"          validate:"min=0"           env:"SERVER_TIMEOUT"`
	ShutdownTimeout time.Duration   `koanf:"shutdown_timeout" json:"shutdown_timeout" validate:"min=0"           env:"SERVER_SHUTDOWN_TIMEOUT"`
	MaxBodyBytes    int64           `koanf:"max_body_bytes"   json:"max_body_bytes"   validate:"min=0"           env:"SERVER_MAX_BODY_BYTES"`
	RateLimit       RateLimitConfig `koanf:"ratelimit"        json:"ratelimit"`
}

// RateLimitConfig limits requests per client address. A zero limit disables
// rate limiting.
type RateLimitConfig struct {
	Limit  int64         `koanf:"limit"  json:"limit"  validate:"min=0" env:"RATELIMIT_LIMIT"`
	Period time.Duration `koanf:"period" json:"period"                  env:"RATELIMIT_PERIOD"`
	Prefix string        `koanf:"prefix" json:"prefix"                  env:"RATELIMIT_PREFIX"`
}

// RuntimeConfig contains process-wide behavior.
type RuntimeConfig struct {
	LogLevel string `koanf:"log_level" json:"log_level" validate:"oneof=debug info warn error disabled" env:"RUNTIME_LOG_LEVEL"`
	LogJSON  bool   `koanf:"log_json"  json:"log_json"                                                env:"RUNTIME_LOG_JSON"`
}

// ExecutionsConfig controls the execution tracker and synchronous runs.
type ExecutionsConfig struct {
	Retention       time.Duration `koanf:"retention"        json:"retention"        validate:"gt=0" env:"EXECUTIONS_RETENTION"`
	CleanupInterval time.Duration `koanf:"cleanup_interval" json:"cleanup_interval" validate:"gt=0" env:"EXECUTIONS_CLEANUP_INTERVAL"`
	Timeout         time.Duration `koanf:"timeout"          json:"timeout"          validate:"gt=0" env:"EXECUTIONS_TIMEOUT"`
}

// AgentsConfig controls the agent instance cache and where definitions are
// loaded from.
type AgentsConfig struct {
	CacheMaxSize    int           `koanf:"cache_max_size"   json:"cache_max_size"   validate:"min=1" env:"AGENTS_CACHE_MAX_SIZE"`
	CacheExpiration time.Duration `koanf:"cache_expiration" json:"cache_expiration" validate:"gt=0"  env:"AGENTS_CACHE_EXPIRATION"`
	DefinitionsFile string        `koanf:"definitions_file" json:"definitions_file"                  env:"AGENTS_DEFINITIONS_FILE"`
}

// RetryConfig is the retry policy applied to provider calls.
type RetryConfig struct {
	MaxRetries int           `koanf:"max_retries" json:"max_retries" validate:"min=0"           env:"RETRY_MAX_RETRIES"`
	BaseDelay  time.Duration `koanf:"base_delay"  json:"base_delay"  validate:"gt=0"            env:"RETRY_BASE_DELAY"`
	MaxDelay   time.Duration `koanf:"max_delay"   json:"max_delay"   validate:"gtefield=BaseDelay" env:"RETRY_MAX_DELAY"`
}

// ProvidersConfig holds per-provider credentials used when an agent
// definition does not carry its own.
type ProvidersConfig struct {
	OpenAI    ProviderCredentials `koanf:"openai"    json:"openai"`
	Anthropic ProviderCredentials `koanf:"anthropic" json:"anthropic"`
	Groq      ProviderCredentials `koanf:"groq"      json:"groq"`
	Google    ProviderCredentials `koanf:"google"    json:"google"`
	DeepSeek  ProviderCredentials `koanf:"deepseek"  json:"deepseek"`
	XAI       ProviderCredentials `koanf:"xai"       json:"xai"`
	Ollama    ProviderCredentials `koanf:"ollama"    json:"ollama"`
}

type ProviderCredentials struct {
	APIKey  SensitiveString `koanf:"api_key"  json:"api_key"  sensitive:"true"`
	BaseURL string          `koanf:"base_url" json:"base_url"`
}

// AuditConfig controls the SQLite execution log.
type AuditConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" env:"AUDIT_ENABLED"`
	Path    string `koanf:"path"    json:"path"    env:"AUDIT_PATH"`
}

// CheckpointConfig controls conversation checkpoint storage. An empty Redis
// URL starts an embedded server.
type CheckpointConfig struct {
	RedisURL SensitiveString `koanf:"redis_url" json:"redis_url" env:"CHECKPOINT_REDIS_URL" sensitive:"true"`
	Prefix   string          `koanf:"prefix"    json:"prefix"    env:"CHECKPOINT_PREFIX"`
	TTL      time.Duration   `koanf:"ttl"       json:"ttl"       env:"CHECKPOINT_TTL"       validate:"min=0"`
}

type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" json:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    json:"path"    env:"MONITORING_PATH"    validate:"required,startswith=/"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            5001,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxBodyBytes:    4 << 20,
			RateLimit: RateLimitConfig{
				Limit:  100,
				Period: time.Minute,
				Prefix: "aoe:ratelimit:",
			},
		},
		Runtime: RuntimeConfig{
			LogLevel: "info",
		},
		Executions: ExecutionsConfig{
			Retention:       time.Hour,
			CleanupInterval: 5 * time.Minute,
			Timeout:         5 * time.Minute,
		},
		Agents: AgentsConfig{
			CacheMaxSize:    10,
			CacheExpiration: time.Hour,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
		Audit: AuditConfig{
			Enabled: true,
			Path:    ":memory:",
		},
		Checkpoint: CheckpointConfig{
			Prefix: "aoe:checkpoint:",
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Path:    "/metrics",
		},
	}
}

// String renders the configuration as JSON with sensitive values redacted.
func (c *Config) String() string {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("config: %v", err)
	}
	return string(data)
}
