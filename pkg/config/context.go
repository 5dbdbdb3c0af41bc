package config

import "context"

type contextKey string

const configCtxKey contextKey = "config"

func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configCtxKey, cfg)
}

// FromContext returns the configuration attached to ctx, or the built-in
// defaults when none is attached.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(configCtxKey).(*Config); ok && cfg != nil {
			return cfg
		}
	}
	return Default()
}
