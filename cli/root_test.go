package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/DavinciDreams/agents-of-empires-sub001/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mockDefinitions = `agents:
  - id: scout
    name: Scout
    model:
      provider: mock
      model: echo
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--env-file", "", "--log-level", "disabled"}, args...))
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestSetupGlobalConfig(t *testing.T) {
	t.Run("Should load the YAML file and attach config to the context", func(t *testing.T) {
		cfgPath := writeFile(t, "aoe.yaml", "server:\n  port: 6060\n")
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set(flagEnvFile, ""))
		require.NoError(t, cmd.PersistentFlags().Set(flagConfig, cfgPath))
		cmd.SetContext(t.Context())
		require.NoError(t, SetupGlobalConfig(cmd))
		assert.Equal(t, 6060, config.FromContext(cmd.Context()).Server.Port)
	})

	t.Run("Should let flags override the file and environment", func(t *testing.T) {
		cfgPath := writeFile(t, "aoe.yaml", "runtime:\n  log_level: warn\n")
		t.Setenv("RUNTIME_LOG_LEVEL", "error")
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set(flagEnvFile, ""))
		require.NoError(t, cmd.PersistentFlags().Set(flagConfig, cfgPath))
		require.NoError(t, cmd.PersistentFlags().Set(flagLogLevel, "debug"))
		cmd.SetContext(t.Context())
		require.NoError(t, SetupGlobalConfig(cmd))
		assert.Equal(t, "debug", config.FromContext(cmd.Context()).Runtime.LogLevel)
	})

	t.Run("Should reject an env file outside the working directory", func(t *testing.T) {
		cmd := RootCmd()
		require.NoError(t, cmd.PersistentFlags().Set(flagEnvFile, "/etc/passwd"))
		cmd.SetContext(t.Context())
		assert.ErrorContains(t, SetupGlobalConfig(cmd), "outside the working directory")
	})
}

func TestAgentsCmd(t *testing.T) {
	t.Run("Should validate a definitions file", func(t *testing.T) {
		path := writeFile(t, "agents.yaml", mockDefinitions)
		out, err := execute(t, "agents", "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "scout\tmock/echo")
		assert.Contains(t, out, "1 agent(s) valid")
	})

	t.Run("Should fail on an invalid definition", func(t *testing.T) {
		path := writeFile(t, "agents.yaml", "agents:\n  - name: nameless\n")
		_, err := execute(t, "agents", "validate", path)
		assert.Error(t, err)
	})

	t.Run("Should run an agent locally", func(t *testing.T) {
		path := writeFile(t, "agents.yaml", mockDefinitions)
		out, err := execute(t, "agents", "run", "scout", "-f", path, "-p", "hold the bridge")
		require.NoError(t, err)
		assert.Equal(t, "Mock response for: hold the bridge\n", out)
	})

	t.Run("Should stream a local run", func(t *testing.T) {
		path := writeFile(t, "agents.yaml", mockDefinitions)
		out, err := execute(t, "agents", "run", "scout", "-f", path, "-p", "hold", "--stream")
		require.NoError(t, err)
		assert.Equal(t, "Mock response for: hold\n", out)
	})
}

func TestAuditCmd(t *testing.T) {
	t.Run("Should migrate, list and prune a file database", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "audit.db")
		t.Setenv("AUDIT_PATH", dbPath)
		_, err := execute(t, "audit", "migrate")
		require.NoError(t, err)
		out, err := execute(t, "audit", "logs", "--agent", "scout")
		require.NoError(t, err)
		assert.JSONEq(t, "[]", out)
		out, err = execute(t, "audit", "prune", "--older-than", "1h")
		require.NoError(t, err)
		assert.Equal(t, "0 entries removed\n", out)
	})

	t.Run("Should require a database file", func(t *testing.T) {
		_, err := execute(t, "audit", "migrate")
		assert.ErrorContains(t, err, "audit.path")
	})

	t.Run("Should require exactly one filter", func(t *testing.T) {
		t.Setenv("AUDIT_PATH", filepath.Join(t.TempDir(), "audit.db"))
		_, err := execute(t, "audit", "logs")
		assert.ErrorContains(t, err, "exactly one")
	})
}

func TestConfigCmd(t *testing.T) {
	t.Run("Should redact secrets", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-secret")
		out, err := execute(t, "config", "show")
		require.NoError(t, err)
		assert.NotContains(t, out, "sk-secret")
		assert.Contains(t, out, "[REDACTED]")
	})

	t.Run("Should resolve defaults, file, environment and flags in order", func(t *testing.T) {
		cfgPath := writeFile(t, "aoe.yaml", "server:\n  port: 6060\n  host: 127.0.0.1\nruntime:\n  log_level: warn\n")
		t.Setenv("SERVER_HOST", "10.0.0.5")
		t.Setenv("RUNTIME_LOG_LEVEL", "error")
		out, err := execute(t, "--config", cfgPath, "--log-level", "debug", "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, `"port": 6060`)
		assert.Contains(t, out, `"host": "10.0.0.5"`)
		assert.Contains(t, out, `"log_level": "debug"`)
	})

	t.Run("Should list environment variables", func(t *testing.T) {
		out, err := execute(t, "config", "env")
		require.NoError(t, err)
		assert.Contains(t, out, "SERVER_PORT\tserver.port")
		assert.Contains(t, out, "OPENAI_API_KEY\tproviders.openai.api_key (sensitive)")
	})
}
