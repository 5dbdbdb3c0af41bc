package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// extractCLIFlags maps explicitly set flags to their dotted config paths.
// Flags are resolved through cmd.Flag so persistent flags of the root
// command are found before cobra has merged them into cmd.Flags.
func extractCLIFlags(cmd *cobra.Command) map[string]any {
	flags := make(map[string]any)
	addFlag := func(flagName, key string, parse func(string) (any, error)) {
		flag := cmd.Flag(flagName)
		if flag == nil || !flag.Changed {
			return
		}
		if value, err := parse(flag.Value.String()); err == nil {
			flags[key] = value
		}
	}
	parseString := func(v string) (any, error) { return v, nil }
	parseInt := func(v string) (any, error) { return strconv.Atoi(v) }
	parseBool := func(v string) (any, error) { return strconv.ParseBool(v) }

	flagDefs := []struct {
		flagName string
		key      string
		parse    func(string) (any, error)
	}{
		{flagLogLevel, "runtime.log_level", parseString},
		{flagLogJSON, "runtime.log_json", parseBool},
		{flagHost, "server.host", parseString},
		{flagPort, "server.port", parseInt},
		{flagAgents, "agents.definitions_file", parseString},
	}
	for _, def := range flagDefs {
		addFlag(def.flagName, def.key, def.parse)
	}
	return flags
}

// stringFlag returns the value of a local or inherited string flag.
func stringFlag(cmd *cobra.Command, name string) (string, error) {
	flag := cmd.Flag(name)
	if flag == nil {
		return "", fmt.Errorf("flag accessed but not defined: %s", name)
	}
	return flag.Value.String(), nil
}

// loadEnvFile loads environment variables from a file inside the working
// directory. A missing file is not an error.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	envFile, err := stringFlag(cmd, flagEnvFile)
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return "", nil
	}
	pwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	if !filepath.IsAbs(envFile) {
		envFile = filepath.Join(pwd, envFile)
	}
	absPath, err := filepath.Abs(filepath.Clean(envFile))
	if err != nil {
		return "", fmt.Errorf("failed to resolve env file path: %w", err)
	}
	if !isPathWithinDirectory(absPath, pwd) {
		return "", fmt.Errorf("env file path '%s' is outside the working directory", envFile)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return absPath, nil
		}
		return "", fmt.Errorf("failed to stat env file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", fmt.Errorf("env file path '%s' is not a regular file", envFile)
	}
	if err := godotenv.Load(absPath); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", absPath, err)
	}
	return absPath, nil
}

func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return false
	}
	if !strings.HasSuffix(absDir, string(filepath.Separator)) {
		absDir += string(filepath.Separator)
	}
	return strings.HasPrefix(absPath, absDir) || absPath == strings.TrimSuffix(absDir, string(filepath.Separator))
}
