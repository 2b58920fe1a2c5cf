package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vinigracindo/database-as-a-service/internal/config"
)

const (
	envLogLevel    = "DBAAS_LOG_LEVEL"
	envHistoryPath = "DBAAS_HISTORY_PATH"
)

// settings are the effective run settings after layering flags, the
// environment, the workflow file and defaults, in that order.
type settings struct {
	LogLevel    string
	HistoryPath string
}

func resolveSettings(flags *rootFlags, cfg *config.Config, getenv func(string) string) (settings, error) {
	var out settings

	switch {
	case flags != nil && flags.logLevel != "":
		out.LogLevel = flags.logLevel
	case flags != nil && flags.verbose:
		out.LogLevel = "debug"
	case getenv(envLogLevel) != "":
		out.LogLevel = getenv(envLogLevel)
	default:
		out.LogLevel = "info"
	}

	var history string
	switch {
	case flags != nil && flags.historyPath != "":
		history = flags.historyPath
	case getenv(envHistoryPath) != "":
		history = getenv(envHistoryPath)
	case cfg != nil && cfg.Settings.History != "":
		history = cfg.Settings.History
	default:
		path, err := defaultHistoryPath()
		if err != nil {
			return out, err
		}
		history = path
	}

	expanded, err := expandHome(history)
	if err != nil {
		return out, err
	}
	out.HistoryPath = expanded
	return out, nil
}

func defaultHistoryPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".dbaas", "history.json"), nil
}

func expandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

func validateConfigPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("workflow file is required")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve workflow path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("workflow file does not exist: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("workflow path %s is a directory", abs)
	}

	return nil
}
