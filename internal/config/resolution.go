package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/dkoosis/quarantine/internal/logging"
)

// Sources of a resolved value, highest priority first.
const (
	SourceCLI     = "cli"
	SourceEnv     = "env"
	SourceFile    = "file"
	SourceDefault = "default"
)

// CliFlags holds the values of command-line flags. Empty strings mean the
// flag was not given; Horizon and NoColor carry explicit Set markers.
type CliFlags struct {
	ConfigPath   string
	DB           string
	Results      string
	OverrideFile string
	Format       string
	Theme        string
	LogLevel     string
	LogFormat    string
	Outbox       string
	Horizon      int
	NoColor      bool

	HorizonSet bool
	NoColorSet bool
}

// ResolvedConfig holds the final configuration after applying all priority rules.
type ResolvedConfig struct {
	DB           string
	Results      string
	OverrideFile string
	Horizon      int
	Format       string
	Theme        string
	NoColor      bool
	LogLevel     string
	LogFormat    string
	Notify       NotifyConfig

	// File is the config file that was read, if any.
	File string
	// Sources maps each yaml key to the source that set it.
	Sources map[string]string
}

// ResolveConfig resolves configuration from all sources with explicit priority order.
// This is the single source of truth for config resolution.
func ResolveConfig(cliFlags CliFlags) (*ResolvedConfig, error) {
	appCfg, err := LoadConfig(cliFlags.ConfigPath)
	if err != nil {
		return nil, err
	}
	fileSource := SourceFile
	if appCfg.Path() == "" {
		fileSource = SourceDefault
	}

	r := &ResolvedConfig{File: appCfg.Path(), Notify: appCfg.Notify, Sources: map[string]string{}}
	str := func(key string, dst *string, fileVal, cliVal, envKey string) {
		switch {
		case cliVal != "":
			*dst, r.Sources[key] = cliVal, SourceCLI
		case os.Getenv(envKey) != "":
			*dst, r.Sources[key] = os.Getenv(envKey), SourceEnv
		default:
			*dst, r.Sources[key] = fileVal, fileSource
		}
	}
	str("db", &r.DB, appCfg.DB, cliFlags.DB, "QUARANTINE_DB")
	str("results", &r.Results, appCfg.Results, cliFlags.Results, "QUARANTINE_RESULTS")
	str("override_file", &r.OverrideFile, appCfg.OverrideFile, cliFlags.OverrideFile, "QUARANTINE_OVERRIDE_FILE")
	str("format", &r.Format, appCfg.Format, cliFlags.Format, "QUARANTINE_FORMAT")
	str("theme", &r.Theme, appCfg.Theme, cliFlags.Theme, "QUARANTINE_THEME")
	str("log_level", &r.LogLevel, appCfg.LogLevel, cliFlags.LogLevel, "QUARANTINE_LOG_LEVEL")
	str("log_format", &r.LogFormat, appCfg.LogFormat, cliFlags.LogFormat, "QUARANTINE_LOG_FORMAT")
	str("notify.outbox", &r.Notify.Outbox, appCfg.Notify.Outbox, cliFlags.Outbox, "QUARANTINE_OUTBOX")

	// Resolve Horizon with priority: CLI > ENV > file > default
	r.Horizon, r.Sources["horizon"] = appCfg.Horizon, fileSource
	if cliFlags.HorizonSet {
		r.Horizon, r.Sources["horizon"] = cliFlags.Horizon, SourceCLI
	} else if v := os.Getenv("QUARANTINE_HORIZON"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("QUARANTINE_HORIZON: %w", err)
		}
		r.Horizon, r.Sources["horizon"] = n, SourceEnv
	}

	// Resolve NoColor with priority: CLI > ENV > file > default
	r.NoColor, r.Sources["no_color"] = appCfg.NoColor, fileSource
	if cliFlags.NoColorSet {
		r.NoColor, r.Sources["no_color"] = cliFlags.NoColor, SourceCLI
	} else if env := getEnvBool("QUARANTINE_NO_COLOR", "NO_COLOR"); env != nil {
		r.NoColor, r.Sources["no_color"] = *env, SourceEnv
	}

	if err := validateResolvedConfig(r); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return r, nil
}

// getEnvBool reads a boolean from environment variables, trying multiple keys.
// Returns nil if none are set, or a pointer to the boolean value.
// NO_COLOR follows no-color.org: any non-empty value means true.
func getEnvBool(keys ...string) *bool {
	for _, key := range keys {
		val := os.Getenv(key)
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			return &b
		}
		if key == "NO_COLOR" {
			t := true
			return &t
		}
	}
	return nil
}

// validateResolvedConfig validates the resolved configuration and returns errors for invalid states.
func validateResolvedConfig(cfg *ResolvedConfig) error {
	if cfg.DB == "" {
		return fmt.Errorf("db path cannot be empty")
	}
	if cfg.Results == "" {
		return fmt.Errorf("results pattern cannot be empty")
	}
	if cfg.Horizon < 0 {
		return fmt.Errorf("horizon must not be negative, got: %d", cfg.Horizon)
	}

	validFormat := map[string]bool{"auto": true, "terminal": true, "llm": true, "json": true}
	if !validFormat[cfg.Format] {
		return fmt.Errorf("invalid format value: %s (must be: auto, terminal, llm, json)", cfg.Format)
	}
	validTheme := map[string]bool{"default": true, "orca": true, "mono": true}
	if !validTheme[cfg.Theme] {
		return fmt.Errorf("invalid theme value: %s (must be: default, orca, mono)", cfg.Theme)
	}
	if _, err := logging.ParseLevel(cfg.LogLevel); err != nil {
		return err
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return fmt.Errorf("invalid log_format value: %s (must be: text, json)", cfg.LogFormat)
	}
	return nil
}
