package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/dkoosis/quarantine/pkg/quarantine"
)

// FileName is the configuration file looked up by getConfigPath.
const FileName = ".quarantine.yaml"

// Constants for default values.
const (
	DefaultDB        = ".quarantine/history.db"
	DefaultResults   = "**.xml"
	DefaultFormat    = "auto"
	DefaultTheme     = "default"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// NotifyConfig configures owner notifications.
type NotifyConfig struct {
	Outbox string            `yaml:"outbox,omitempty"` // directory receiving one .eml per notice
	From   string            `yaml:"from,omitempty"`
	Users  map[string]string `yaml:"users,omitempty"` // user name -> mail address
}

// AppConfig represents the application's configuration from .quarantine.yaml.
type AppConfig struct {
	DB           string       `yaml:"db,omitempty"`
	Results      string       `yaml:"results,omitempty"`
	OverrideFile string       `yaml:"override_file,omitempty"`
	Horizon      int          `yaml:"horizon,omitempty"`
	Format       string       `yaml:"format,omitempty"`
	Theme        string       `yaml:"theme,omitempty"`
	NoColor      bool         `yaml:"no_color,omitempty"`
	LogLevel     string       `yaml:"log_level,omitempty"`
	LogFormat    string       `yaml:"log_format,omitempty"`
	Notify       NotifyConfig `yaml:"notify,omitempty"`

	// path the file was read from; empty when only defaults apply
	path string
}

// Defaults returns the configuration used when no file is present.
func Defaults() *AppConfig {
	return &AppConfig{
		DB:           DefaultDB,
		Results:      DefaultResults,
		OverrideFile: quarantine.DefaultOverrideFile,
		Format:       DefaultFormat,
		Theme:        DefaultTheme,
		LogLevel:     DefaultLogLevel,
		LogFormat:    DefaultLogFormat,
	}
}

// Path returns the file the configuration was loaded from.
func (c *AppConfig) Path() string { return c.path }

// LoadConfig loads path, or the discovered .quarantine.yaml when path is
// empty, over the defaults. A missing discovered file is not an error; a
// missing explicit path is.
func LoadConfig(path string) (*AppConfig, error) {
	appCfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = getConfigPath()
		if path == "" {
			return appCfg, nil
		}
	}

	yamlFile, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return appCfg, nil
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var yamlAppCfg AppConfig
	if err := yaml.Unmarshal(yamlFile, &yamlAppCfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}

	// Merge YAML settings onto the base appCfg
	if yamlAppCfg.DB != "" {
		appCfg.DB = yamlAppCfg.DB
	}
	if yamlAppCfg.Results != "" {
		appCfg.Results = yamlAppCfg.Results
	}
	if yamlAppCfg.OverrideFile != "" {
		appCfg.OverrideFile = yamlAppCfg.OverrideFile
	}
	appCfg.Horizon = yamlAppCfg.Horizon
	if yamlAppCfg.Format != "" {
		appCfg.Format = yamlAppCfg.Format
	}
	if yamlAppCfg.Theme != "" {
		appCfg.Theme = yamlAppCfg.Theme
	}
	appCfg.NoColor = yamlAppCfg.NoColor
	if yamlAppCfg.LogLevel != "" {
		appCfg.LogLevel = yamlAppCfg.LogLevel
	}
	if yamlAppCfg.LogFormat != "" {
		appCfg.LogFormat = yamlAppCfg.LogFormat
	}
	appCfg.Notify = yamlAppCfg.Notify
	appCfg.path = path
	return appCfg, nil
}

// getConfigPath tries to find the .quarantine.yaml configuration file.
// It checks the local directory first, then the user config directory.
func getConfigPath() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}

	configHome, err := os.UserConfigDir()
	// An empty or root config dir is not usable for a per-user file.
	if err != nil || configHome == "" || configHome == "/" {
		return ""
	}
	xdgPath := filepath.Join(configHome, "quarantine", FileName)
	if _, err := os.Stat(xdgPath); err == nil {
		return xdgPath
	}
	return ""
}
