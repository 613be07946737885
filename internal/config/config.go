// Package config implements the on-disk sync profile store: a small JSON
// document holding named profiles (sync endpoint, interval, auth mode) and
// the name of the active one, plus environment-variable overrides applied
// on load.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/clankers-daemon/clankers/internal/apperr"
	"github.com/clankers-daemon/clankers/internal/paths"
)

// Profile represents a configuration profile for sync settings
type Profile struct {
	Endpoint     string `json:"endpoint,omitempty"`
	SyncEnabled  bool   `json:"sync_enabled"`
	SyncInterval int    `json:"sync_interval"` // seconds
	AuthMode     string `json:"auth"`          // "none" for Phase 1
}

// Config holds all profiles and the active profile name
type Config struct {
	Profiles      map[string]Profile `json:"profiles"`
	ActiveProfile string             `json:"active_profile"`

	// configPath is the file this config was loaded from / will be saved
	// to. Unexported so it never round-trips through JSON.
	configPath string
}

// DefaultProfile returns a profile with sensible defaults
func DefaultProfile() Profile {
	return Profile{
		SyncEnabled:  false,
		SyncInterval: 30,
		AuthMode:     "none",
	}
}

// DefaultConfig returns a new config with a default profile
func DefaultConfig() *Config {
	return &Config{
		Profiles: map[string]Profile{
			"default": DefaultProfile(),
		},
		ActiveProfile: "default",
	}
}

// Load reads the config from path, or returns a default config (remembering
// path for a later Save) if the file does not exist yet. An empty path
// resolves to the platform default config location.
func Load(path string) (*Config, error) {
	if path == "" {
		path = paths.GetConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, apperr.Wrap(apperr.PathError, "failed to create config directory", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		cfg.configPath = path
		cfg.applyEnvOverrides()
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Wrap(apperr.ConfigParse, "failed to read config", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, apperr.Wrap(apperr.ConfigParse, "failed to parse config", err)
	}
	cfg.configPath = path

	if cfg.Profiles == nil {
		cfg.Profiles = make(map[string]Profile)
	}
	if _, ok := cfg.Profiles["default"]; !ok {
		cfg.Profiles["default"] = DefaultProfile()
	}

	cfg.applyEnvOverrides()

	return &cfg, nil
}

// Save writes the config to the path it was loaded from (or will be loaded
// from, for a freshly-defaulted config).
func (c *Config) Save() error {
	path := c.configPath
	if path == "" {
		path = paths.GetConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return apperr.Wrap(apperr.PathError, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return apperr.Wrap(apperr.ConfigParse, "failed to marshal config", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return apperr.Wrap(apperr.ConfigParse, "failed to write config", err)
	}

	return nil
}

// GetActiveProfile returns the currently active profile
func (c *Config) GetActiveProfile() Profile {
	profile, ok := c.Profiles[c.ActiveProfile]
	if !ok {
		return DefaultProfile()
	}
	return profile
}

// SetActiveProfile switches to a different profile
func (c *Config) SetActiveProfile(name string) error {
	if _, ok := c.Profiles[name]; !ok {
		return apperr.New(apperr.ProfileNotFound, fmt.Sprintf("profile '%s' does not exist", name))
	}
	c.ActiveProfile = name
	return nil
}

// GetProfileValue gets a value from the active profile
func (c *Config) GetProfileValue(key string) (string, error) {
	profile := c.GetActiveProfile()

	switch key {
	case "endpoint":
		return profile.Endpoint, nil
	case "sync_enabled":
		return strconv.FormatBool(profile.SyncEnabled), nil
	case "sync_interval":
		return strconv.Itoa(profile.SyncInterval), nil
	case "auth":
		return profile.AuthMode, nil
	default:
		return "", apperr.New(apperr.InvalidValue, fmt.Sprintf("unknown config key: %s", key))
	}
}

// SetProfileValue sets a value on the active profile
func (c *Config) SetProfileValue(key, value string) error {
	profile := c.GetActiveProfile()

	switch key {
	case "endpoint":
		profile.Endpoint = value
	case "sync_enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return apperr.Wrap(apperr.InvalidValue, "invalid boolean value for sync_enabled", err)
		}
		profile.SyncEnabled = enabled
	case "sync_interval":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return apperr.Wrap(apperr.InvalidValue, "invalid integer value for sync_interval", err)
		}
		profile.SyncInterval = interval
	case "auth":
		profile.AuthMode = value
	default:
		return apperr.New(apperr.InvalidValue, fmt.Sprintf("unknown config key: %s", key))
	}

	c.Profiles[c.ActiveProfile] = profile
	return nil
}

// CreateProfile creates a new profile initialised from defaults. It is a
// no-op if the name already exists.
func (c *Config) CreateProfile(name string) error {
	if _, ok := c.Profiles[name]; ok {
		return nil
	}
	c.Profiles[name] = DefaultProfile()
	return nil
}

// DeleteProfile removes a profile (cannot delete 'default')
func (c *Config) DeleteProfile(name string) error {
	if name == "default" {
		return apperr.New(apperr.ProtectedProfile, "cannot delete the 'default' profile")
	}
	if _, ok := c.Profiles[name]; !ok {
		return apperr.New(apperr.ProfileNotFound, fmt.Sprintf("profile '%s' does not exist", name))
	}
	delete(c.Profiles, name)
	if c.ActiveProfile == name {
		c.ActiveProfile = "default"
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the active profile
func (c *Config) applyEnvOverrides() {
	profile := c.GetActiveProfile()

	if v := os.Getenv("CLANKERS_ENDPOINT"); v != "" {
		profile.Endpoint = v
	}
	if v := os.Getenv("CLANKERS_SYNC_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			profile.SyncEnabled = enabled
		}
	}

	c.Profiles[c.ActiveProfile] = profile
}

// Path returns the file this config was loaded from / saves to.
func (c *Config) Path() string {
	return c.configPath
}

// GetConfigPath returns the platform-default path to the config file.
func GetConfigPath() string {
	return paths.GetConfigPath()
}
