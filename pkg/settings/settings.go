// Package settings manages persistent user settings for the switchtrace CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/switchtrace/switchtrace/pkg/util"
)

// Settings holds persistent user preferences
type Settings struct {
	// DefaultInventory is the inventory file to use when -i is not specified
	DefaultInventory string `json:"default_inventory,omitempty"`

	// DefaultRoot is the root switch to use when -r is not specified
	DefaultRoot string `json:"default_root,omitempty"`

	// HistoryPath overrides the default trace history file
	HistoryPath string `json:"history_path,omitempty"`

	// RedisAddr selects Redis-backed history instead of the file
	RedisAddr string `json:"redis_addr,omitempty"`

	// Dialect is the command dialect for devices the inventory does not name
	Dialect string `json:"dialect,omitempty"`
}

// Keys lists the setting names accepted by Get and Set.
func Keys() []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var fields = map[string]func(*Settings) *string{
	"default_inventory": func(s *Settings) *string { return &s.DefaultInventory },
	"default_root":      func(s *Settings) *string { return &s.DefaultRoot },
	"history_path":      func(s *Settings) *string { return &s.HistoryPath },
	"redis_addr":        func(s *Settings) *string { return &s.RedisAddr },
	"dialect":           func(s *Settings) *string { return &s.Dialect },
}

// Dir returns the per-user switchtrace directory
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".switchtrace"
	}
	return filepath.Join(home, ".switchtrace")
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	return filepath.Join(Dir(), "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Get returns the value of the named setting
func (s *Settings) Get(key string) (string, error) {
	f, ok := fields[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown setting %q", util.ErrNotFound, key)
	}
	return *f(s), nil
}

// Set assigns the named setting. An empty value clears it.
func (s *Settings) Set(key, value string) error {
	f, ok := fields[key]
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", util.ErrNotFound, key)
	}
	*f(s) = value
	return nil
}

// GetHistoryPath returns the history file (with fallback)
func (s *Settings) GetHistoryPath() string {
	if s.HistoryPath != "" {
		return s.HistoryPath
	}
	return filepath.Join(Dir(), "history.jsonl")
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
