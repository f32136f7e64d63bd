package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/jmcdonald/unpin/internal/adapters/zipdest"
	"github.com/jmcdonald/unpin/internal/logging"
	"gopkg.in/yaml.v3"
)

// ErrNoHomeDir is returned when the user's home directory cannot be determined.
var ErrNoHomeDir = errors.New("cannot determine home directory")

// JournalConfig controls the write-back journal.
type JournalConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	KeepLast int    `yaml:"keep_last"`
}

type Config struct {
	PatchSuffix string        `yaml:"patch_suffix"`
	AtomicSwap  bool          `yaml:"atomic_swap"`
	LogLevel    string        `yaml:"log_level"`
	Journal     JournalConfig `yaml:"journal"`
}

func homeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", ErrNoHomeDir
	}
	return home, nil
}

func DefaultConfig() (*Config, error) {
	home, err := homeDir()
	if err != nil {
		return nil, err
	}
	return &Config{
		PatchSuffix: zipdest.DefaultPatchSuffix,
		AtomicSwap:  true,
		LogLevel:    "warn",
		Journal: JournalConfig{
			Enabled:  true,
			Path:     filepath.Join(home, ".unpin", "journal.json"),
			KeepLast: 200,
		},
	}, nil
}

func ConfigPath() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".unpin", "config.yaml"), nil
}

// Load reads the config file, falling back to defaults for a missing file
// or missing fields.
func Load() (*Config, error) {
	cfg, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Use defaults
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks values that would otherwise fail deep inside a command.
func (c *Config) Validate() error {
	if c.PatchSuffix == "" {
		return errors.New("patch_suffix must not be empty")
	}
	if filepath.Base(c.PatchSuffix) != c.PatchSuffix {
		return fmt.Errorf("patch_suffix %q must not contain a path separator", c.PatchSuffix)
	}
	if c.LogLevel != "" && !slices.Contains(logging.Levels, c.LogLevel) {
		return fmt.Errorf("log_level %q must be one of %v", c.LogLevel, logging.Levels)
	}
	if c.Journal.KeepLast < 0 {
		return fmt.Errorf("journal.keep_last must be >= 0, got %d", c.Journal.KeepLast)
	}
	return nil
}

// JournalPath returns the expanded journal location.
func (c *Config) JournalPath() (string, error) {
	return ExpandPath(c.Journal.Path)
}

// ArchiveOptions translates the config into zipdest options.
func (c *Config) ArchiveOptions() []zipdest.Option {
	return []zipdest.Option{
		zipdest.WithPatchSuffix(c.PatchSuffix),
		zipdest.WithAtomicSwap(c.AtomicSwap),
	}
}

// ExpandPath expands ~ to home directory
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
