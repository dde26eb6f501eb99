package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hostware/comhost/engine"
	"github.com/hostware/comhost/registry"
	"github.com/hostware/comhost/shim"
)

// Config is the comhost CLI configuration. Values layer in order:
// built-in defaults, then the YAML file, then COMHOST_* environment
// variables, then explicit flags.
type Config struct {
	Shim      string   `yaml:"shim"`
	Roots     []string `yaml:"roots"`
	Extension string   `yaml:"extension"`
	Hive      string   `yaml:"hive"`
	Signed    *bool    `yaml:"signed"`
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("COMHOST_SHIM"); val != "" {
		cfg.Shim = val
	}
	if val := os.Getenv("COMHOST_HIVE"); val != "" {
		cfg.Hive = val
	}
	// Installation roots also honor COMHOST_ROOT, consumed by the
	// locator itself when no explicit roots are given.
}

// resolveConfig assembles the effective configuration for a command
// invocation from file, environment, and flags.
func resolveConfig(cmd *cobra.Command) (*Config, error) {
	cfg := &Config{}
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	applyEnvOverrides(cfg)

	if cmd.Flags().Changed("shim") || cfg.Shim == "" {
		cfg.Shim = shimPath
	}
	if cmd.Flags().Changed("root") || len(cfg.Roots) == 0 {
		cfg.Roots = roots
	}
	if cmd.Flags().Changed("ext") || cfg.Extension == "" {
		cfg.Extension = managedExt
	}
	if cmd.Flags().Changed("hive") || cfg.Hive == "" {
		cfg.Hive = hivePath
	}
	if cmd.Flags().Changed("signed") {
		v := signedFlag
		cfg.Signed = &v
	}

	if cfg.Shim == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("no shim path given and executable path unavailable: %w", err)
		}
		cfg.Shim = exe
	}
	if cfg.Hive == "" {
		cfg.Hive = filepath.Join(filepath.Dir(cfg.Shim), "comhost.hive")
	}
	return cfg, nil
}

// newShim builds a shim bound to the resolved configuration. The
// returned store is non-nil only when the command needs the hive; it is
// the caller's to close.
func newShim(cmd *cobra.Command, withStore bool) (*shim.Shim, registry.Store, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	opts := shim.Options{
		Path:             cfg.Shim,
		Roots:            cfg.Roots,
		ManagedExtension: cfg.Extension,
		Signed:           cfg.Signed,
		Session:          engine.Default(),
	}

	var store registry.Store
	if withStore {
		store, err = registry.NewSQLiteStore(cfg.Hive)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open hive %q: %w", cfg.Hive, err)
		}
		opts.Store = store
	}

	s, err := shim.New(opts)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, nil, err
	}
	return s, store, nil
}
