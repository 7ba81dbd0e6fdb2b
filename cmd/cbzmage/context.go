package main

import (
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cbzmage/internal/config"
)

// noConfigAnnotation marks commands that must run without a loadable config,
// such as `config init`.
const noConfigAnnotation = "cbzmage/no-config"

type loadedConfig struct {
	cfg   *config.Config
	path  string
	found bool
}

// commandContext carries state shared by every subcommand of one invocation.
// The config file is read at most once.
type commandContext struct {
	configFile string
	verbose    bool

	load func() (loadedConfig, error)
}

func newCommandContext() *commandContext {
	ctx := &commandContext{}
	ctx.load = sync.OnceValues(func() (loadedConfig, error) {
		cfg, path, found, err := config.Load(strings.TrimSpace(ctx.configFile))
		if err != nil {
			return loadedConfig{}, err
		}
		if ctx.verbose {
			cfg.Logging.Level = "debug"
		}
		return loadedConfig{cfg: cfg, path: path, found: found}, nil
	})
	return ctx
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	loaded, err := c.load()
	return loaded.cfg, err
}

// configSource describes where the config came from for status output. ok is
// false when no file exists and defaults are in use.
func (c *commandContext) configSource() (path string, ok bool) {
	loaded, err := c.load()
	if err != nil {
		return "", false
	}
	return loaded.path, loaded.found
}

// conversionConfig returns a copy of the loaded config with flag overrides
// applied. The shared config is never modified.
func (c *commandContext) conversionConfig(flags conversionFlags) (*config.Config, error) {
	base, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	cfg := *base
	if flags.workers > 0 {
		cfg.Conversion.Workers = flags.workers
	}
	if value := strings.TrimSpace(flags.compression); value != "" {
		cfg.Conversion.Compression = strings.ToLower(value)
	}
	if value := strings.TrimSpace(flags.outputDir); value != "" {
		cfg.Paths.OutputDir = expandOrKeep(value)
	}
	if value := strings.TrimSpace(flags.coverDir); value != "" {
		cfg.Paths.CoverDir = expandOrKeep(value)
	}
	return &cfg, nil
}

func expandOrKeep(path string) string {
	expanded, err := config.ExpandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func skipsConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if _, ok := c.Annotations[noConfigAnnotation]; ok {
			return true
		}
	}
	return false
}
