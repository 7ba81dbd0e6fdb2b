package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateConversion(); err != nil {
		return err
	}
	if err := c.validateBuffers(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	if c.Paths.CoverDir != "" && c.Paths.CoverDir == c.Paths.StateDir {
		return errors.New("paths.cover_dir must differ from paths.state_dir")
	}
	return nil
}

func (c *Config) validateConversion() error {
	if c.Conversion.Workers <= 0 {
		return errors.New("conversion.workers must be positive")
	}
	if !slices.Contains(CompressionLevels, c.Conversion.Compression) {
		return fmt.Errorf("conversion.compression must be one of %s, got %q", strings.Join(CompressionLevels, ", "), c.Conversion.Compression)
	}
	return nil
}

func (c *Config) validateBuffers() error {
	if err := ensurePositiveMap(map[string]int{
		"buffers.min_capacity_kib": c.Buffers.MinCapacityKiB,
		"buffers.low_water_kib":    c.Buffers.LowWaterKiB,
	}); err != nil {
		return err
	}
	if c.Buffers.LowWaterKiB >= c.Buffers.MinCapacityKiB {
		return errors.New("buffers.low_water_kib must be smaller than buffers.min_capacity_kib")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		if values[key] <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
