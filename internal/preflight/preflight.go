package preflight

import (
	"errors"
	"fmt"

	"cbzmage/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string `json:"name" yaml:"name"`
	Passed bool   `json:"passed" yaml:"passed"`
	Detail string `json:"detail" yaml:"detail"`
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	// Archives (always checked)
	results = append(results, CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir))
	results = append(results, CheckFreeSpace("Output free space", cfg.Paths.OutputDir, MinFreeBytes))

	// Standalone covers (when configured)
	if cfg.Paths.CoverDir != "" {
		results = append(results, CheckDirectoryAccess("Cover directory", cfg.Paths.CoverDir))
	}

	results = append(results, CheckDirectoryAccess("State directory", cfg.Paths.StateDir))
	return results
}

// Failures joins the failed results into one error, or returns nil.
func Failures(results []Result) error {
	var errs []error
	for _, result := range results {
		if !result.Passed {
			errs = append(errs, fmt.Errorf("%s: %s", result.Name, result.Detail))
		}
	}
	return errors.Join(errs...)
}
