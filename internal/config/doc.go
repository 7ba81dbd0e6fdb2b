// Package config loads, normalizes, and validates cbzmage configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CBZMAGE_OUTPUT_DIR and CBZMAGE_WORKERS. The Config type centralizes every
// knob the converter needs so output, cover, and state directories are
// resolved in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical compression and log format names, and clear
// validation errors.
package config
