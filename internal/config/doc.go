// Package config loads, normalizes, and validates mediascan configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEDIASCAN_LIBRARY_DIR. The Config type centralizes every knob the CLI needs,
// so the library root, the catalogue database, and the analysis pipeline
// limits are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
