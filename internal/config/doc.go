// Package config loads, normalizes, and validates Scribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type centralizes every knob
// the daemon and CLI need, allowing the watch/transcript directories and the
// external transcriber invocation to be discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical audio extensions, and clear validation errors.
package config
