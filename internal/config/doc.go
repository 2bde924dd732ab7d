// Package config loads, normalizes, and validates gamesort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and applies environment overrides such as
// GAMESORT_TRANSLATOR_API_KEY. The Config type centralizes every knob the CLI
// and pipeline need so the cache location, collaborator credentials, and
// worker sizing are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
