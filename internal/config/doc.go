// Package config loads, normalizes, and validates archivist configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ARCHIVIST_CONTACT. The Config type centralizes the concurrency caps, batch
// sizes and timeouts the archive pipeline needs so they are passed to each
// component explicitly instead of living in package-level variables.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, clamped limits, and clear validation errors.
package config
