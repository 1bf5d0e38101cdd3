// Package config loads, normalizes, and validates handoff configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HANDOFF_WATCH_DIR and XDG_DOWNLOAD_DIR. The browser launches the host
// without flags, so every setting has a usable default and the config file is
// optional.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
