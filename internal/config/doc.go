// Package config loads, normalizes, and validates framebridge configuration data.
//
// It supplies defaults, expands user paths (including tilde shortcuts), reads
// TOML files, and honours environment fallbacks such as FRAMEBRIDGE_TOOL_PATH
// and FRAMEBRIDGE_PYTHON. The Config type centralizes every knob the daemon and
// CLI need: where state and logs live, which executables to probe and in what
// order, and how long each kind of external process may run.
//
// Always obtain settings through this package so downstream code receives
// expanded paths, ordered candidate lists, and clear validation errors.
package config
