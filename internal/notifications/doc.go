// Package notifications delivers operation outcomes via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and degrades to a no-op when no topic is set. Only operations a
// user is likely to walk away from (installs and batch runs) and failures
// produce a message; probes and raw tool runs stay quiet.
package notifications
