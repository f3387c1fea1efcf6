// Package config loads the watcher's YAML configuration.
//
// Values may reference environment variables with ${VAR}; they are expanded
// before parsing, so secrets can live in the environment or a .env file.
package config
