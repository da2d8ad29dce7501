// Package config loads runtime configuration for the critterdex CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the creature catalog API
//	-s string   storage backend (sqlite, file or memory)
//	-d string   directory for local storage
//	-t int      catalog HTTP timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "100ms" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.critterdex.example/v2",
//	  "storage_backend": "sqlite",
//	  "storage_dir": ".critterdex",
//	  "http_timeout": "10s",
//	  "tombstone_delay": "100ms",
//	  "poll_interval": "150ms"
//	}
//
// Primary API
//
//   - type Config                     — runtime settings for the CLI
//   - func LoadConfig() *Config       — builds Config by applying defaults, JSON, then flags
//   - func (*Config) LoadDefaults()   — sets sensible defaults
//
// Note: This package does not read environment variables directly; use the
// JSON file or flags to configure values.
package config
