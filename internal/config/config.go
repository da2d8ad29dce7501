package config

import "time"

// Storage backend selectors.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendMemory = "memory"
)

// Config holds runtime settings for the critterdex CLI.
//
// Fields:
//   - APIBaseURL: root of the remote creature catalog API.
//   - StorageBackend: which keystore implementation persists local state
//     (sqlite, file, or memory — memory is volatile and meant for tests).
//   - StorageDir: directory holding the keystore database / key files and
//     the catalog cache.
//   - HTTPTimeout: per-request timeout for catalog calls.
//   - TombstoneDelay: how long a logged-out session record lingers before
//     the key is deleted.
//   - PollInterval: sqlite keystore foreign-change poll interval.
type Config struct {
	APIBaseURL     string
	StorageBackend string
	StorageDir     string
	HTTPTimeout    time.Duration
	TombstoneDelay time.Duration
	PollInterval   time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://api.critterdex.example/v2"
	c.StorageBackend = BackendSQLite
	c.StorageDir = ".critterdex"
	c.HTTPTimeout = 10 * time.Second
	c.TombstoneDelay = 100 * time.Millisecond
	c.PollInterval = 150 * time.Millisecond
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
