package config

import (
	"flag"
	"os"
	"time"

	"critterdex/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the creature catalog API (default from Config)
//	-s string   storage backend: sqlite, file or memory (default from Config)
//	-d string   directory for local storage (default from Config)
//	-t int      catalog HTTP timeout in seconds (default from Config)
//
// Note: The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	// Filter args to include only those handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-s", "-d", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the creature catalog API")
	fs.StringVar(&cfg.StorageBackend, "s", cfg.StorageBackend, "storage backend: sqlite, file or memory")
	fs.StringVar(&cfg.StorageDir, "d", cfg.StorageDir, "directory for local storage")
	httpTimeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "catalog HTTP timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
}
