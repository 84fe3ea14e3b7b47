package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/storeadmin/internal/flagx"
)

var ownedFlags = []string{"-a", "-s", "-i", "-r", "-p", "-l"}

// parseFlags populates Config fields from command-line flags.
//
// The function filters os.Args to only include the flags it knows about,
// using flagx.FilterArgs, to avoid interference with other components.
// Parse errors panic.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], ownedFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the store API")
	fs.StringVar(&cfg.StoragePath, "s", cfg.StoragePath, "path of the local session database")
	pollInterval := fs.Int("i", int(cfg.LogoutPollInterval.Seconds()), "logout signal poll interval (in seconds)")
	fs.Float64Var(&cfg.RequestsPerSecond, "r", cfg.RequestsPerSecond, "API requests per second, 0 for unlimited")
	fs.IntVar(&cfg.PageSize, "p", cfg.PageSize, "products per page")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// whole seconds only; keep a finer interval from JSON or env unless -i is given
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "i" {
			cfg.LogoutPollInterval = time.Duration(*pollInterval) * time.Second
		}
	})
}
