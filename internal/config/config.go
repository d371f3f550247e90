// Package config holds the run-time settings of bg-window. Values come from
// flags, BG_WINDOW_* environment variables or a plain config file, in that
// order of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"

	"github.com/peterbourgon/ff/v3"

	"bg-window/internal/logging"
	"bg-window/internal/window"
)

// EnvPrefix is the prefix of environment variables mirroring the flags.
const EnvPrefix = "BG_WINDOW"

// Config is the parsed configuration.
type Config struct {
	// Dev disables update checks, like an unpackaged build.
	Dev bool
	// Debug forces debug logging.
	Debug bool

	LogLevel string
	LogFile  string
	LockDir  string
	FeedURL  string

	// AssetsDir overrides the embedded packaged documents.
	AssetsDir string

	PersistWithoutWindows bool
	Window                window.Options
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		LogLevel:              "info",
		LogFile:               logging.DefaultPath(),
		LockDir:               defaultLockDir(),
		PersistWithoutWindows: runtime.GOOS == "darwin",
		Window:                window.DefaultOptions(),
	}
}

func defaultLockDir() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "bg-window")
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "bg-window", "run")
	}
	return filepath.Join(os.TempDir(), "bg-window")
}

// RegisterFlags binds c to fs. Current values of c are the defaults.
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.Dev, "dev", c.Dev, "Development run: never check for updates")
	fs.BoolVar(&c.Debug, "debug", c.Debug, "Debug logging")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (trace, debug, info, warn, error)")
	fs.StringVar(&c.LogFile, "log-file", c.LogFile, "Log file path, or \"console\" for stderr")
	fs.StringVar(&c.LockDir, "lock-dir", c.LockDir, "Directory holding the single-instance lock")
	fs.StringVar(&c.FeedURL, "feed-url", c.FeedURL, "Update feed base URL serving latest.yml (empty disables updates)")
	fs.StringVar(&c.AssetsDir, "assets-dir", c.AssetsDir, "Directory with packaged documents (defaults to the embedded ones)")
	fs.BoolVar(&c.PersistWithoutWindows, "persist-without-windows", c.PersistWithoutWindows, "Keep running after the window is closed")
	fs.StringVar(&c.Window.Title, "title", c.Window.Title, "Window title")
	fs.IntVar(&c.Window.MinWidth, "min-width", c.Window.MinWidth, "Minimum window width in cells")
	fs.IntVar(&c.Window.MinHeight, "min-height", c.Window.MinHeight, "Minimum window height in cells")
	_ = fs.String("config", "", "Config file (plain \"flag value\" lines)")
}

// Options returns the ff options used to parse a flag set bound with
// RegisterFlags.
func Options() []ff.Option {
	return []ff.Option{
		ff.WithEnvVarPrefix(EnvPrefix),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
		ff.WithAllowMissingConfigFile(true),
	}
}

// EffectiveLogLevel returns the level to log at.
func (c Config) EffectiveLogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.LogLevel
}

// UpdatesEnabled reports whether update checks may run at all.
func (c Config) UpdatesEnabled() bool {
	return !c.Dev && c.FeedURL != ""
}

// Validate checks the values that flags cannot constrain.
func (c Config) Validate() error {
	var errs []error
	if c.LockDir == "" {
		errs = append(errs, errors.New("lock-dir must not be empty"))
	}
	if c.Window.MinWidth <= 0 || c.Window.MinHeight <= 0 {
		errs = append(errs, fmt.Errorf("minimum size %dx%d must be positive", c.Window.MinWidth, c.Window.MinHeight))
	}
	if c.FeedURL != "" {
		u, err := url.Parse(c.FeedURL)
		if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
			errs = append(errs, fmt.Errorf("feed-url %q must be an http(s) URL", c.FeedURL))
		}
	}
	return errors.Join(errs...)
}
