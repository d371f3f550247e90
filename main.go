package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/peterbourgon/ff/v3/ffcli"
	log "github.com/sirupsen/logrus"

	"bg-window/internal/app"
	"bg-window/internal/config"
	"bg-window/internal/instance"
	"bg-window/internal/logging"
	"bg-window/internal/overlay"
	"bg-window/internal/update"
	"bg-window/internal/update/feed"
	"bg-window/internal/window"
)

// Set at build time with -ldflags "-X main.version=... -X main.feedURL=...".
var (
	version = "dev"
	feedURL = ""
)

func main() {
	cfg := defaultConfig()

	rootFlagSet := flag.NewFlagSet("bg-window", flag.ExitOnError)
	cfg.RegisterFlags(rootFlagSet)

	runFlagSet := flag.NewFlagSet("bg-window run", flag.ExitOnError)
	cfg.RegisterFlags(runFlagSet)

	runCmd := &ffcli.Command{
		Name:       "run",
		ShortUsage: "bg-window run [flags]",
		ShortHelp:  "Show the screen comforter window",
		FlagSet:    runFlagSet,
		Options:    config.Options(),
		Exec: func(ctx context.Context, args []string) error {
			return execRun(ctx, &cfg, os.Args[1:])
		},
	}

	versionCmd := &ffcli.Command{
		Name:       "version",
		ShortUsage: "bg-window version",
		ShortHelp:  "Print the version",
		Exec: func(ctx context.Context, args []string) error {
			fmt.Println(version)
			return nil
		},
	}

	rootCmd := &ffcli.Command{
		ShortUsage:  "bg-window [flags] <subcommand>",
		ShortHelp:   "A full-screen fog overlay that keeps itself up to date",
		LongHelp:    "Controls:\n  f               Toggle fog\n  d               Toggle dim\n  Arrow Up/Down   Adjust fog density\n  1-9             Follow a link\n  m               Minimize\n  q / Esc         Close",
		FlagSet:     rootFlagSet,
		Options:     config.Options(),
		Subcommands: []*ffcli.Command{runCmd, versionCmd},
		Exec: func(ctx context.Context, args []string) error {
			return execRun(ctx, &cfg, os.Args[1:])
		},
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ParseAndRun(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// defaultConfig seeds the configuration with the values baked in at build
// time. Flags, env and the config file still override them.
func defaultConfig() config.Config {
	cfg := config.Default()
	cfg.FeedURL = feedURL
	return cfg
}

func execRun(ctx context.Context, cfg *config.Config, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := logging.Init(cfg.EffectiveLogLevel(), cfg.LogFile); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	log.WithFields(log.Fields{
		"version": version,
		"dev":     cfg.Dev,
		"feed":    cfg.FeedURL,
	}).Info("[main] starting")

	arbiter := instance.New(cfg.LockDir)

	var assets fs.FS = overlay.Assets()
	if cfg.AssetsDir != "" {
		assets = os.DirFS(cfg.AssetsDir)
	}
	host := overlay.NewHost(assets)

	var updater update.Updater = noUpdates{}
	if cfg.UpdatesEnabled() {
		f, err := feed.New(feed.Config{
			URL:            cfg.FeedURL,
			CurrentVersion: version,
			StagingDir:     stagingDir(cfg.LockDir),
			Args:           args,
			BeforeQuit: func() {
				if w := host.Current(); w != nil {
					w.Close()
				}
				if err := arbiter.Close(); err != nil {
					log.Warnf("[autoUpdater] release instance lock: %v", err)
				}
			},
		})
		if err != nil {
			return fmt.Errorf("creating update feed: %w", err)
		}
		updater = f
	}

	a := app.New(app.Options{
		Window:         cfg.Window,
		Termination:    window.TerminationPolicy{PersistWithoutWindows: cfg.PersistWithoutWindows},
		UpdatesEnabled: cfg.UpdatesEnabled(),
	}, app.Deps{
		Arbiter:  arbiter,
		Host:     host,
		Opener:   window.SystemOpener{},
		Updater:  updater,
		Prompter: overlay.NewPrompter(host, cfg.Window.Title),
	})

	err := a.Run(ctx, args)
	log.Info("[main] exiting")
	return err
}

func stagingDir(lockDir string) string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "bg-window", "updates")
	}
	return filepath.Join(lockDir, "updates")
}

// noUpdates stands in for the feed when updates are disabled. The
// controller never calls it in that case.
type noUpdates struct{}

func (noUpdates) CheckForUpdatesAndNotify(context.Context, func(update.Event)) error { return nil }

func (noUpdates) QuitAndInstall() error { return feed.ErrNothingStaged }

func (noUpdates) InstallOnQuit() error { return nil }
