package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/CTAG07/apidocs/pkg/build"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

const usage = `usage: apidocs [build|serve] [flags]

Commands:
  build   render every page into the output directory (default)
  serve   run the preview server

Flags:
`

// options are the command line settings shared by both commands.
type options struct {
	command    string
	configPath string
	force      bool
	prune      bool
}

func parseArgs(args []string, defaultConfig string) (options, error) {
	opts := options{command: "build"}
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		opts.command = args[0]
		args = args[1:]
	}

	fs := flag.NewFlagSet("apidocs", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usage)
		fs.PrintDefaults()
	}
	fs.StringVar(&opts.configPath, "config", defaultConfig, "path to the JSON or YAML config file")
	fs.BoolVar(&opts.force, "force", false, "rewrite every page even if unchanged")
	fs.BoolVar(&opts.prune, "prune", false, "remove output files of pages that no longer exist")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.command != "build" && opts.command != "serve" {
		fs.Usage()
		return options{}, fmt.Errorf("unknown command %q", opts.command)
	}
	return opts, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	baseLogger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	overrides, err := loadEnv()
	if err != nil {
		baseLogger.Error("Failed to read environment", "error", err)
		os.Exit(1)
	}

	opts, err := parseArgs(os.Args[1:], overrides.ConfigPath)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		baseLogger.Error("Invalid arguments", "error", err)
		os.Exit(2)
	}

	if opts.command == "build" {
		if err = runBuild(opts, overrides); err != nil {
			baseLogger.Error("Build failed", "error", err)
			os.Exit(1)
		}
		return
	}

	actionChan := make(chan string, 1)

	go func() {
		osSignalChan := make(chan os.Signal, 1)
		signal.Notify(osSignalChan, syscall.SIGINT, syscall.SIGTERM)
		<-osSignalChan // Wait for a signal
		baseLogger.Info("OS signal received, initiating shutdown.")
		actionChan <- actionShutdown
	}()

	for {
		action, err := runServer(opts, overrides, actionChan)
		if err != nil {
			baseLogger.Error("An error occurred during server run, shutting down.", "error", err)
			os.Exit(1)
		}

		if action == actionRestart {
			baseLogger.Info("--- Server Restarting ---")
			continue
		}
		break
	}

	baseLogger.Info("apidocs has shut down.")
}

// setup loads the configuration, applies the environment overrides and
// creates the logger for one run.
func setup(opts options, overrides EnvOverrides) (*Config, *slog.Logger, error) {
	config, err := LoadConfig(opts.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	overrides.apply(config)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(config.Server.LogLevel)}))
	return config, logger, nil
}

// runBuild renders the site once.
func runBuild(opts options, overrides EnvOverrides) error {
	config, logger, err := setup(opts, overrides)
	if err != nil {
		return err
	}

	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	tm, builder, err := newSite(config, logger, db)
	if err != nil {
		return err
	}
	defer builder.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_, err = builder.Build(ctx, tm.GetPageNames(), build.Options{
		Force: opts.force,
		Prune: opts.prune,
		Data:  TemplateInput{Version: Version, Site: config.Templates.Site},
	})
	return err
}

// runServer hosts the preview server, and returns whenever the server is shutdown or restarted.
func runServer(opts options, overrides EnvOverrides, actionChan chan string) (string, error) {
	config, logger, err := setup(opts, overrides)
	if err != nil {
		return "", err
	}
	logger.Info("Starting server cycle...")

	db, err := initDB(config.Server.DatabasePath)
	if err != nil {
		return "", fmt.Errorf("failed to initialize database: %w", err)
	}

	cm := NewConfigManager(config, opts.configPath, logger)
	server, err := NewServer(cm, logger, db, actionChan)
	if err != nil {
		_ = db.Close()
		return "", fmt.Errorf("failed to create server object: %w", err)
	}

	httpServer := &http.Server{
		Addr:              config.Server.Addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting preview server", "address", httpServer.Addr, "output_dir", config.Server.OutputDir)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Preview server failed", "error", err)
			actionChan <- actionShutdown
		}
	}()

	action := <-actionChan // Block here until API or OS signal sends an action.

	logger.Info("Stopping server for " + action + "...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err = httpServer.Shutdown(ctx); err != nil {
		logger.Error("Preview server shutdown failed", "error", err)
	}
	logger.Info("HTTP server stopped.")

	server.Close()
	logger.Info("Closing database connection.")
	if err = db.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	}

	return action, nil
}
