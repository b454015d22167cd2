package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/a3tai/tabledrop/internal/config"
	"github.com/a3tai/tabledrop/internal/convert"
	"github.com/a3tai/tabledrop/internal/pdf"
	"github.com/a3tai/tabledrop/internal/state"
	"github.com/a3tai/tabledrop/internal/storage"
	"github.com/a3tai/tabledrop/internal/watch"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// setupLogging builds the application logger from the loaded configuration
func setupLogging(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

// newStorageClient picks the storage backend from the configuration
func newStorageClient(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (storage.Client, error) {
	if cfg.Storage == config.StorageLocal {
		return storage.NewLocalClient(cfg.LocalRoot)
	}

	return storage.NewDropboxClient(ctx, storage.Credentials{
		AccessToken:  cfg.DropboxToken,
		AppKey:       cfg.DropboxAppKey,
		AppSecret:    cfg.DropboxAppSecret,
		RefreshToken: cfg.DropboxRefreshToken,
	}, logger)
}

// newStateStore opens the processed-files store, in memory unless a
// database path was configured
func newStateStore(cfg *config.Config) (state.Store, error) {
	if cfg.StatePath == "" {
		return state.NewMemoryStore(), nil
	}
	return state.NewSQLiteStore(cfg.StatePath)
}

// newConverter wires the PDF extractor into the page-pair converter
func newConverter(cfg *config.Config, logger *logrus.Logger) *convert.Converter {
	extractor := pdf.NewExtractor(cfg.MaxFileSize)

	return convert.NewConverter(extractor, convert.Options{
		ExcludeColumns:     cfg.ExcludeColumns(),
		FailOnMissingTable: cfg.FailOnMissingTable,
	}, logger)
}

// runWatchMode polls the folder until a shutdown signal arrives
func runWatchMode(ctx context.Context, cancel context.CancelFunc, poller *watch.Poller, logger *logrus.Logger) {
	// Set up signal handling for graceful shutdown
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// Start the poller in a goroutine
	pollerErrCh := make(chan error, 1)
	go func() {
		pollerErrCh <- poller.Run(ctx)
	}()

	// Wait for shutdown signal or poller error
	select {
	case sig := <-signalCh:
		logger.WithField("signal", sig.String()).Info("Initiating graceful shutdown")
		cancel()
		<-pollerErrCh

	case err := <-pollerErrCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.WithError(err).Error("Watcher stopped with error")
			os.Exit(1)
		}
	}

	logger.Info("Watcher stopped successfully")
}

// runOnceMode performs a single sweep over the folder
func runOnceMode(ctx context.Context, poller *watch.Poller, logger *logrus.Logger) {
	result, err := poller.RunOnce(ctx)
	if err != nil {
		logger.WithError(err).Error("Sweep failed")
		os.Exit(1)
	}

	logger.WithFields(logrus.Fields{
		"found":     result.Found,
		"converted": result.Converted,
		"skipped":   result.Skipped,
		"failed":    result.Failed,
	}).Info("Sweep complete")

	if result.Failed > 0 {
		os.Exit(1)
	}
}

// runConvertMode converts a single local file, no storage involved
func runConvertMode(converter *convert.Converter) {
	args := pflag.Args()
	if len(args) < 1 || len(args) > 2 {
		fmt.Fprintf(os.Stderr, "convert mode expects an input file: %s --mode=convert input.pdf [output.xlsx]\n", os.Args[0])
		os.Exit(2)
	}

	input := args[0]
	output := strings.TrimSuffix(input, filepath.Ext(input)) + ".xlsx"
	if len(args) == 2 {
		output = args[1]
	}

	if !converter.Process(input, output) {
		os.Exit(1)
	}
}

func main() {
	// Check for version flag before parsing other flags
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion()
			return
		}
	}

	// Load configuration from flags first
	cfg, err := config.LoadFromFlags()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := setupLogging(cfg)

	// Set version if it was provided during build
	if version != "dev" {
		cfg.Version = version
	}

	if cfg.IsDebug() {
		logger.WithField("config", cfg.String()).Debug("Starting with configuration")
	}

	converter := newConverter(cfg, logger)

	// Convert mode works on a local file and needs no storage or state
	if cfg.IsConvertMode() {
		runConvertMode(converter)
		return
	}

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := newStorageClient(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create storage client")
	}

	store, err := newStateStore(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open state store")
	}
	defer store.Close()

	poller := watch.NewPoller(client, store, converter, watch.Options{
		Folder:   cfg.Folder,
		Interval: cfg.PollInterval,
	}, logger)

	// Handle different modes
	if cfg.IsWatchMode() {
		runWatchMode(ctx, cancel, poller, logger)
	} else {
		runOnceMode(ctx, poller, logger)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("tabledrop\n")
	fmt.Printf("Version: %s\n", version)
	fmt.Printf("Build Time: %s\n", buildTime)
	fmt.Printf("Git Commit: %s\n", gitCommit)
	fmt.Printf("Built with: %s\n", runtime.Version())
}
