// Command crossarb scans Polymarket and Kalshi for equivalent binary markets
// and reports pairs whose combined prices lock in a riskless profit.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alanyoungcy/crossarb/internal/app"
	"github.com/alanyoungcy/crossarb/internal/config"
	"github.com/alanyoungcy/crossarb/internal/crypto"
)

func main() {
	configPath := flag.String("config", "", "path to TOML configuration file (built-in defaults when empty)")
	once := flag.Bool("once", false, "run a single scan and exit (overrides mode)")
	mode := flag.String("mode", "", "once, continuous or full (overrides config)")
	interval := flag.Duration("interval", 0, "scan interval, e.g. 60s (overrides scan.interval)")
	sealKey := flag.String("seal-key", "", "encrypt this PEM key file with $CROSSARB_KALSHI_RSA_KEY_PASSWORD, print the result and exit")
	flag.Parse()

	if *sealKey != "" {
		if err := sealKeyFile(*sealKey, os.Getenv("CROSSARB_KALSHI_RSA_KEY_PASSWORD")); err != nil {
			fmt.Fprintf(os.Stderr, "seal-key: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Logs go to stderr so once-mode reports on stdout stay clean.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config",
			slog.String("path", *configPath),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	if *mode != "" {
		cfg.Mode = *mode
	}
	if *once {
		cfg.Mode = "once"
	}
	if *interval > 0 {
		cfg.Scan.Interval = config.Duration(*interval)
	}

	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("crossarb starting",
		slog.String("mode", cfg.Mode),
		slog.String("config", *configPath),
		slog.Any("settings", config.RedactedConfig(cfg)),
	)

	application := app.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	err = application.Run(ctx)
	application.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("application exited with error", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}

	logger.Info("crossarb stopped", slog.Duration("uptime", time.Since(start)))
}

func sealKeyFile(path, password string) error {
	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if crypto.IsSealed(pemBytes) {
		return errors.New("key file is already sealed")
	}
	blob, err := crypto.Seal(pemBytes, password)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(append(blob, '\n'))
	return err
}
