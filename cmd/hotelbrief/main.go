package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/hotelbrief/hotelbrief/internal/app"
	"github.com/hotelbrief/hotelbrief/internal/common"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

var (
	configFile   = flag.String("config", "", "Configuration file path")
	configFileC  = flag.String("c", "", "Configuration file path (shorthand)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")

	// One-off refresh of a single hotel; the hotel is registered first.
	hotelID   = flag.String("hotel-id", "", "Hotel identifier for a single-hotel run")
	hotelName = flag.String("hotel-name", "", "Hotel name for a single-hotel run")
	hotelURL  = flag.String("url", "", "Hotel website seed URL for a single-hotel run")
)

func main() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Hotelbrief version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file -> env)
	// 2. Initialize logger
	// 3. Print banner
	configPath := *configFile
	if *configFileC != "" {
		configPath = *configFileC
	}
	if configPath == "" {
		if _, err := os.Stat("hotelbrief.toml"); err == nil {
			configPath = "hotelbrief.toml"
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		tempLogger := common.GetLogger()
		tempLogger.Fatal().Str("path", configPath).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config_file", configPath).
		Str("environment", config.Environment).
		Str("version", common.GetFullVersion()).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	switch {
	case *hotelURL != "":
		err = runSingleHotel(ctx, application)
	case config.Schedule.Enabled:
		err = runScheduled(ctx, application)
	default:
		err = application.RunAll(ctx)
	}

	if err != nil && err != context.Canceled {
		logger.Error().Err(err).Msg("Run failed")
		application.Close()
		os.Exit(1)
	}
	logger.Info().Msg("Shutting down")
}

// runSingleHotel registers the hotel from the CLI flags and refreshes it once
func runSingleHotel(ctx context.Context, application *app.App) error {
	if *hotelName == "" {
		return fmt.Errorf("-hotel-name is required with -url")
	}

	id := *hotelID
	if id == "" {
		id = uuid.NewString()
	}

	now := time.Now().UTC()
	hotel := &models.Hotel{
		ID:        id,
		Name:      *hotelName,
		URL:       *hotelURL,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := application.Hotels.Upsert(ctx, hotel); err != nil {
		return fmt.Errorf("failed to register hotel: %w", err)
	}

	return application.RunHotel(ctx, hotel)
}

// runScheduled starts the cron scheduler and blocks until the context ends
func runScheduled(ctx context.Context, application *app.App) error {
	if err := application.StartScheduler(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	<-ctx.Done()
	return nil
}
