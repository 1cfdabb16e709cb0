package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/common"
	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/models"
	"github.com/hotelbrief/hotelbrief/internal/services/crawler"
	"github.com/hotelbrief/hotelbrief/internal/services/extraction"
	"github.com/hotelbrief/hotelbrief/internal/services/llm"
	"github.com/hotelbrief/hotelbrief/internal/services/markdown"
	"github.com/hotelbrief/hotelbrief/internal/services/scheduler"
	"github.com/hotelbrief/hotelbrief/internal/storage/sqlite"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	db      *sqlite.SQLiteDB
	Pages   interfaces.PageStorage
	Market  interfaces.MarketDataStorage
	Hotels  interfaces.HotelStorage
	Crawler *crawler.Service

	// Nil in unit-test scrape mode; aggregation is not wired then.
	LLM       interfaces.LLMClient
	Collector *extraction.Collector

	Scheduler *scheduler.Scheduler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	db, err := sqlite.NewSQLiteDB(logger, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db
	app.Pages = sqlite.NewPageStorage(db, logger)
	app.Market = sqlite.NewMarketDataStorage(db, logger)
	app.Hotels = sqlite.NewHotelStorage(db, logger)

	converter := markdown.NewConverter(logger)

	if app.scrapeEnabled() {
		crawlerService, err := crawler.NewService(&cfg.Crawler, app.Pages, converter, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize crawler: %w", err)
		}
		app.Crawler = crawlerService
	}

	if app.aggregateEnabled() {
		client, err := llm.NewPerplexityClient(&cfg.LLM, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("failed to initialize llm client: %w", err)
		}
		app.LLM = client
		app.Collector = extraction.NewCollector(
			app.Pages,
			app.Market,
			extraction.NewExtractor(client, logger),
			extraction.NewRefiner(client, logger),
			extraction.NewAdjudicator(client, logger),
			extraction.NewWriter(app.Market, extraction.NewStructurer(client, logger), logger),
			cfg.LLM.MaxParallel,
			logger,
		)
	}

	if cfg.Schedule.Enabled {
		app.Scheduler = scheduler.NewScheduler(func() error {
			return app.RunAll(context.Background())
		}, logger)
	}

	logger.Info().
		Str("db_path", cfg.Storage.SQLite.Path).
		Str("page_table", cfg.Storage.PageTable).
		Str("data_table", cfg.Storage.DataTable).
		Bool("scrape", app.scrapeEnabled()).
		Bool("aggregate", app.aggregateEnabled()).
		Msg("Application initialized")

	return app, nil
}

// scrapeEnabled reports whether this run performs the crawl phase
func (a *App) scrapeEnabled() bool {
	if !a.Config.UnitTest {
		return true
	}
	return a.Config.UnitTestModule == "scrape"
}

// aggregateEnabled reports whether this run performs the extraction phase
func (a *App) aggregateEnabled() bool {
	if !a.Config.UnitTest {
		return true
	}
	return a.Config.UnitTestModule == "aggregate"
}

// Scrape crawls one hotel website to completion
func (a *App) Scrape(ctx context.Context, hotelID, seedURL string) (*crawler.RunSummary, error) {
	if a.Crawler == nil {
		return nil, fmt.Errorf("scrape phase is not enabled in this run")
	}
	return a.Crawler.Crawl(ctx, hotelID, seedURL)
}

// Aggregate distills the hotel's changed pages into its market-data record
func (a *App) Aggregate(ctx context.Context, hotelID, hotelName string) error {
	if a.Collector == nil {
		return fmt.Errorf("aggregate phase is not enabled in this run")
	}
	return a.Collector.Aggregate(ctx, hotelID, hotelName)
}

// RunHotel refreshes one hotel: crawl to completion, then aggregate.
// In unit-test mode only the selected phase runs.
func (a *App) RunHotel(ctx context.Context, hotel *models.Hotel) error {
	if hotel == nil {
		return fmt.Errorf("hotel must not be nil")
	}

	start := time.Now()
	a.Logger.Info().
		Str("hotel_id", hotel.ID).
		Str("hotel_name", hotel.Name).
		Str("url", hotel.URL).
		Msg("Hotel refresh started")

	if a.Crawler != nil {
		summary, err := a.Crawler.Crawl(ctx, hotel.ID, hotel.URL)
		if err != nil {
			return fmt.Errorf("crawl failed for hotel %s: %w", hotel.ID, err)
		}
		if summary.PagesScraped == 0 {
			a.Logger.Warn().
				Str("hotel_id", hotel.ID).
				Int("failed", summary.PagesFailed).
				Msg("Crawl produced no pages")
		}
	}

	if a.Collector != nil {
		if err := a.Collector.Aggregate(ctx, hotel.ID, hotel.Name); err != nil {
			return fmt.Errorf("aggregation failed for hotel %s: %w", hotel.ID, err)
		}
	}

	a.Logger.Info().
		Str("hotel_id", hotel.ID).
		Dur("duration", time.Since(start)).
		Msg("Hotel refresh finished")
	return nil
}

// RunAll refreshes every active hotel sequentially. A failing hotel is
// logged and the loop continues; the first context error stops the run.
func (a *App) RunAll(ctx context.Context) error {
	hotels, err := a.Hotels.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list hotels: %w", err)
	}
	if len(hotels) == 0 {
		a.Logger.Warn().Msg("No active hotels configured")
		return nil
	}

	start := time.Now()
	failed := 0
	for _, hotel := range hotels {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := a.RunHotel(ctx, hotel); err != nil {
			failed++
			a.Logger.Error().
				Str("hotel_id", hotel.ID).
				Err(err).
				Msg("Hotel refresh failed")
		}
	}

	a.logLLMStats()
	a.Logger.Info().
		Int("hotels", len(hotels)).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Refresh run finished")

	if failed == len(hotels) {
		return fmt.Errorf("all %d hotel refreshes failed", failed)
	}
	return nil
}

// StartScheduler begins periodic refreshes when [schedule] is enabled
func (a *App) StartScheduler() error {
	if a.Scheduler == nil {
		return nil
	}
	return a.Scheduler.Start(a.Config.Schedule.Cron)
}

// logLLMStats reports the provider request counters for the finished run
func (a *App) logLLMStats() {
	type statser interface {
		Stats() (requests, failures int64)
	}
	if client, ok := a.LLM.(statser); ok {
		requests, failures := client.Stats()
		a.Logger.Info().
			Int64("llm_requests", requests).
			Int64("llm_failures", failures).
			Msg("LLM usage")
	}
}

// Close releases the browser pool, scheduler, and database
func (a *App) Close() {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Crawler != nil {
		a.Crawler.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Database close failed")
		}
	}
	a.Logger.Info().Msg("Application shut down")
}
