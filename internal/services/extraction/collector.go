package extraction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/hotelbrief/hotelbrief/internal/interfaces"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

// Collector orchestrates the change-driven aggregation for one hotel:
// dirty pages feed the extractor, snippets pool into category buckets,
// buckets refine into field values, and the adjudicated merge lands in the
// Market-Data record. A page failure is logged and skipped; only scraping
// having finished beforehand is assumed.
type Collector struct {
	pages       interfaces.PageStorage
	market      interfaces.MarketDataStorage
	extractor   *Extractor
	refiner     *Refiner
	adjudicator *Adjudicator
	writer      *Writer
	maxParallel int
	logger      arbor.ILogger
}

// NewCollector wires the aggregation pipeline
func NewCollector(
	pages interfaces.PageStorage,
	market interfaces.MarketDataStorage,
	extractor *Extractor,
	refiner *Refiner,
	adjudicator *Adjudicator,
	writer *Writer,
	maxParallel int,
	logger arbor.ILogger,
) *Collector {
	if maxParallel <= 0 {
		maxParallel = 8
	}
	return &Collector{
		pages:       pages,
		market:      market,
		extractor:   extractor,
		refiner:     refiner,
		adjudicator: adjudicator,
		writer:      writer,
		maxParallel: maxParallel,
		logger:      logger,
	}
}

// Aggregate runs the full extraction-and-merge pipeline for one hotel
func (c *Collector) Aggregate(ctx context.Context, hotelID, hotelName string) error {
	if hotelID == "" {
		return fmt.Errorf("hotel id must not be empty")
	}

	start := time.Now()

	dirty, err := c.pages.ListDirty(ctx, hotelID)
	if err != nil {
		return fmt.Errorf("failed to list dirty pages: %w", err)
	}
	if len(dirty) == 0 {
		c.logger.Info().
			Str("hotel_id", hotelID).
			Msg("No changed pages, skipping aggregation")
		return nil
	}

	c.logger.Info().
		Str("hotel_id", hotelID).
		Int("dirty_pages", len(dirty)).
		Msg("Aggregation started")

	buckets := c.collectBuckets(ctx, hotelID, hotelName, dirty)

	refined := c.refineFields(ctx, hotelName, buckets)

	existing, err := c.market.Get(ctx, hotelID)
	if err != nil {
		return fmt.Errorf("failed to load market data: %w", err)
	}

	merged := c.adjudicate(ctx, existing, refined)

	if err := c.writer.Write(ctx, hotelID, existing, merged, refined); err != nil {
		return err
	}

	c.logger.Info().
		Str("hotel_id", hotelID).
		Int("fields_updated", len(merged)).
		Dur("duration", time.Since(start)).
		Msg("Aggregation finished")
	return nil
}

// collectBuckets extracts every dirty page in parallel (bounded) and pools
// non-empty snippets per category in page order, so refiner tie-breaking
// by input order stays deterministic.
func (c *Collector) collectBuckets(ctx context.Context, hotelID, hotelName string, dirty []*models.PageArtifact) map[string][]Snippet {
	results := make([]map[string]string, len(dirty))

	sem := make(chan struct{}, c.maxParallel)
	var wg sync.WaitGroup
	for i, page := range dirty {
		wg.Add(1)
		go func(i int, page *models.PageArtifact) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			categories, err := c.extractor.ExtractPage(ctx, hotelName, page.PageURL, page.Markdown)
			if err != nil {
				// One failed page must not abort the hotel.
				c.logger.Warn().
					Str("hotel_id", hotelID).
					Str("url", page.PageURL).
					Err(err).
					Msg("Page extraction failed, skipping page")
				return
			}

			if err := c.pages.MarkExtracted(ctx, hotelID, page.PageURL, page.Checksum, SerializeOutput(categories)); err != nil {
				c.logger.Warn().
					Str("url", page.PageURL).
					Err(err).
					Msg("Failed to mark page extracted")
			}
			results[i] = categories
		}(i, page)
	}
	wg.Wait()

	buckets := make(map[string][]Snippet)
	for i, categories := range results {
		if categories == nil {
			continue
		}
		for name, value := range categories {
			if value == "" {
				continue
			}
			buckets[name] = append(buckets[name], Snippet{
				PageURL: dirty[i].PageURL,
				Value:   value,
			})
		}
	}
	return buckets
}

// refineFields consolidates every category bucket concurrently; fields are
// independent. Empty buckets refine to "" without an LLM call.
func (c *Collector) refineFields(ctx context.Context, hotelName string, buckets map[string][]Snippet) map[string]string {
	refined := make(map[string]string)
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.maxParallel)

	for _, category := range models.CategorySchema() {
		wg.Add(1)
		go func(category models.Category) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			value, err := c.refiner.RefineField(ctx, hotelName, category, buckets[category.Name])
			if err != nil {
				c.logger.Warn().
					Str("field", category.Name).
					Err(err).
					Msg("Field refinement failed, skipping field")
				return
			}
			mu.Lock()
			refined[category.Name] = value
			mu.Unlock()
		}(category)
	}
	wg.Wait()
	return refined
}

// adjudicate runs the per-field merge decision against the existing record
// and returns only the fields whose merged text should be written.
func (c *Collector) adjudicate(ctx context.Context, existing *models.MarketDataRecord, refined map[string]string) map[string]string {
	merged := make(map[string]string)
	if existing == nil {
		// Nothing to merge against; the writer takes the refined map directly.
		return merged
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, c.maxParallel)

	for _, name := range models.CategoryNames() {
		candidate, ok := refined[name]
		if !ok {
			continue
		}
		wg.Add(1)
		go func(name, candidate string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			isUpdate, mergedText := c.adjudicator.Merge(ctx, name, existing.Field(name), candidate)
			if !isUpdate {
				return
			}
			mu.Lock()
			merged[name] = mergedText
			mu.Unlock()
		}(name, candidate)
	}
	wg.Wait()
	return merged
}
