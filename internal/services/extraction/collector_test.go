package extraction

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelbrief/hotelbrief/internal/common"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

// stubPageStorage serves a fixed dirty set and records extraction marks
type stubPageStorage struct {
	mu        sync.Mutex
	dirty     []*models.PageArtifact
	extracted map[string]string // page_url -> llm_input_checksum
}

func (s *stubPageStorage) Upsert(ctx context.Context, page *models.PageArtifact) error { return nil }
func (s *stubPageStorage) Get(ctx context.Context, hotelID, pageURL string) (*models.PageArtifact, error) {
	return nil, nil
}
func (s *stubPageStorage) ListDirty(ctx context.Context, hotelID string) ([]*models.PageArtifact, error) {
	return s.dirty, nil
}
func (s *stubPageStorage) ListURLs(ctx context.Context, hotelID string) ([]string, error) {
	return nil, nil
}
func (s *stubPageStorage) MarkExtracted(ctx context.Context, hotelID, pageURL, checksum, llmOutput string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extracted == nil {
		s.extracted = make(map[string]string)
	}
	s.extracted[pageURL] = checksum
	return nil
}
func (s *stubPageStorage) DeactivateMissing(ctx context.Context, hotelID string, visited []string) (int, error) {
	return 0, nil
}

// stubMarketStorage holds one in-memory record
type stubMarketStorage struct {
	mu      sync.Mutex
	record  *models.MarketDataRecord
	upserts []map[string]string
}

func (s *stubMarketStorage) Get(ctx context.Context, hotelID string) (*models.MarketDataRecord, error) {
	return s.record, nil
}
func (s *stubMarketStorage) Upsert(ctx context.Context, hotelID string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.upserts = append(s.upserts, copied)
	return nil
}

func newTestCollector(client *stubLLM, pages *stubPageStorage, market *stubMarketStorage) *Collector {
	logger := common.GetLogger()
	return NewCollector(
		pages,
		market,
		NewExtractor(client, logger),
		NewRefiner(client, logger),
		NewAdjudicator(client, logger),
		NewWriter(market, NewStructurer(client, logger), logger),
		4,
		logger,
	)
}

func dirtyPage(url, markdown string) *models.PageArtifact {
	return &models.PageArtifact{
		HotelID:  "h1",
		PageURL:  url,
		Markdown: markdown,
		Checksum: common.ContentChecksum(markdown),
		Active:   true,
	}
}

// scriptedLLM routes stub responses by prompt stage
func scriptedLLM(extract func(prompt string) string) *stubLLM {
	return &stubLLM{fn: func(system, user string) (string, error) {
		switch {
		case strings.Contains(system, "extract factual hotel information"):
			return extract(user), nil
		case strings.Contains(system, "consolidate hotel information snippets"):
			// Echo the first snippet body back as the consolidation.
			if idx := strings.Index(user, "]\n"); idx >= 0 {
				rest := user[idx+2:]
				if end := strings.Index(rest, "\n\n"); end >= 0 {
					return strings.TrimSpace(rest[:end]), nil
				}
			}
			return "", nil
		case strings.Contains(system, "meaningfully updates stored information"):
			return `{"isUpdate": true, "mergedText": "merged"}`, nil
		default:
			return `{"note":"structured"}`, nil
		}
	}}
}

func TestAggregate_FreshHotel(t *testing.T) {
	pages := &stubPageStorage{dirty: []*models.PageArtifact{
		dirtyPage("https://seaside.example/", "Ocean-view rooms from $199."),
	}}
	market := &stubMarketStorage{}
	client := scriptedLLM(func(prompt string) string {
		return `{"guest_rooms":"Ocean-view rooms from $199."}`
	})
	collector := newTestCollector(client, pages, market)

	require.NoError(t, collector.Aggregate(context.Background(), "h1", "Seaside Inn"))

	require.Len(t, market.upserts, 1)
	written := market.upserts[0]
	assert.Equal(t, "Ocean-view rooms from $199.", written["guest_rooms"])
	assert.NotContains(t, written, "other_structured", "other was not updated")
	for field := range written {
		ok := models.IsCategoryName(field) || field == models.OtherStructuredField
		assert.True(t, ok, "unexpected field %q", field)
	}

	assert.Equal(t, pages.dirty[0].Checksum, pages.extracted["https://seaside.example/"],
		"successful extraction marks llm_input_checksum")
}

func TestAggregate_NoDirtyPagesMakesNoLLMCalls(t *testing.T) {
	pages := &stubPageStorage{}
	market := &stubMarketStorage{}
	client := &stubLLM{}
	collector := newTestCollector(client, pages, market)

	require.NoError(t, collector.Aggregate(context.Background(), "h1", "Seaside Inn"))
	assert.Zero(t, client.callCount())
	assert.Empty(t, market.upserts)
}

func TestAggregate_ContentDriftUpdatesOnlyChangedField(t *testing.T) {
	pages := &stubPageStorage{dirty: []*models.PageArtifact{
		dirtyPage("https://seaside.example/rooms", "Ocean-view rooms from $229."),
	}}
	market := &stubMarketStorage{record: &models.MarketDataRecord{
		HotelID: "h1",
		Fields:  map[string]string{"guest_rooms": "Ocean-view rooms from $199."},
	}}
	client := &stubLLM{fn: func(system, user string) (string, error) {
		switch {
		case strings.Contains(system, "extract factual hotel information"):
			return `{"guest_rooms":"Ocean-view rooms from $229."}`, nil
		case strings.Contains(system, "consolidate hotel information snippets"):
			return "Ocean-view rooms from $229.", nil
		case strings.Contains(system, "meaningfully updates stored information"):
			return `{"isUpdate": true, "mergedText": "Ocean-view rooms from $229."}`, nil
		default:
			return "{}", nil
		}
	}}
	collector := newTestCollector(client, pages, market)

	require.NoError(t, collector.Aggregate(context.Background(), "h1", "Seaside Inn"))

	require.Len(t, market.upserts, 1)
	written := market.upserts[0]
	assert.Equal(t, map[string]string{"guest_rooms": "Ocean-view rooms from $229."}, written,
		"only the adjudicated field is written")
}

func TestAggregate_NothingMeaningfulIsANoOp(t *testing.T) {
	pages := &stubPageStorage{dirty: []*models.PageArtifact{
		dirtyPage("https://seaside.example/", "Ocean-view rooms from $199, freshly restyled page."),
	}}
	market := &stubMarketStorage{record: &models.MarketDataRecord{
		HotelID: "h1",
		Fields:  map[string]string{"guest_rooms": "Ocean-view rooms from $199."},
	}}
	client := &stubLLM{fn: func(system, user string) (string, error) {
		switch {
		case strings.Contains(system, "extract factual hotel information"):
			return `{"guest_rooms":"Ocean-view rooms from $199."}`, nil
		case strings.Contains(system, "consolidate hotel information snippets"):
			return "Ocean-view rooms from $199, same as before.", nil
		case strings.Contains(system, "meaningfully updates stored information"):
			return `{"isUpdate": false, "mergedText": ""}`, nil
		default:
			return "{}", nil
		}
	}}
	collector := newTestCollector(client, pages, market)

	require.NoError(t, collector.Aggregate(context.Background(), "h1", "Seaside Inn"))
	assert.Empty(t, market.upserts, "no adjudicated update means no write")
}

func TestAggregate_OtherTriggersStructuring(t *testing.T) {
	pages := &stubPageStorage{dirty: []*models.PageArtifact{
		dirtyPage("https://seaside.example/extras", "Loyalty: Marriott Bonvoy; Parking valet: $35"),
	}}
	market := &stubMarketStorage{}
	client := &stubLLM{fn: func(system, user string) (string, error) {
		switch {
		case strings.Contains(system, "extract factual hotel information"):
			return `{"other":"Loyalty: Marriott Bonvoy; Parking valet: $35"}`, nil
		case strings.Contains(system, "consolidate hotel information snippets"):
			return "Loyalty: Marriott Bonvoy; Parking valet: $35", nil
		case strings.Contains(system, "convert free-form text"):
			return `{"loyalty":"Marriott Bonvoy","parking_valet":"$35"}`, nil
		default:
			return `{"loyalty":"Marriott Bonvoy","parking_valet":"$35"}`, nil
		}
	}}
	collector := newTestCollector(client, pages, market)

	require.NoError(t, collector.Aggregate(context.Background(), "h1", "Seaside Inn"))

	require.Len(t, market.upserts, 1)
	written := market.upserts[0]
	assert.Equal(t, "Loyalty: Marriott Bonvoy; Parking valet: $35", written["other"])
	assert.JSONEq(t, `{"loyalty":"Marriott Bonvoy","parking_valet":"$35"}`, written[models.OtherStructuredField])
}

func TestAggregate_FailedPageIsSkippedNotFatal(t *testing.T) {
	pages := &stubPageStorage{dirty: []*models.PageArtifact{
		dirtyPage("https://seaside.example/broken", "broken page"),
		dirtyPage("https://seaside.example/rooms", "Ocean-view rooms from $199."),
	}}
	market := &stubMarketStorage{}
	client := &stubLLM{fn: func(system, user string) (string, error) {
		if strings.Contains(system, "extract factual hotel information") {
			if strings.Contains(user, "broken page") {
				return "", context.DeadlineExceeded
			}
			return `{"guest_rooms":"Ocean-view rooms from $199."}`, nil
		}
		if strings.Contains(system, "consolidate hotel information snippets") {
			return "Ocean-view rooms from $199.", nil
		}
		return "{}", nil
	}}
	collector := newTestCollector(client, pages, market)

	require.NoError(t, collector.Aggregate(context.Background(), "h1", "Seaside Inn"))

	require.Len(t, market.upserts, 1)
	assert.Equal(t, "Ocean-view rooms from $199.", market.upserts[0]["guest_rooms"])
	assert.NotContains(t, pages.extracted, "https://seaside.example/broken",
		"failed page keeps its dirty state")
}
