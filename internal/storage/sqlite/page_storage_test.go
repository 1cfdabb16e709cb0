package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hotelbrief/hotelbrief/internal/common"
	"github.com/hotelbrief/hotelbrief/internal/models"
)

func setupTestDB(t *testing.T) *SQLiteDB {
	t.Helper()

	config := &common.StorageConfig{
		SQLite: common.SQLiteConfig{
			Path:          filepath.Join(t.TempDir(), "test.db"),
			CacheSizeMB:   16,
			BusyTimeoutMS: 1000,
			WALMode:       false,
		},
		PageTable: "hotel_page_data",
		DataTable: "market_data",
	}

	db, err := NewSQLiteDB(common.GetLogger(), config)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testPage(hotelID, url, markdown string) *models.PageArtifact {
	return &models.PageArtifact{
		HotelID:       hotelID,
		PageURL:       url,
		RawHTML:       "<html><body>" + markdown + "</body></html>",
		CanonicalHTML: "<body>" + markdown + "</body>",
		Markdown:      markdown,
		Checksum:      common.ContentChecksum(markdown),
		Depth:         0,
	}
}

func TestPageStorage_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())
	ctx := context.Background()

	page := testPage("h1", "https://example.com/", "# Welcome")
	require.NoError(t, storage.Upsert(ctx, page))
	assert.False(t, page.IsChecksumUpdated, "first save is not a checksum update")

	got, err := storage.Get(ctx, "h1", "https://example.com/")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "# Welcome", got.Markdown)
	assert.Equal(t, page.Checksum, got.Checksum)
	assert.True(t, got.Active)
	assert.Empty(t, got.MarkdownPrev)
	assert.Empty(t, got.LLMInputChecksum)
}

func TestPageStorage_Get_Missing(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())

	got, err := storage.Get(context.Background(), "h1", "https://example.com/missing")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPageStorage_Upsert_RollsPreviousOnChange(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/rooms", "Rooms from $199.")))
	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/rooms", "Rooms from $229.")))

	got, err := storage.Get(ctx, "h1", "https://example.com/rooms")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Rooms from $229.", got.Markdown)
	assert.Equal(t, "Rooms from $199.", got.MarkdownPrev)
	assert.True(t, got.IsChecksumUpdated)
	assert.NotEmpty(t, got.RawHTMLPrev)
}

func TestPageStorage_Upsert_SameContentIsNotAnUpdate(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/", "# Same")))
	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/", "# Same")))

	got, err := storage.Get(ctx, "h1", "https://example.com/")
	require.NoError(t, err)
	assert.False(t, got.IsChecksumUpdated)
}

func TestPageStorage_DirtyLifecycle(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())
	ctx := context.Background()

	page := testPage("h1", "https://example.com/", "# Welcome")
	require.NoError(t, storage.Upsert(ctx, page))

	// Never-extracted page is dirty.
	dirty, err := storage.ListDirty(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, dirty, 1)

	// After extraction the dirty set is empty.
	require.NoError(t, storage.MarkExtracted(ctx, "h1", page.PageURL, page.Checksum, `{"basic_information":"x"}`))
	dirty, err = storage.ListDirty(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, dirty)

	// Content drift makes it dirty again.
	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/", "# Changed")))
	dirty, err = storage.ListDirty(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "# Changed", dirty[0].Markdown)
}

func TestPageStorage_ListDirty_SkipsEmptyMarkdown(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())
	ctx := context.Background()

	empty := testPage("h1", "https://example.com/empty", "")
	require.NoError(t, storage.Upsert(ctx, empty))

	dirty, err := storage.ListDirty(ctx, "h1")
	require.NoError(t, err)
	assert.Empty(t, dirty)
}

func TestPageStorage_DeactivateMissing(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/", "# Home")))
	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/gone", "# Gone")))

	n, err := storage.DeactivateMissing(ctx, "h1", []string{"https://example.com/"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	gone, err := storage.Get(ctx, "h1", "https://example.com/gone")
	require.NoError(t, err)
	assert.False(t, gone.Active)
	assert.Equal(t, "# Gone", gone.Markdown, "deactivation preserves contents")

	kept, err := storage.Get(ctx, "h1", "https://example.com/")
	require.NoError(t, err)
	assert.True(t, kept.Active)

	// Deactivated pages never appear in the dirty set.
	dirty, err := storage.ListDirty(ctx, "h1")
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, "https://example.com/", dirty[0].PageURL)
}

func TestPageStorage_DeactivateMissing_EmptyVisited(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/", "# Home")))

	n, err := storage.DeactivateMissing(ctx, "h1", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPageStorage_ListURLs(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())
	ctx := context.Background()

	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/b", "b")))
	require.NoError(t, storage.Upsert(ctx, testPage("h1", "https://example.com/a", "a")))
	require.NoError(t, storage.Upsert(ctx, testPage("h2", "https://other.com/", "x")))

	urls, err := storage.ListURLs(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/a", "https://example.com/b"}, urls)
}

func TestPageStorage_MarkExtracted_MissingRow(t *testing.T) {
	db := setupTestDB(t)
	storage := NewPageStorage(db, common.GetLogger())

	err := storage.MarkExtracted(context.Background(), "h1", "https://example.com/none", "abc", "{}")
	assert.Error(t, err)
}
