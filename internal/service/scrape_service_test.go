package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/pop-scanner/internal/adapter"
	"github.com/pop-scanner/internal/models"
	"github.com/pop-scanner/internal/scraper"
	"github.com/pop-scanner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mock repositories for testing

type mockPriceHistoryRepo struct {
	records   []*models.PriceHistory
	insertErr error
}

func (m *mockPriceHistoryRepo) BulkInsert(ctx context.Context, records []*models.PriceHistory) error {
	if m.insertErr != nil {
		return m.insertErr
	}
	m.records = append(m.records, records...)
	return nil
}

type mockJobRepo struct {
	completedJobID string
	lastScraped    time.Time
	nextScrapeDue  time.Time
	failedJobID    string
	failedMessage  string
}

func (m *mockJobRepo) MarkCompleted(ctx context.Context, jobID string, lastScraped, nextScrapeDue time.Time) error {
	m.completedJobID = jobID
	m.lastScraped = lastScraped
	m.nextScrapeDue = nextScrapeDue
	return nil
}

func (m *mockJobRepo) MarkFailed(ctx context.Context, jobID, errorMessage string) error {
	m.failedJobID = jobID
	m.failedMessage = errorMessage
	return nil
}

type mockPopRepo struct {
	stickerType      *types.StickerType
	stickerCondition *types.StickerCondition
	recalculated     []string
	updateErr        error
	recalcErr        error
}

func (m *mockPopRepo) UpdateStickerInfo(ctx context.Context, id string, stickerType types.StickerType, stickerCondition types.StickerCondition) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.stickerType = &stickerType
	m.stickerCondition = &stickerCondition
	return nil
}

func (m *mockPopRepo) RecalculatePricing(ctx context.Context, id string) error {
	if m.recalcErr != nil {
		return m.recalcErr
	}
	m.recalculated = append(m.recalculated, id)
	return nil
}

// scripted fetcher drives a real controller through the service

type scriptedFetcher struct {
	configured bool
	responses  map[string]string
}

func (f *scriptedFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	return f.responses[url], nil
}

func (f *scriptedFetcher) Configured() bool { return f.configured }

var _ adapter.PageFetcher = (*scriptedFetcher)(nil)

func newTestService(fetcher scraper.PageFetcher) (*ScrapeService, *mockPriceHistoryRepo, *mockJobRepo, *mockPopRepo) {
	controller := scraper.NewController(fetcher, scraper.NopPacer{}, nil)
	priceRepo := &mockPriceHistoryRepo{}
	jobRepo := &mockJobRepo{}
	popRepo := &mockPopRepo{}
	svc := NewScrapeService(controller, priceRepo, jobRepo, popRepo, 7*24*time.Hour)
	return svc, priceRepo, jobRepo, popRepo
}

func testInput() *RunInput {
	number := "01"
	return &RunInput{
		JobID: "job-1",
		Item:  scraper.CatalogItem{ID: "pop-1", Name: "Batman", Series: "DC", Number: &number},
	}
}

func TestRunPersistsStickeredObservation(t *testing.T) {
	fetcher := &scriptedFetcher{
		configured: true,
		responses: map[string]string{
			scraper.SearchURL("Batman DC #01 SDCC exclusive"): "... Batman #01 SDCC Exclusive ... Price: $45.00 ... $45.00 ...",
		},
	}
	svc, priceRepo, jobRepo, popRepo := newTestService(fetcher)

	summary, err := svc.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PricesFound)
	assert.Equal(t, "Batman DC #01", summary.SearchQuery)
	assert.Equal(t, []types.StickerType{types.StickerSDCC}, summary.StickerTypesDetected)
	assert.True(t, summary.UsedFirecrawl)

	require.Len(t, priceRepo.records, 1)
	record := priceRepo.records[0]
	assert.NotEmpty(t, record.ID)
	assert.Equal(t, "pop-1", record.FunkoPopID)
	assert.Equal(t, models.PriceSourceEbay, record.Source)
	assert.InDelta(t, 45.00, record.Price, 0.001)
	assert.Equal(t, scraper.SearchURL("Batman DC #01 SDCC exclusive"), record.ListingURL)

	var metadata map[string]interface{}
	require.NoError(t, json.Unmarshal(record.Metadata, &metadata))
	assert.Equal(t, "SDCC", metadata["sticker_type"])
	assert.Equal(t, true, metadata["has_sticker"])

	require.NotNil(t, popRepo.stickerType)
	assert.Equal(t, types.StickerSDCC, *popRepo.stickerType)
	assert.Equal(t, []string{"pop-1"}, popRepo.recalculated)

	assert.Equal(t, "job-1", jobRepo.completedJobID)
	assert.Equal(t, 7*24*time.Hour, jobRepo.nextScrapeDue.Sub(jobRepo.lastScraped))
}

func TestRunSyntheticFallbackSummary(t *testing.T) {
	svc, priceRepo, jobRepo, popRepo := newTestService(&scriptedFetcher{configured: false})

	summary, err := svc.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.False(t, summary.UsedFirecrawl)
	assert.Greater(t, summary.PricesFound, 0)
	assert.Empty(t, summary.StickerTypesDetected)

	require.NotEmpty(t, priceRepo.records)
	for _, record := range priceRepo.records {
		assert.Equal(t, types.ConditionNearMint, record.Condition)

		var metadata map[string]interface{}
		require.NoError(t, json.Unmarshal(record.Metadata, &metadata))
		assert.Equal(t, false, metadata["has_sticker"])
	}

	// the catalog is never touched without sticker evidence
	assert.Nil(t, popRepo.stickerType)
	assert.Equal(t, "job-1", jobRepo.completedJobID)
}

func TestRunFirstByTableOrderWinsAcrossVariants(t *testing.T) {
	// NYCC is found first during the run, but SDCC outranks it in the
	// classifier table, so SDCC wins the catalog update.
	fetcher := &scriptedFetcher{
		configured: true,
		responses: map[string]string{
			scraper.SearchURL("Batman DC #01 NYCC exclusive"): "Batman NYCC shared sticker $30.00",
			scraper.SearchURL("Batman DC #01"):                "Batman SDCC grail, sticker peeling $45.00",
		},
	}
	svc, _, _, popRepo := newTestService(fetcher)

	summary, err := svc.Run(context.Background(), testInput())
	require.NoError(t, err)

	assert.Equal(t, []types.StickerType{types.StickerSDCC, types.StickerNYCC}, summary.StickerTypesDetected)
	require.NotNil(t, popRepo.stickerType)
	assert.Equal(t, types.StickerSDCC, *popRepo.stickerType)
	require.NotNil(t, popRepo.stickerCondition)
	assert.Equal(t, types.StickerDamaged, *popRepo.stickerCondition)
}

func TestRunPropagatesPersistenceFailure(t *testing.T) {
	svc, priceRepo, jobRepo, _ := newTestService(&scriptedFetcher{configured: false})
	priceRepo.insertErr = fmt.Errorf("connection reset")

	_, err := svc.Run(context.Background(), testInput())
	require.Error(t, err)

	// the service does not mark jobs failed itself; the handler owns that
	assert.Empty(t, jobRepo.failedJobID)
	assert.Empty(t, jobRepo.completedJobID)
}

func TestRunPropagatesRecalcFailure(t *testing.T) {
	svc, _, jobRepo, popRepo := newTestService(&scriptedFetcher{configured: false})
	popRepo.recalcErr = fmt.Errorf("function does not exist")

	_, err := svc.Run(context.Background(), testInput())
	require.Error(t, err)
	assert.Empty(t, jobRepo.completedJobID)
}

func TestRunPropagatesCatalogUpdateFailure(t *testing.T) {
	fetcher := &scriptedFetcher{
		configured: true,
		responses: map[string]string{
			scraper.SearchURL("Batman DC #01 SDCC exclusive"): "SDCC exclusive $45.00",
		},
	}
	svc, _, jobRepo, popRepo := newTestService(fetcher)
	popRepo.updateErr = fmt.Errorf("row locked")

	_, err := svc.Run(context.Background(), testInput())
	require.Error(t, err)
	assert.Empty(t, jobRepo.completedJobID)
}
