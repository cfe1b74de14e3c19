// Package service implements the business logic tying the fan-out controller
// to persistence: reconciling observations into price history, catalog
// updates and job state.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pop-scanner/internal/classifier"
	"github.com/pop-scanner/internal/logging"
	"github.com/pop-scanner/internal/models"
	"github.com/pop-scanner/internal/scraper"
	"github.com/pop-scanner/internal/types"
)

// PriceHistoryRepository interface for price history persistence
type PriceHistoryRepository interface {
	BulkInsert(ctx context.Context, records []*models.PriceHistory) error
}

// ScrapeJobRepository interface for job state transitions
type ScrapeJobRepository interface {
	MarkCompleted(ctx context.Context, jobID string, lastScraped, nextScrapeDue time.Time) error
	MarkFailed(ctx context.Context, jobID, errorMessage string) error
}

// FunkoPopRepository interface for catalog access
type FunkoPopRepository interface {
	UpdateStickerInfo(ctx context.Context, id string, stickerType types.StickerType, stickerCondition types.StickerCondition) error
	RecalculatePricing(ctx context.Context, id string) error
}

// Controller interface for the query fan-out stage
type Controller interface {
	Run(ctx context.Context, item scraper.CatalogItem) *scraper.Result
}

// RunInput is one scrape invocation.
type RunInput struct {
	JobID    string
	Item     scraper.CatalogItem
	IsManual bool
}

// Summary describes a completed run.
type Summary struct {
	PricesFound          int                 `json:"pricesFound"`
	SearchQuery          string              `json:"searchQuery"`
	StickerTypesDetected []types.StickerType `json:"stickerTypesDetected"`
	UsedFirecrawl        bool                `json:"usedFirecrawl"`
}

// ScrapeService orchestrates one run: fan-out, persistence, catalog
// reconciliation and job bookkeeping.
type ScrapeService struct {
	controller       Controller
	priceHistoryRepo PriceHistoryRepository
	jobRepo          ScrapeJobRepository
	popRepo          FunkoPopRepository
	rescrapeInterval time.Duration
	now              func() time.Time
}

// NewScrapeService creates a scrape service.
func NewScrapeService(
	controller Controller,
	priceHistoryRepo PriceHistoryRepository,
	jobRepo ScrapeJobRepository,
	popRepo FunkoPopRepository,
	rescrapeInterval time.Duration,
) *ScrapeService {
	return &ScrapeService{
		controller:       controller,
		priceHistoryRepo: priceHistoryRepo,
		jobRepo:          jobRepo,
		popRepo:          popRepo,
		rescrapeInterval: rescrapeInterval,
		now:              time.Now,
	}
}

// Run executes the full pipeline for one catalog item. Any persistence error
// aborts the run and propagates; the caller is responsible for marking the
// job failed.
func (s *ScrapeService) Run(ctx context.Context, input *RunInput) (*Summary, error) {
	logger := logging.FromContext(ctx).WithFields(map[string]interface{}{
		"jobId":      input.JobID,
		"funkoPopId": input.Item.ID,
	})
	if input.IsManual {
		logger.Info("Manual scrape run requested")
	} else {
		logger.Info("Scheduled scrape run starting")
	}

	result := s.controller.Run(ctx, input.Item)

	if err := s.persistObservations(ctx, input.Item.ID, result); err != nil {
		return nil, err
	}

	if err := s.popRepo.RecalculatePricing(ctx, input.Item.ID); err != nil {
		return nil, err
	}

	detected, err := s.reconcileStickerEvidence(ctx, input.Item.ID, result.Observations)
	if err != nil {
		return nil, err
	}

	scrapedAt := s.now().UTC()
	if err := s.jobRepo.MarkCompleted(ctx, input.JobID, scrapedAt, scrapedAt.Add(s.rescrapeInterval)); err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"prices":        len(result.Observations),
		"usedFirecrawl": result.UsedLiveFetch,
	}).Info("Scrape run completed")

	return &Summary{
		PricesFound:          len(result.Observations),
		SearchQuery:          result.BaseQuery,
		StickerTypesDetected: detected,
		UsedFirecrawl:        result.UsedLiveFetch,
	}, nil
}

// persistObservations maps observations to price history rows and writes
// them in one all-or-nothing batch.
func (s *ScrapeService) persistObservations(ctx context.Context, funkoPopID string, result *scraper.Result) error {
	scrapedAt := s.now().UTC()

	records := make([]*models.PriceHistory, 0, len(result.Observations))
	for _, obs := range result.Observations {
		metadata, err := obs.MarshalMetadata()
		if err != nil {
			return fmt.Errorf("failed to serialize variant metadata: %w", err)
		}
		records = append(records, &models.PriceHistory{
			ID:          uuid.NewString(),
			FunkoPopID:  funkoPopID,
			Source:      models.PriceSourceEbay,
			Price:       obs.Price,
			Condition:   obs.Condition,
			ListingURL:  obs.ListingURL,
			DateScraped: scrapedAt,
			Metadata:    metadata,
		})
	}

	return s.priceHistoryRepo.BulkInsert(ctx, records)
}

// reconcileStickerEvidence updates the catalog item from detected sticker
// types. When variants disagree, the first type by classifier table order
// wins; frequency across observations is not considered. A catalog update
// failure is fatal like any other persistence failure.
func (s *ScrapeService) reconcileStickerEvidence(ctx context.Context, funkoPopID string, observations []types.PriceObservation) ([]types.StickerType, error) {
	seen := make(map[types.StickerType]types.StickerCondition)
	for _, obs := range observations {
		if obs.StickerType == nil {
			continue
		}
		if _, ok := seen[*obs.StickerType]; !ok {
			cond := types.StickerMint
			if obs.StickerCondition != nil {
				cond = *obs.StickerCondition
			}
			seen[*obs.StickerType] = cond
		}
	}

	if len(seen) == 0 {
		return []types.StickerType{}, nil
	}

	detected := make([]types.StickerType, 0, len(seen))
	for _, label := range classifier.KnownStickerTypes() {
		if _, ok := seen[label]; ok {
			detected = append(detected, label)
		}
	}

	winner := detected[0]
	if err := s.popRepo.UpdateStickerInfo(ctx, funkoPopID, winner, seen[winner]); err != nil {
		return nil, err
	}

	return detected, nil
}
