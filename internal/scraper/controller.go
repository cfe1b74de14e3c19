// Package scraper implements the query fan-out controller: it turns one
// catalog item into several marketplace searches, extracts prices from each,
// and degrades to synthetic data when no live source is available.
package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"github.com/pop-scanner/internal/extractor"
	"github.com/pop-scanner/internal/logging"
	"github.com/pop-scanner/internal/types"
)

const searchBaseURL = "https://www.ebay.com/sch/i.html?_nkw="

// syntheticObservationCount is how many placeholder observations the
// fallback produces when no live data is obtainable.
const syntheticObservationCount = 3

// PageFetcher is the external collaborator that turns a search URL into page
// text. Satisfied by adapter.FirecrawlClient.
type PageFetcher interface {
	FetchPage(ctx context.Context, url string) (string, error)
	Configured() bool
}

// CatalogItem carries the identity fields the controller needs to build
// search queries.
type CatalogItem struct {
	ID     string
	Name   string
	Series string
	Number *string
}

// Result aggregates one run's extraction output. UsedLiveFetch distinguishes
// real marketplace data from the synthetic fallback.
type Result struct {
	Observations  []types.PriceObservation
	BaseQuery     string
	UsedLiveFetch bool
}

// Controller sequences per-variant fetches with pacing and aggregates the
// extracted observations.
type Controller struct {
	fetcher PageFetcher
	pacer   Pacer
	metrics *Metrics
	rng     *rand.Rand
}

// NewController creates a fan-out controller. metrics may be nil.
func NewController(fetcher PageFetcher, pacer Pacer, metrics *Metrics) *Controller {
	return &Controller{
		fetcher: fetcher,
		pacer:   pacer,
		metrics: metrics,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// BuildSearchQuery assembles the base query from name, series and catalog
// number, collapsing missing parts.
func BuildSearchQuery(item CatalogItem) string {
	parts := []string{item.Name, item.Series}
	if item.Number != nil && strings.TrimSpace(*item.Number) != "" {
		parts = append(parts, "#"+strings.TrimSpace(*item.Number))
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// queryVariants returns the fixed fan-out for one base query: sticker-hint
// suffixes to surface exclusive listings, plus the plain query for common
// releases.
func queryVariants(base string) []string {
	return []string{
		base + " exclusive sticker",
		base + " SDCC exclusive",
		base + " NYCC exclusive",
		base + " chase",
		base,
	}
}

// SearchURL builds the marketplace search-results URL for a query. This URL
// is also what gets persisted as each observation's listing_url; per-listing
// permalinks are not tracked.
func SearchURL(query string) string {
	return searchBaseURL + url.QueryEscape(query)
}

// Run executes the full fan-out for one catalog item. Per-variant failures
// are logged and skipped; a run only degrades to the synthetic fallback when
// every variant came back empty or the fetcher is unconfigured.
func (c *Controller) Run(ctx context.Context, item CatalogItem) *Result {
	logger := logging.FromContext(ctx).WithField("funkoPopId", item.ID)

	base := BuildSearchQuery(item)
	result := &Result{BaseQuery: base}

	if !c.fetcher.Configured() {
		logger.Info("Fetch collaborator not configured, using synthetic pricing data")
		c.fallback(result)
		return result
	}

	for i, variant := range queryVariants(base) {
		if i > 0 {
			if err := c.pacer.Wait(ctx); err != nil {
				logger.WithError(err).Warn("Pacing interrupted, stopping fan-out")
				break
			}
		}

		searchURL := SearchURL(variant)

		start := time.Now()
		text, err := c.fetcher.FetchPage(ctx, searchURL)
		c.metrics.ObserveFetchDuration(time.Since(start))

		if err != nil {
			c.metrics.IncFetch("error")
			logger.WithError(err).WithField("query", variant).Warn("Variant fetch failed, continuing")
			continue
		}
		if strings.TrimSpace(text) == "" {
			c.metrics.IncFetch("empty")
			logger.WithField("query", variant).Debug("Variant returned no content")
			continue
		}
		c.metrics.IncFetch("ok")

		observations := extractor.Extract(text, variant)
		for i := range observations {
			observations[i].ListingURL = searchURL
		}
		c.metrics.AddPricesExtracted(len(observations))

		logger.WithFields(map[string]interface{}{
			"query":  variant,
			"prices": len(observations),
		}).Debug("Variant extraction complete")

		result.Observations = append(result.Observations, observations...)
	}

	if len(result.Observations) == 0 {
		logger.Info("No live prices extracted, using synthetic pricing data")
		c.fallback(result)
		return result
	}

	result.UsedLiveFetch = true
	c.metrics.IncRun("live")
	return result
}

// fallback populates the result with randomized plausible placeholder
// observations so downstream persistence always has rows to write. Synthetic
// entries carry no sticker markers.
func (c *Controller) fallback(result *Result) {
	result.UsedLiveFetch = false
	searchURL := SearchURL(result.BaseQuery)

	for i := 0; i < syntheticObservationCount; i++ {
		price := 10 + c.rng.Float64()*40
		result.Observations = append(result.Observations, types.PriceObservation{
			Price:       float64(int(price*100)) / 100,
			Condition:   types.ConditionNearMint,
			SearchQuery: result.BaseQuery,
			ListingURL:  searchURL,
		})
	}

	c.metrics.IncRun("synthetic")
	c.metrics.IncFallback()
}

// SetRandSource overrides the fallback price source, used by tests for
// deterministic output.
func (c *Controller) SetRandSource(seed int64) {
	c.rng = rand.New(rand.NewSource(seed))
}

// String implements fmt.Stringer for logging.
func (item CatalogItem) String() string {
	return fmt.Sprintf("%s (%s)", item.Name, item.Series)
}
