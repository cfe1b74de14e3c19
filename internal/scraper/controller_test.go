package scraper

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/pop-scanner/internal/extractor"
	"github.com/pop-scanner/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher scripts per-URL responses. A missing entry yields an empty
// page.
type fakeFetcher struct {
	configured bool
	responses  map[string]string
	errs       map[string]error
	calls      []string
}

func (f *fakeFetcher) FetchPage(ctx context.Context, url string) (string, error) {
	f.calls = append(f.calls, url)
	if err, ok := f.errs[url]; ok {
		return "", err
	}
	return f.responses[url], nil
}

func (f *fakeFetcher) Configured() bool { return f.configured }

// countingPacer records how often the controller paced between fetches.
type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return nil
}

func testItem() CatalogItem {
	number := "01"
	return CatalogItem{ID: "pop-1", Name: "Batman", Series: "DC", Number: &number}
}

func TestBuildSearchQuery(t *testing.T) {
	assert.Equal(t, "Batman DC #01", BuildSearchQuery(testItem()))

	noNumber := CatalogItem{Name: "Batman", Series: "DC"}
	assert.Equal(t, "Batman DC", BuildSearchQuery(noNumber))

	messy := CatalogItem{Name: "  Batman  ", Series: " DC "}
	assert.Equal(t, "Batman DC", BuildSearchQuery(messy))
}

func TestQueryVariantsShape(t *testing.T) {
	variants := queryVariants("Batman DC #01")
	require.Len(t, variants, 5)
	assert.Equal(t, "Batman DC #01 exclusive sticker", variants[0])
	assert.Equal(t, "Batman DC #01", variants[4])
}

func TestRunAggregatesLiveResults(t *testing.T) {
	fetcher := &fakeFetcher{
		configured: true,
		responses: map[string]string{
			SearchURL("Batman DC #01 SDCC exclusive"): "Batman #01 SDCC Exclusive Price: $45.00",
			SearchURL("Batman DC #01"):                "Batman common $19.99 and $25.00",
		},
	}

	controller := NewController(fetcher, NopPacer{}, nil)
	result := controller.Run(context.Background(), testItem())

	assert.True(t, result.UsedLiveFetch)
	assert.Equal(t, "Batman DC #01", result.BaseQuery)
	require.Len(t, result.Observations, 3)

	first := result.Observations[0]
	assert.InDelta(t, 45.00, first.Price, 0.001)
	require.NotNil(t, first.StickerType)
	assert.Equal(t, types.StickerSDCC, *first.StickerType)
	assert.Equal(t, SearchURL("Batman DC #01 SDCC exclusive"), first.ListingURL)

	// all five variants were tried
	assert.Len(t, fetcher.calls, 5)
}

func TestRunPacesBetweenFetches(t *testing.T) {
	fetcher := &fakeFetcher{configured: true, responses: map[string]string{
		SearchURL("Batman DC #01"): "$19.99",
	}}
	pacer := &countingPacer{}

	controller := NewController(fetcher, pacer, nil)
	controller.Run(context.Background(), testItem())

	// pacing happens between calls, not before the first
	assert.Equal(t, len(fetcher.calls)-1, pacer.waits)
}

func TestRunContinuesPastVariantFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		configured: true,
		errs: map[string]error{
			SearchURL("Batman DC #01 exclusive sticker"): fmt.Errorf("render timeout"),
			SearchURL("Batman DC #01 SDCC exclusive"):    fmt.Errorf("render timeout"),
		},
		responses: map[string]string{
			SearchURL("Batman DC #01"): "common listing $22.50",
		},
	}

	controller := NewController(fetcher, NopPacer{}, nil)
	result := controller.Run(context.Background(), testItem())

	assert.True(t, result.UsedLiveFetch)
	require.Len(t, result.Observations, 1)
	assert.InDelta(t, 22.50, result.Observations[0].Price, 0.001)
}

func TestRunKeepsCrossVariantNearDuplicates(t *testing.T) {
	// the same real listing found through two variants is independent
	// evidence and is preserved for reconciliation
	fetcher := &fakeFetcher{
		configured: true,
		responses: map[string]string{
			SearchURL("Batman DC #01 SDCC exclusive"): "SDCC grail $45.00",
			SearchURL("Batman DC #01"):                "SDCC grail relisted $45.00",
		},
	}

	controller := NewController(fetcher, NopPacer{}, nil)
	result := controller.Run(context.Background(), testItem())

	assert.Len(t, result.Observations, 2)
}

func TestRunFallbackWhenUnconfigured(t *testing.T) {
	fetcher := &fakeFetcher{configured: false}

	controller := NewController(fetcher, NopPacer{}, nil)
	controller.SetRandSource(42)
	result := controller.Run(context.Background(), testItem())

	assert.False(t, result.UsedLiveFetch)
	assert.Empty(t, fetcher.calls)
	require.Len(t, result.Observations, syntheticObservationCount)

	for _, obs := range result.Observations {
		assert.Nil(t, obs.StickerType)
		assert.False(t, obs.HasSticker())
		assert.Equal(t, types.ConditionNearMint, obs.Condition)
		assert.GreaterOrEqual(t, obs.Price, extractor.MinPrice)
		assert.LessOrEqual(t, obs.Price, extractor.MaxPrice)
		assert.True(t, strings.HasPrefix(obs.ListingURL, "https://www.ebay.com/sch/"))
	}
}

func TestRunFallbackWhenEveryVariantEmpty(t *testing.T) {
	fetcher := &fakeFetcher{configured: true}

	controller := NewController(fetcher, NopPacer{}, nil)
	result := controller.Run(context.Background(), testItem())

	assert.False(t, result.UsedLiveFetch)
	assert.Len(t, fetcher.calls, 5)
	assert.Len(t, result.Observations, syntheticObservationCount)
}

func TestRunRecordsMetrics(t *testing.T) {
	fetcher := &fakeFetcher{configured: true, responses: map[string]string{
		SearchURL("Batman DC #01"): "$19.99",
	}}

	metrics := NewMetrics()
	controller := NewController(fetcher, NopPacer{}, metrics)
	controller.Run(context.Background(), testItem())

	families, err := metrics.Registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["popscan_runs_total"])
	assert.True(t, names["popscan_fetches_total"])
}
