// Package extractor mines currency-formatted substrings out of raw listing
// text and turns them into price observations.
package extractor

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pop-scanner/internal/classifier"
	"github.com/pop-scanner/internal/types"
)

const (
	// MinPrice and MaxPrice bound the plausible value range for a small
	// collectible figure. Anything outside is extraction noise (shipping
	// costs, item counts, unrelated numbers).
	MinPrice = 1.0
	MaxPrice = 500.0

	// MaxObservationsPerPass caps how many prices one page contributes.
	// Search results repeat near-identical prices; without the cap a single
	// page dominates the aggregate.
	MaxObservationsPerPass = 5

	// dedupeEpsilon collapses near-identical parsed values, first seen wins.
	dedupeEpsilon = 0.01
)

// The shapes are applied independently; a substring matching more than one
// shape is resolved by dedupe, not by making the patterns exclusive.
var pricePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\$\s?\d{1,3}(?:,\d{3})*(?:\.\d+)?`),
	regexp.MustCompile(`(?i)USD\s?\d+(?:\.\d+)?`),
	regexp.MustCompile(`(?i)price:?\s*\$?\s?\d{1,3}(?:,\d{3})*(?:\.\d+)?`),
}

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// Extract scans rawText for currency-like substrings and returns at most
// MaxObservationsPerPass observations in the plausible price range. Variant
// classification is a property of the listing page, so the classifier runs
// once per pass over rawText plus the query that found it, and every
// surviving observation carries the same triple. Returns an empty slice,
// never an error, when nothing usable is found.
func Extract(rawText, searchQuery string) []types.PriceObservation {
	var candidates []float64
	for _, pattern := range pricePatterns {
		for _, match := range pattern.FindAllString(rawText, -1) {
			price, ok := parsePrice(match)
			if !ok {
				continue
			}
			if price < MinPrice || price > MaxPrice {
				continue
			}
			candidates = append(candidates, price)
		}
	}

	candidates = dedupe(candidates)
	if len(candidates) > MaxObservationsPerPass {
		candidates = candidates[:MaxObservationsPerPass]
	}

	if len(candidates) == 0 {
		return nil
	}

	variant := classifier.Classify(rawText + " " + searchQuery)

	observations := make([]types.PriceObservation, 0, len(candidates))
	for _, price := range candidates {
		observations = append(observations, types.PriceObservation{
			Price:            price,
			Condition:        types.ConditionMint,
			StickerType:      variant.StickerType,
			StickerCondition: variant.StickerCondition,
			SearchQuery:      searchQuery,
		})
	}
	return observations
}

// parsePrice strips everything but digits and the decimal point and parses
// the remainder.
func parsePrice(match string) (float64, bool) {
	cleaned := nonNumeric.ReplaceAllString(match, "")
	cleaned = strings.Trim(cleaned, ".")
	if cleaned == "" {
		return 0, false
	}
	price, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

// dedupe drops values within dedupeEpsilon of an earlier one, preserving
// first-seen order.
func dedupe(prices []float64) []float64 {
	var kept []float64
	for _, price := range prices {
		duplicate := false
		for _, existing := range kept {
			if math.Abs(existing-price) < dedupeEpsilon {
				duplicate = true
				break
			}
		}
		if !duplicate {
			kept = append(kept, price)
		}
	}
	return kept
}
