// Package classifier detects exclusive-release markers and sticker condition
// language in raw listing text.
package classifier

import (
	"strings"

	"github.com/pop-scanner/internal/types"
)

// stickerEntry maps one sticker label to the phrases that identify it.
// Table order is a priority: convention markers are checked before retailer
// markers so "SDCC exclusive sold at Hot Topic" resolves to SDCC.
type stickerEntry struct {
	label    types.StickerType
	keywords []string
}

var stickerTable = []stickerEntry{
	{types.StickerSDCC, []string{"sdcc", "san diego comic con", "san diego comic-con"}},
	{types.StickerNYCC, []string{"nycc", "new york comic con", "new york comic-con"}},
	{types.StickerFunkoShop, []string{"funko shop", "funko-shop", "funko exclusive"}},
	{types.StickerHotTopic, []string{"hot topic"}},
	{types.StickerBoxLunch, []string{"boxlunch", "box lunch"}},
	{types.StickerTarget, []string{"target exclusive", "target con"}},
	{types.StickerWalmart, []string{"walmart exclusive", "walmart"}},
	{types.StickerGameStop, []string{"gamestop", "game stop"}},
	{types.StickerChase, []string{"chase"}},
}

// Condition language, checked worst-first so "damaged but otherwise mint"
// grades as damaged.
var (
	damagedTerms = []string{"damaged", "torn", "ripped", "peeling", "creased", "missing sticker"}
	goodTerms    = []string{"good condition", "minor wear", "light wear", "small scuff", "shelf wear"}
	mintTerms    = []string{"mint", "pristine", "perfect"}
)

// Result is the classification of one listing page.
type Result struct {
	StickerType      *types.StickerType
	StickerCondition *types.StickerCondition
}

// HasSticker reports whether an exclusive marker was found.
func (r Result) HasSticker() bool {
	return r.StickerType != nil
}

// Classify scans free text for a known exclusive marker and, when one is
// found, for sticker condition language. Matching is case-insensitive
// substring search, first table entry wins. Pure function of its input.
func Classify(text string) Result {
	folded := strings.ToLower(text)

	for _, entry := range stickerTable {
		if containsAny(folded, entry.keywords) {
			label := entry.label
			cond := classifyCondition(folded)
			return Result{StickerType: &label, StickerCondition: &cond}
		}
	}

	return Result{}
}

// classifyCondition grades the sticker from damage/wear language. Listings
// advertise undamaged stickers by omission, so silence grades as mint rather
// than unknown.
func classifyCondition(folded string) types.StickerCondition {
	switch {
	case containsAny(folded, damagedTerms):
		return types.StickerDamaged
	case containsAny(folded, goodTerms):
		return types.StickerGood
	case containsAny(folded, mintTerms):
		return types.StickerMint
	default:
		return types.StickerMint
	}
}

func containsAny(s string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(s, term) {
			return true
		}
	}
	return false
}

// KnownStickerTypes returns the sticker vocabulary in priority order.
// Reconciliation uses this order when several distinct types are detected
// across query variants.
func KnownStickerTypes() []types.StickerType {
	out := make([]types.StickerType, 0, len(stickerTable))
	for _, entry := range stickerTable {
		out = append(out, entry.label)
	}
	return out
}
