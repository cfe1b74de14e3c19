// Package types provides common type definitions for the pop scanner system.
package types

import "encoding/json"

// StickerType identifies the exclusive-release channel printed on a pop's
// packaging. Values mirror the labels stored in the catalog.
type StickerType string

const (
	// StickerSDCC represents a San Diego Comic-Con convention exclusive
	StickerSDCC StickerType = "SDCC"
	// StickerNYCC represents a New York Comic-Con convention exclusive
	StickerNYCC StickerType = "NYCC"
	// StickerFunkoShop represents a Funko Shop direct exclusive
	StickerFunkoShop StickerType = "FUNKO SHOP"
	// StickerHotTopic represents a Hot Topic retailer exclusive
	StickerHotTopic StickerType = "HOT TOPIC"
	// StickerBoxLunch represents a BoxLunch retailer exclusive
	StickerBoxLunch StickerType = "BOXLUNCH"
	// StickerTarget represents a Target retailer exclusive
	StickerTarget StickerType = "TARGET"
	// StickerWalmart represents a Walmart retailer exclusive
	StickerWalmart StickerType = "WALMART"
	// StickerGameStop represents a GameStop retailer exclusive
	StickerGameStop StickerType = "GAMESTOP"
	// StickerChase represents a chase rare-variant production run
	StickerChase StickerType = "CHASE"
)

// StickerCondition grades the sticker itself, not the figure
type StickerCondition string

const (
	StickerMint    StickerCondition = "mint"
	StickerGood    StickerCondition = "good"
	StickerDamaged StickerCondition = "damaged"
)

// ItemCondition grades the listed figure. Listing text rarely carries a
// reliable grade, so live extraction always tags observations mint and the
// synthetic fallback tags them near_mint.
type ItemCondition string

const (
	ConditionMint     ItemCondition = "mint"
	ConditionNearMint ItemCondition = "near_mint"
)

// JobStatus represents the lifecycle state of a scrape job
type JobStatus string

const (
	// JobStatusPending represents a job waiting to be picked up
	JobStatusPending JobStatus = "pending"
	// JobStatusRunning represents a job currently being processed
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted represents a successfully completed job
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed represents a failed job
	JobStatusFailed JobStatus = "failed"
)

// PriceObservation is the unit the extraction pipeline produces. Observations
// are transient; surviving ones become price_history rows.
type PriceObservation struct {
	Price            float64           `json:"price"`
	Condition        ItemCondition     `json:"condition"`
	StickerType      *StickerType      `json:"stickerType,omitempty"`
	StickerCondition *StickerCondition `json:"stickerCondition,omitempty"`
	SearchQuery      string            `json:"searchQuery"`
	ListingURL       string            `json:"listingUrl"`
}

// HasSticker reports whether an exclusive marker was detected. Derived from
// StickerType so the two can never disagree.
func (o *PriceObservation) HasSticker() bool {
	return o.StickerType != nil
}

// VariantMetadata is the explicit value type serialized into the
// price_history metadata column.
type VariantMetadata struct {
	StickerType      *StickerType      `json:"sticker_type"`
	StickerCondition *StickerCondition `json:"sticker_condition"`
	HasSticker       bool              `json:"has_sticker"`
}

// Metadata builds the persisted variant metadata for an observation.
func (o *PriceObservation) Metadata() VariantMetadata {
	return VariantMetadata{
		StickerType:      o.StickerType,
		StickerCondition: o.StickerCondition,
		HasSticker:       o.HasSticker(),
	}
}

// MarshalMetadata serializes the variant metadata blob for storage.
func (o *PriceObservation) MarshalMetadata() ([]byte, error) {
	return json.Marshal(o.Metadata())
}

// ServiceError represents a structured error response
type ServiceError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return e.Code + ": " + e.Message
}

// NewServiceError creates a new service error
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}
