package models

import (
	"time"

	"github.com/pop-scanner/internal/types"
)

// PriceSourceEbay is the source tag for rows produced by this pipeline.
const PriceSourceEbay = "ebay"

// PriceHistory represents one persisted price observation. Rows are only ever
// inserted by the scraper; aggregation over them happens in the database.
type PriceHistory struct {
	ID          string              `json:"id" db:"id"`
	FunkoPopID  string              `json:"funkoPopId" db:"funko_pop_id"`
	Source      string              `json:"source" db:"source"`
	Price       float64             `json:"price" db:"price"`
	Condition   types.ItemCondition `json:"condition" db:"condition"`
	ListingURL  string              `json:"listingUrl" db:"listing_url"`
	DateScraped time.Time           `json:"dateScraped" db:"date_scraped"`
	Metadata    []byte              `json:"metadata" db:"metadata"`
}
