package models

import (
	"time"

	"github.com/pop-scanner/internal/types"
)

// ScrapeJob tracks one scheduled or manual scraping run. Jobs are created by
// the scheduler before the scraper is invoked; the scraper only transitions
// status and stamps the scheduling fields.
type ScrapeJob struct {
	ID            string          `json:"id" db:"id"`
	FunkoPopID    string          `json:"funkoPopId" db:"funko_pop_id"`
	Status        types.JobStatus `json:"status" db:"status"`
	ErrorMessage  *string         `json:"errorMessage,omitempty" db:"error_message"`
	LastScraped   *time.Time      `json:"lastScraped,omitempty" db:"last_scraped"`
	NextScrapeDue *time.Time      `json:"nextScrapeDue,omitempty" db:"next_scrape_due"`
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"`
}
