package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/pop-scanner/internal/logging"
	"github.com/pop-scanner/internal/scraper"
	"github.com/pop-scanner/internal/service"
)

// scrapeRequest is the invocation contract: one job, one catalog item.
type scrapeRequest struct {
	JobID        string `json:"jobId"`
	FunkoPopID   string `json:"funkoPopId"`
	FunkoPopData struct {
		Name   string  `json:"name"`
		Series string  `json:"series"`
		Number *string `json:"number,omitempty"`
	} `json:"funkoPopData"`
	IsManual bool `json:"isManual"`
}

type scrapeResponse struct {
	Message              string   `json:"message"`
	PricesFound          int      `json:"pricesFound"`
	SearchQuery          string   `json:"searchQuery"`
	StickerTypesDetected []string `json:"stickerTypesDetected"`
	UsedFirecrawl        bool     `json:"usedFirecrawl"`
}

// handleScrape handles POST /api/scrape - run the pricing pipeline for one
// catalog item. A run either fully persists its findings or reports total
// failure; there is no partial-success response.
func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	logger := logging.FromContext(r.Context())

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		s.failScrape(w, r, body, fmt.Errorf("failed to read request body: %w", err))
		return
	}

	req, err := parseScrapeRequest(body)
	if err != nil {
		s.failScrape(w, r, body, err)
		return
	}

	input := &service.RunInput{
		JobID: req.JobID,
		Item: scraper.CatalogItem{
			ID:     req.FunkoPopID,
			Name:   req.FunkoPopData.Name,
			Series: req.FunkoPopData.Series,
			Number: req.FunkoPopData.Number,
		},
		IsManual: req.IsManual,
	}

	summary, err := s.scrapeService.Run(r.Context(), input)
	if err != nil {
		s.failScrape(w, r, body, err)
		return
	}

	stickerTypes := make([]string, 0, len(summary.StickerTypesDetected))
	for _, st := range summary.StickerTypesDetected {
		stickerTypes = append(stickerTypes, string(st))
	}

	logger.WithFields(map[string]interface{}{
		"jobId":  req.JobID,
		"prices": summary.PricesFound,
	}).Info("Scrape request succeeded")

	respondJSON(w, http.StatusOK, scrapeResponse{
		Message:              "Scraping completed successfully",
		PricesFound:          summary.PricesFound,
		SearchQuery:          summary.SearchQuery,
		StickerTypesDetected: stickerTypes,
		UsedFirecrawl:        summary.UsedFirecrawl,
	})
}

// parseScrapeRequest decodes and validates the invocation body. Missing
// required fields are fatal to the run.
func parseScrapeRequest(body []byte) (*scrapeRequest, error) {
	var req scrapeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid request body: %w", err)
	}
	if req.JobID == "" {
		return nil, fmt.Errorf("missing required field: jobId")
	}
	if req.FunkoPopID == "" {
		return nil, fmt.Errorf("missing required field: funkoPopId")
	}
	if req.FunkoPopData.Name == "" {
		return nil, fmt.Errorf("missing required field: funkoPopData.name")
	}
	return &req, nil
}

// failScrape reports a failed run. It best-effort re-parses the original
// body to recover the jobId and mark the job failed; a secondary failure is
// logged without changing the HTTP response.
func (s *Server) failScrape(w http.ResponseWriter, r *http.Request, body []byte, runErr error) {
	logger := logging.FromContext(r.Context())
	logger.WithError(runErr).Error("Scrape request failed")

	var recovered struct {
		JobID string `json:"jobId"`
	}
	if err := json.Unmarshal(body, &recovered); err == nil && recovered.JobID != "" {
		if err := s.jobRepo.MarkFailed(r.Context(), recovered.JobID, runErr.Error()); err != nil {
			logger.WithError(err).WithField("jobId", recovered.JobID).Error("Failed to mark scrape job failed")
		}
	}

	respondError(w, http.StatusInternalServerError, runErr.Error())
}
