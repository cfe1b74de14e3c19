package scraper

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer spaces out successive fetch-collaborator calls. Pacing is a courtesy
// to the upstream API, not a correctness requirement, so tests inject a no-op
// instead of sleeping.
type Pacer interface {
	Wait(ctx context.Context) error
}

// ratePacer paces with a token bucket of depth one, so the first call passes
// immediately and each subsequent call waits out the interval.
type ratePacer struct {
	limiter *rate.Limiter
}

// NewPacer creates a pacer that allows one call per interval.
func NewPacer(interval time.Duration) Pacer {
	return &ratePacer{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

func (p *ratePacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// NopPacer never waits.
type NopPacer struct{}

func (NopPacer) Wait(ctx context.Context) error { return nil }
