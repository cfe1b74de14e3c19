package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pop-scanner/internal/models"
	"github.com/pop-scanner/internal/types"
)

// FunkoPopRepository handles catalog item access. The catalog is owned by the
// admin surface; the scraper only reads identity fields and writes sticker
// metadata.
type FunkoPopRepository struct {
	db *PostgresDB
}

// NewFunkoPopRepository creates a new funko pop repository
func NewFunkoPopRepository(db *PostgresDB) *FunkoPopRepository {
	return &FunkoPopRepository{db: db}
}

// Get retrieves a catalog item by id
func (r *FunkoPopRepository) Get(ctx context.Context, id string) (*models.FunkoPop, error) {
	query := `
		SELECT id, name, series, number, sticker_type,
			   is_stickered, sticker_condition, updated_at
		FROM funko_pops
		WHERE id = $1
	`

	var pop models.FunkoPop
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&pop.ID,
		&pop.Name,
		&pop.Series,
		&pop.Number,
		&pop.StickerType,
		&pop.IsStickered,
		&pop.StickerCondition,
		&pop.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("funko pop not found: %s", id)
		}
		return nil, fmt.Errorf("failed to get funko pop: %w", err)
	}

	return &pop, nil
}

// UpdateStickerInfo writes detected variant evidence back to the catalog row.
func (r *FunkoPopRepository) UpdateStickerInfo(ctx context.Context, id string, stickerType types.StickerType, stickerCondition types.StickerCondition) error {
	query := `
		UPDATE funko_pops
		SET sticker_type = $2, is_stickered = TRUE,
			sticker_condition = $3, updated_at = $4
		WHERE id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query, id, stickerType, stickerCondition, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to update sticker info: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("funko pop not found: %s", id)
	}

	return nil
}

// RecalculatePricing invokes the stored procedure that recomputes the
// item's summary pricing (average, trend) from its price history. The
// scraper never computes aggregates itself.
func (r *FunkoPopRepository) RecalculatePricing(ctx context.Context, id string) error {
	if _, err := r.db.Pool().Exec(ctx, `SELECT update_funko_pop_pricing($1)`, id); err != nil {
		return fmt.Errorf("failed to recalculate pricing: %w", err)
	}
	return nil
}
