package storage

import (
	"context"
	"fmt"

	"github.com/pop-scanner/internal/models"
)

// PriceHistoryRepository handles price history persistence. Rows are insert
// only; aggregation happens in the database.
type PriceHistoryRepository struct {
	db *PostgresDB
}

// NewPriceHistoryRepository creates a new price history repository
func NewPriceHistoryRepository(db *PostgresDB) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: db}
}

// BulkInsert writes all records in one transaction. Any single failure rolls
// the whole batch back; there is no partial success.
func (r *PriceHistoryRepository) BulkInsert(ctx context.Context, records []*models.PriceHistory) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO price_history (
			id, funko_pop_id, source, price, condition,
			listing_url, date_scraped, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for _, record := range records {
		_, err := tx.Exec(ctx, query,
			record.ID,
			record.FunkoPopID,
			record.Source,
			record.Price,
			record.Condition,
			record.ListingURL,
			record.DateScraped,
			record.Metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to insert price history record: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit price history batch: %w", err)
	}

	return nil
}

// CountForPop returns the number of persisted observations for a catalog
// item, used by the admin surface and tests.
func (r *PriceHistoryRepository) CountForPop(ctx context.Context, funkoPopID string) (int64, error) {
	var count int64
	err := r.db.Pool().QueryRow(ctx,
		`SELECT COUNT(*) FROM price_history WHERE funko_pop_id = $1`,
		funkoPopID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count price history: %w", err)
	}
	return count, nil
}
