package datastore

import (
	"context"

	"codedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCode(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Code)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Code)(nil)).Index("index_code_batch_id").IfNotExists().Column("batch_id").Exec(ctx)
	if err != nil {
		return err
	}

	// Partial index keeps the hot eligibility scan off claimed rows.
	_, err = db.NewRaw(`
		CREATE INDEX IF NOT EXISTS index_code_unclaimed
		ON code (batch_id, id)
		WHERE claimed = FALSE AND developer_reserved = FALSE
	`).Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

// BulkInsertCodes loads a batch's codes in one statement. Used by the batch
// creation workflow only; codes are never updated afterwards except by the
// claim transition.
func BulkInsertCodes(ctx context.Context, db *bun.DB, codes []models.Code) error {
	if len(codes) == 0 {
		return nil
	}

	_, err := db.NewInsert().Model(&codes).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func CountUnclaimedCodes(ctx context.Context, db *bun.DB, batchID string) (int, error) {
	count, err := db.NewSelect().Model((*models.Code)(nil)).
		Where("batch_id = ?", batchID).
		Where("claimed = FALSE").
		Where("developer_reserved = FALSE").
		Count(ctx)
	if err != nil {
		return 0, err
	}

	return count, nil
}
