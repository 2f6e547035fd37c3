package datastore

import (
	"context"
	"time"

	"codedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableCodeBatch(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.CodeBatch)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CodeBatch)(nil)).Index("index_code_batch_project_id").IfNotExists().Column("project_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.CodeBatch)(nil)).Index("index_code_batch_project_platform").IfNotExists().Column("project_id", "platform").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertCodeBatch(ctx context.Context, db *bun.DB, batch *models.CodeBatch) error {
	_, err := db.NewInsert().Model(batch).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// SoftDeleteExpiredBatches retires batches whose expiry passed before the
// cutoff. Eligibility queries already exclude expired batches, so this only
// keeps the live set small; claimed codes and counters are untouched.
func SoftDeleteExpiredBatches(ctx context.Context, db *bun.DB, cutoff time.Time) (int64, error) {
	res, err := db.NewUpdate().Model((*models.CodeBatch)(nil)).
		Set("deleted_at = ?", time.Now()).
		Where("deleted_at IS NULL").
		Where("expires_at IS NOT NULL").
		Where("expires_at < ?", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

func MarkBatchStatus(ctx context.Context, db *bun.DB, batchID string, status models.BatchStatus) error {
	_, err := db.NewUpdate().Model((*models.CodeBatch)(nil)).
		Set("status = ?", status).
		Where("id = ?", batchID).
		Exec(ctx)
	return err
}

// GetProjectBatches returns every live (not soft-deleted, completed) batch of
// a project. Expiry is evaluated by the caller against its own clock.
func GetProjectBatches(ctx context.Context, db *bun.DB, projectID string) ([]models.CodeBatch, error) {
	var batches []models.CodeBatch
	err := db.NewSelect().Model(&batches).
		Where("project_id = ?", projectID).
		Where("deleted_at IS NULL").
		Where("status = ?", models.BatchStatusCompleted).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return batches, nil
}

// FoldAvailability aggregates per-platform availability over batches the way
// the public redeem page reports it: expired batches contribute nothing,
// store identifiers come from the first batch that carries them.
func FoldAvailability(batches []models.CodeBatch, now time.Time) map[models.Platform]models.PlatformAvailability {
	availability := map[models.Platform]models.PlatformAvailability{}
	for _, batch := range batches {
		entry := availability[batch.Platform]
		if batch.Expired(now) || batch.Remaining() <= 0 {
			availability[batch.Platform] = entry
			continue
		}

		entry.Available = true
		entry.Count += batch.Remaining()
		if entry.AppStoreID == "" {
			entry.AppStoreID = batch.AppStoreID
		}
		if entry.PlayStorePackage == "" {
			entry.PlayStorePackage = batch.PlayStorePackage
		}
		if entry.SteamAppID == "" {
			entry.SteamAppID = batch.SteamAppID
		}
		availability[batch.Platform] = entry
	}

	return availability
}
