package datastore

import (
	"context"

	"codedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableRedemptionLog(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.RedemptionLog)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.RedemptionLog)(nil)).Index("index_redemption_log_project_id").IfNotExists().Column("project_id").Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.RedemptionLog)(nil)).Index("index_redemption_log_created_at").IfNotExists().Column("created_at").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertRedemptionLog(ctx context.Context, db *bun.DB, entry *models.RedemptionLog) error {
	_, err := db.NewInsert().Model(entry).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// AttemptLog is the append-only attempt-log boundary used by the allocation
// engine.
type AttemptLog struct {
	db *bun.DB
}

func NewAttemptLog(db *bun.DB) *AttemptLog {
	return &AttemptLog{db: db}
}

func (l *AttemptLog) Append(ctx context.Context, entry *models.RedemptionLog) error {
	return InsertRedemptionLog(ctx, l.db, entry)
}
