package datastore

import (
	"context"

	"codedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableNotification(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Notification)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Notification)(nil)).Index("index_notification_project_id").IfNotExists().Column("project_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertNotification(ctx context.Context, db *bun.DB, notification *models.Notification) error {
	_, err := db.NewInsert().Model(notification).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}
