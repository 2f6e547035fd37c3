package datastore

import (
	"context"
	"time"

	"codedrop/internal/models"

	"github.com/uptrace/bun"
)

func CreateTableWebhook(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.Webhook)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.Webhook)(nil)).Index("index_webhook_project_id").IfNotExists().Column("project_id").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func CreateTableWebhookDelivery(ctx context.Context, db *bun.DB) error {
	_, err := db.NewCreateTable().Model((*models.WebhookDelivery)(nil)).IfNotExists().Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().Model((*models.WebhookDelivery)(nil)).Index("index_webhook_delivery_status").IfNotExists().Column("status").Exec(ctx)
	if err != nil {
		return err
	}

	return nil
}

func InsertWebhook(ctx context.Context, db *bun.DB, webhook *models.Webhook) error {
	_, err := db.NewInsert().Model(webhook).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func GetEnabledWebhooks(ctx context.Context, db *bun.DB, projectID string) ([]models.Webhook, error) {
	var webhooks []models.Webhook
	err := db.NewSelect().Model(&webhooks).
		Where("project_id = ?", projectID).
		Where("enabled = TRUE").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return webhooks, nil
}

func GetWebhook(ctx context.Context, db *bun.DB, id string) (*models.Webhook, error) {
	var webhook models.Webhook
	err := db.NewSelect().Model(&webhook).Where("id = ?", id).Scan(ctx)
	if err != nil {
		return nil, err
	}

	return &webhook, nil
}

func InsertWebhookDelivery(ctx context.Context, db *bun.DB, delivery *models.WebhookDelivery) error {
	_, err := db.NewInsert().Model(delivery).Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

func UpdateWebhookDelivery(ctx context.Context, db *bun.DB, delivery *models.WebhookDelivery) error {
	delivery.UpdatedAt = time.Now()
	_, err := db.NewUpdate().Model(delivery).
		Column("status", "attempts", "response_code", "last_error", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	return nil
}

// GetRetryableDeliveries returns pending deliveries still under the attempt
// cap, oldest first. The age cutoff keeps the cron from racing a first
// attempt that is still in flight.
func GetRetryableDeliveries(ctx context.Context, db *bun.DB, maxAttempts, limit int) ([]models.WebhookDelivery, error) {
	cutoff := time.Now().Add(-30 * time.Second)

	var deliveries []models.WebhookDelivery
	err := db.NewSelect().Model(&deliveries).
		Where("status = ?", models.DeliveryStatusPending).
		Where("attempts < ?", maxAttempts).
		Where("created_at < ?", cutoff).
		OrderExpr("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return deliveries, nil
}
