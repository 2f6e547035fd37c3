package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"codedrop/internal/datastore"
	"codedrop/internal/models"
	"codedrop/internal/pkg"

	"github.com/gojek/heimdall/v7/httpclient"
	"github.com/google/uuid"
	"github.com/samber/do"
	"github.com/uptrace/bun"
)

type ServiceDispatcher struct {
	container     *do.Injector
	postgresDB    *bun.DB
	serviceConfig *ServiceConfig
	client        *httpclient.Client
}

func NewServiceDispatcher(container *do.Injector) (*ServiceDispatcher, error) {
	postgresDB, err := do.Invoke[*bun.DB](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	timeoutMS, err := serviceConfig.GetIntConfig(context.Background(), CONFIG_WEBHOOK_TIMEOUT_IN_MILLIS, DEFAULT_WEBHOOK_TIMEOUT_MS)
	if err != nil {
		timeoutMS = DEFAULT_WEBHOOK_TIMEOUT_MS
	}

	client := httpclient.NewClient(
		httpclient.WithHTTPTimeout(time.Duration(timeoutMS) * time.Millisecond),
		httpclient.WithRetryCount(1),
	)

	return &ServiceDispatcher{container, postgresDB, serviceConfig, client}, nil
}

// Emit fans an event out to the owner dashboard and to every subscribed
// webhook. It never blocks on delivery and never propagates delivery
// failures; each webhook gets a durable delivery row retried by the cron.
func (service *ServiceDispatcher) Emit(ctx context.Context, event string, projectID string, payload map[string]any) {
	if event != models.EventCodeRedeemed {
		notification := notificationFor(event, projectID, payload)
		if notification != nil {
			if err := datastore.InsertNotification(ctx, service.postgresDB, notification); err != nil {
				log.Printf("dispatcher: insert notification %s: %v", event, err)
			}
		}
	}

	webhooks, err := datastore.GetEnabledWebhooks(ctx, service.postgresDB, projectID)
	if err != nil {
		log.Printf("dispatcher: load webhooks %s: %v", projectID, err)
		return
	}

	body, err := json.Marshal(map[string]any{
		"event":      event,
		"project_id": projectID,
		"created_at": time.Now().UTC().Format(time.RFC3339),
		"data":       payload,
	})
	if err != nil {
		log.Printf("dispatcher: marshal %s: %v", event, err)
		return
	}

	for _, out := range pendingDeliveries(webhooks, event, body) {
		if err := datastore.InsertWebhookDelivery(ctx, service.postgresDB, out.delivery); err != nil {
			log.Printf("dispatcher: insert delivery %s: %v", out.webhook.ID, err)
			continue
		}

		go service.Deliver(context.Background(), out.webhook, out.delivery)
	}
}

type outboundDelivery struct {
	webhook  *models.Webhook
	delivery *models.WebhookDelivery
}

// pendingDeliveries pairs each subscribed webhook with a fresh pending row.
// Each pair points into the webhooks slice, so a delivery goroutine always
// posts to its own webhook.
func pendingDeliveries(webhooks []models.Webhook, event string, body []byte) []outboundDelivery {
	var out []outboundDelivery
	for i := range webhooks {
		webhook := &webhooks[i]
		if !webhook.SubscribedTo(event) {
			continue
		}

		out = append(out, outboundDelivery{
			webhook: webhook,
			delivery: &models.WebhookDelivery{
				ID:        uuid.NewString(),
				WebhookID: webhook.ID,
				Event:     event,
				Payload:   body,
				Status:    models.DeliveryStatusPending,
				CreatedAt: time.Now(),
			},
		})
	}
	return out
}

// Deliver attempts one POST and records the outcome on the delivery row.
func (service *ServiceDispatcher) Deliver(ctx context.Context, webhook *models.Webhook, delivery *models.WebhookDelivery) {
	maxAttempts, err := service.serviceConfig.GetIntConfig(ctx, CONFIG_WEBHOOK_MAX_ATTEMPTS, DEFAULT_WEBHOOK_MAX_ATTEMPTS)
	if err != nil {
		maxAttempts = DEFAULT_WEBHOOK_MAX_ATTEMPTS
	}

	delivery.Attempts++
	delivery.ResponseCode = 0
	delivery.LastError = ""

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook.URL, bytes.NewReader(delivery.Payload))
	if err != nil {
		delivery.LastError = err.Error()
	} else {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(WEBHOOK_EVENT_HEADER, delivery.Event)
		req.Header.Set(WEBHOOK_SIGNATURE_HEADER, pkg.SignHMAC(delivery.Payload, webhook.Secret))

		resp, err := service.client.Do(req)
		if err != nil {
			delivery.LastError = err.Error()
		} else {
			resp.Body.Close()
			delivery.ResponseCode = resp.StatusCode
			if resp.StatusCode < 300 {
				delivery.Status = models.DeliveryStatusDelivered
			} else {
				delivery.LastError = fmt.Sprintf("unexpected status %d", resp.StatusCode)
			}
		}
	}

	if delivery.Status != models.DeliveryStatusDelivered && delivery.Attempts >= maxAttempts {
		delivery.Status = models.DeliveryStatusFailed
	}

	if err := datastore.UpdateWebhookDelivery(ctx, service.postgresDB, delivery); err != nil {
		log.Printf("dispatcher: update delivery %s: %v", delivery.ID, err)
	}
}

// Redeliver picks up pending deliveries that still have attempts left and
// retries them synchronously. Invoked from the cron under a redsync lock.
func (service *ServiceDispatcher) Redeliver(ctx context.Context, limit int) error {
	maxAttempts, err := service.serviceConfig.GetIntConfig(ctx, CONFIG_WEBHOOK_MAX_ATTEMPTS, DEFAULT_WEBHOOK_MAX_ATTEMPTS)
	if err != nil {
		maxAttempts = DEFAULT_WEBHOOK_MAX_ATTEMPTS
	}

	deliveries, err := datastore.GetRetryableDeliveries(ctx, service.postgresDB, maxAttempts, limit)
	if err != nil {
		return err
	}

	for i := range deliveries {
		delivery := &deliveries[i]
		webhook, err := datastore.GetWebhook(ctx, service.postgresDB, delivery.WebhookID)
		if err != nil {
			log.Printf("dispatcher: load webhook %s: %v", delivery.WebhookID, err)
			continue
		}
		if !webhook.Enabled {
			continue
		}
		service.Deliver(ctx, webhook, delivery)
	}

	return nil
}

func notificationFor(event string, projectID string, payload map[string]any) *models.Notification {
	switch event {
	case models.EventBatchLow:
		return &models.Notification{
			ProjectID: projectID,
			Type:      event,
			Title:     "Codes running low",
			Body:      fmt.Sprintf("Batch %v (%v) has %v codes left", payload["batch_name"], payload["platform"], payload["remaining"]),
		}
	case models.EventBatchEmpty:
		return &models.Notification{
			ProjectID: projectID,
			Type:      event,
			Title:     "Batch exhausted",
			Body:      fmt.Sprintf("Batch %v (%v) has no codes left", payload["batch_name"], payload["platform"]),
		}
	case models.EventMilestone:
		return &models.Notification{
			ProjectID: projectID,
			Type:      event,
			Title:     "Milestone reached",
			Body:      fmt.Sprintf("Project passed %v redemptions", payload["milestone"]),
		}
	}
	return nil
}
