package services

import (
	"sync"
	"testing"

	"codedrop/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPendingDeliveriesPairsEachWebhook(t *testing.T) {
	webhooks := []models.Webhook{
		{ID: "hook-a", URL: "https://a.example.com", Secret: "sa", Enabled: true},
		{ID: "hook-b", URL: "https://b.example.com", Secret: "sb", Enabled: true},
		{ID: "hook-c", URL: "https://c.example.com", Secret: "sc", Enabled: true},
	}

	outs := pendingDeliveries(webhooks, models.EventBatchLow, []byte(`{}`))
	require.Len(t, outs, 3)

	for i, out := range outs {
		assert.Equal(t, webhooks[i].ID, out.webhook.ID)
		assert.Equal(t, out.webhook.ID, out.delivery.WebhookID)
		assert.Equal(t, models.DeliveryStatusPending, out.delivery.Status)
	}

	// Goroutines started during the fan-out must each see their own
	// webhook, even when they run after the loop has finished.
	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := map[string]int{}
	release := make(chan struct{})

	for _, out := range outs {
		wg.Add(1)
		go func(webhook *models.Webhook, delivery *models.WebhookDelivery) {
			defer wg.Done()
			<-release
			mu.Lock()
			defer mu.Unlock()
			if webhook.ID == delivery.WebhookID {
				seen[webhook.ID]++
			}
		}(out.webhook, out.delivery)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, map[string]int{"hook-a": 1, "hook-b": 1, "hook-c": 1}, seen)
}

func TestPendingDeliveriesSkipsUnsubscribed(t *testing.T) {
	webhooks := []models.Webhook{
		{ID: "hook-a", Events: []string{models.EventBatchEmpty}},
		{ID: "hook-b", Events: []string{models.EventBatchLow}},
		{ID: "hook-c"},
	}

	outs := pendingDeliveries(webhooks, models.EventBatchLow, []byte(`{}`))
	require.Len(t, outs, 2)
	assert.Equal(t, "hook-b", outs[0].webhook.ID)
	assert.Equal(t, "hook-c", outs[1].webhook.ID)
}
