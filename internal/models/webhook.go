package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Webhook struct {
	bun.BaseModel `bun:"table:webhook,alias:webhook"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ProjectID string    `bun:"project_id,type:uuid" json:"project_id"`
	URL       string    `bun:"url" json:"url"`
	Secret    string    `bun:"secret" json:"-"`
	Events    []string  `bun:"events,array" json:"events"`
	Enabled   bool      `bun:"enabled" json:"enabled"`
	CreatedAt time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// SubscribedTo reports whether the webhook wants the event. An empty event
// list means everything.
func (w *Webhook) SubscribedTo(event string) bool {
	if len(w.Events) == 0 {
		return true
	}
	for _, e := range w.Events {
		if e == event {
			return true
		}
	}
	return false
}

type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
	DeliveryStatusFailed    DeliveryStatus = "failed"
)

type WebhookDelivery struct {
	bun.BaseModel `bun:"table:webhook_delivery,alias:delivery"`

	ID           string         `bun:"id,pk,type:uuid" json:"id"`
	WebhookID    string         `bun:"webhook_id,type:uuid" json:"webhook_id"`
	Event        string         `bun:"event" json:"event"`
	Payload      []byte         `bun:"payload" json:"-"`
	Status       DeliveryStatus `bun:"status,default:'pending'" json:"status"`
	Attempts     int            `bun:"attempts" json:"attempts"`
	ResponseCode int            `bun:"response_code" json:"response_code"`
	LastError    string         `bun:"last_error" json:"last_error"`
	CreatedAt    time.Time      `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt    time.Time      `bun:"updated_at" json:"updated_at"`
}
