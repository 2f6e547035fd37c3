package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Notification is an in-app notification surfaced on the owner dashboard.
type Notification struct {
	bun.BaseModel `bun:"table:notification,alias:notification"`

	ID        int64     `bun:"id,pk,autoincrement" json:"id"`
	ProjectID string    `bun:"project_id,type:uuid" json:"project_id"`
	Type      string    `bun:"type" json:"type"`
	Title     string    `bun:"title" json:"title"`
	Body      string    `bun:"body" json:"body"`
	Read      bool      `bun:"read" json:"read"`
	CreatedAt time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
