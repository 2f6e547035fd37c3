package models

import (
	"time"

	"github.com/uptrace/bun"
)

// RedemptionLog is the append-only attempt log. It feeds analytics only and
// is never read back on the allocation path.
type RedemptionLog struct {
	bun.BaseModel `bun:"table:redemption_log,alias:rlog"`

	ID                int64     `bun:"id,pk,autoincrement" json:"id"`
	ProjectID         string    `bun:"project_id,type:uuid" json:"project_id"`
	BatchID           *string   `bun:"batch_id,type:uuid" json:"batch_id"`
	CodeID            *string   `bun:"code_id,type:uuid" json:"code_id"`
	RequestedPlatform string    `bun:"requested_platform" json:"requested_platform"`
	DetectedPlatform  string    `bun:"detected_platform" json:"detected_platform"`
	Success           bool      `bun:"success" json:"success"`
	FailureReason     string    `bun:"failure_reason" json:"failure_reason"`
	Fingerprint       string    `bun:"fingerprint" json:"fingerprint"`
	IPHash            string    `bun:"ip_hash" json:"ip_hash"`
	UserAgent         string    `bun:"user_agent" json:"user_agent"`
	CreatedAt         time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}
