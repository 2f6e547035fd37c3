package models

import (
	"time"

	"github.com/uptrace/bun"
)

type BatchStatus string

const (
	BatchStatusPending    BatchStatus = "pending"
	BatchStatusProcessing BatchStatus = "processing"
	BatchStatusCompleted  BatchStatus = "completed"
	BatchStatusFailed     BatchStatus = "failed"
)

type CodeBatch struct {
	bun.BaseModel `bun:"table:code_batch,alias:batch"`

	ID               string      `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	ProjectID        string      `bun:"project_id,type:uuid" json:"project_id"`
	Name             string      `bun:"name" json:"name"`
	Platform         Platform    `bun:"platform" json:"platform"`
	Status           BatchStatus `bun:"status,default:'completed'" json:"status"`
	TotalCodes       int         `bun:"total_codes" json:"total_codes"`
	ReservedCodes    int         `bun:"reserved_codes" json:"reserved_codes"`
	UsedCodes        int         `bun:"used_codes" json:"used_codes"`
	ExpiresAt        *time.Time  `bun:"expires_at" json:"expires_at"`
	LowNotified      bool        `bun:"low_notified" json:"-"`
	EmptyNotified    bool        `bun:"empty_notified" json:"-"`
	AppStoreID       string      `bun:"app_store_id" json:"app_store_id"`
	PlayStorePackage string      `bun:"play_store_package" json:"play_store_package"`
	SteamAppID       string      `bun:"steam_app_id" json:"steam_app_id"`
	CreatedAt        time.Time   `bun:"created_at,default:current_timestamp" json:"created_at"`
	DeletedAt        *time.Time  `bun:"deleted_at" json:"-"`
}

func (b *CodeBatch) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && b.ExpiresAt.Before(now)
}

// Remaining counts the codes still claimable by the public. Developer
// reserved rows are never claimable, so they sit outside both sides of the
// subtraction.
func (b *CodeBatch) Remaining() int {
	return b.TotalCodes - b.ReservedCodes - b.UsedCodes
}

// LowThresholdCrossed reports whether a claim that left remaining claimable
// codes moved the batch from above the threshold to at or below it. A batch
// that started at or below the threshold never crosses.
func LowThresholdCrossed(remaining int, threshold int) bool {
	return threshold > 0 && remaining <= threshold && remaining+1 > threshold
}

// PlatformAvailability is the public availability summary for one platform,
// aggregated over all eligible batches of a project.
type PlatformAvailability struct {
	Available        bool   `json:"available"`
	Count            int    `json:"count"`
	AppStoreID       string `json:"app_store_id,omitempty"`
	PlayStorePackage string `json:"play_store_package,omitempty"`
	SteamAppID       string `json:"steam_app_id,omitempty"`
}
