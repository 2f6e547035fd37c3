package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Code struct {
	bun.BaseModel `bun:"table:code,alias:code"`

	ID                string     `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	BatchID           string     `bun:"batch_id,type:uuid" json:"batch_id"`
	Value             string     `bun:"value" json:"value"`
	Claimed           bool       `bun:"claimed" json:"claimed"`
	ClaimedAt         *time.Time `bun:"claimed_at" json:"claimed_at"`
	DeveloperReserved bool       `bun:"developer_reserved" json:"developer_reserved"`
	BundleID          *string    `bun:"bundle_id,type:uuid" json:"bundle_id"`

	// Claim metadata, written atomically with the claimed transition.
	RedeemerFingerprint string   `bun:"redeemer_fingerprint" json:"-"`
	RedeemerIPHash      string   `bun:"redeemer_ip_hash" json:"-"`
	RedeemerPlatform    Platform `bun:"redeemer_platform" json:"-"`
	RedeemerUserAgent   string   `bun:"redeemer_user_agent" json:"-"`
	RedeemerEmail       *string  `bun:"redeemer_email" json:"-"`

	CreatedAt time.Time `bun:"created_at,default:current_timestamp" json:"created_at"`
}

// ClaimMeta carries the requester details stamped onto a code when it is
// claimed. Hashes only, raw IPs are never persisted.
type ClaimMeta struct {
	FingerprintHash string
	IPHash          string
	UserAgent       string
	Email           *string
}

// ClaimedCode pairs a claimed code with its batch so callers can build the
// post-redemption redirect hints without another read.
type ClaimedCode struct {
	Code  *Code
	Batch *CodeBatch
}

const (
	EventCodeRedeemed = "code.redeemed"
	EventBatchLow     = "batch.low"
	EventBatchEmpty   = "batch.empty"
	EventMilestone    = "project.milestone"
)

// Crossing records a threshold boundary passed by a claim. The pool store
// claims each crossing's marker inside the claim transaction so a crossing is
// produced exactly once no matter how many concurrent claims caused it.
type Crossing struct {
	Event     string
	BatchID   string
	BatchName string
	Platform  Platform
	Remaining int
	Milestone int64
}

// ClaimResult is the outcome of a successful ClaimOne or ClaimSet.
type ClaimResult struct {
	BundleID  string // set for bundle claims only
	Claims    []ClaimedCode
	Crossings []Crossing
}
