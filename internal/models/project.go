package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Project struct {
	bun.BaseModel `bun:"table:project,alias:project"`

	ID                  string     `bun:"id,pk,type:uuid,default:gen_random_uuid()" json:"id"`
	Slug                string     `bun:"slug,unique" json:"slug"`
	Name                string     `bun:"name" json:"name"`
	Description         string     `bun:"description" json:"description"`
	IconURL             string     `bun:"icon_url" json:"icon_url"`
	WebsiteURL          string     `bun:"website_url" json:"website_url"`
	Active              bool       `bun:"is_active" json:"is_active"`
	ExpiresAt           *time.Time `bun:"expires_at" json:"expires_at"`
	RequireAuth         bool       `bun:"require_auth" json:"require_auth"`
	EnableBundles       bool       `bun:"enable_bundles" json:"enable_bundles"`
	RetainRedeemerEmail bool       `bun:"retain_redeemer_email" json:"retain_redeemer_email"`
	LowCodeThreshold    int        `bun:"low_code_threshold" json:"low_code_threshold"`
	RedeemedCount       int64      `bun:"redeemed_count" json:"redeemed_count"`
	LastMilestone       int64      `bun:"last_milestone" json:"last_milestone"`
	CreatedAt           time.Time  `bun:"created_at,default:current_timestamp" json:"created_at"`
	UpdatedAt           time.Time  `bun:"updated_at" json:"updated_at"`
	DeletedAt           *time.Time `bun:"deleted_at" json:"-"`
}

// Expired reports whether the campaign-level cutoff has passed.
func (p *Project) Expired(now time.Time) bool {
	return p.ExpiresAt != nil && p.ExpiresAt.Before(now)
}

// Milestones is the fixed set of project-wide redemption milestones.
var Milestones = []int64{100, 500, 1000, 5000, 10000}

// MilestonesCrossed returns every milestone value passed when the redemption
// counter moves from prev to cur. A bulk claim jumping over several
// boundaries reports all of them.
func MilestonesCrossed(prev, cur int64) []int64 {
	var crossed []int64
	for _, m := range Milestones {
		if prev < m && cur >= m {
			crossed = append(crossed, m)
		}
	}
	return crossed
}
