package models

import "errors"

// Allocation failure taxonomy. Policy rejections and resource exhaustion are
// distinct errors so callers can render stable machine-readable reasons.
var (
	ErrProjectNotFound  = errors.New("project not found")
	ErrCampaignExpired  = errors.New("campaign expired")
	ErrAuthRequired     = errors.New("authentication required")
	ErrPlatformRequired = errors.New("platform required")
	ErrInvalidPlatform  = errors.New("invalid platform")
	ErrBundlesDisabled  = errors.New("bundles disabled")
	ErrRateLimited      = errors.New("too many redemption attempts")
	ErrNoCodesAvailable = errors.New("no codes available")
	ErrClaimContention  = errors.New("claim transaction contention")
)
