package services

import (
	"fmt"
	"strings"
	"time"
)

const (
	CONFIG_RATE_LIMIT_PER_MINUTE     = "RATE_LIMIT_PER_MINUTE"
	CONFIG_WEBHOOK_MAX_ATTEMPTS      = "WEBHOOK_MAX_ATTEMPTS"
	CONFIG_WEBHOOK_TIMEOUT_IN_MILLIS = "WEBHOOK_TIMEOUT_IN_MILLIS"

	DEFAULT_RATE_LIMIT_PER_MINUTE = 10
	DEFAULT_WEBHOOK_MAX_ATTEMPTS  = 5
	DEFAULT_WEBHOOK_TIMEOUT_MS    = 5000

	REASON_CAMPAIGN_EXPIRED  = "campaign_expired"
	REASON_AUTH_REQUIRED     = "auth_required"
	REASON_RATE_LIMITED      = "rate_limited"
	REASON_NO_CODES          = "no_codes_available"
	REASON_PLATFORM_REQUIRED = "platform_required"
	REASON_INVALID_PLATFORM  = "invalid_platform"
	REASON_BUNDLES_DISABLED  = "bundles_disabled"

	CACHE_TTL_15_SECONDS = 15 * time.Second
	CACHE_TTL_5_MINS     = 5 * time.Minute

	WEBHOOK_SIGNATURE_HEADER = "X-Codedrop-Signature"
	WEBHOOK_EVENT_HEADER     = "X-Codedrop-Event"
)

func LockKeyClaim(identityKey string) string {
	return fmt.Sprintf("lock:claim:%s", identityKey)
}

func LockKeyAvailability(projectID string) string {
	return fmt.Sprintf("lock:availability:%s", projectID)
}

func LockKeyRedelivery() string {
	return "lock:webhook-redelivery"
}

func LockKeyBatchSweep() string {
	return "lock:batch-sweep"
}

// db
func DBKeyProject(slug string) string {
	return fmt.Sprintf("project:%s", strings.ToLower(slug))
}

func DBKeyProjectStats(projectID string) string {
	return fmt.Sprintf("project_stats:%s", projectID)
}

func DBKeyConfig(key string) string {
	return fmt.Sprintf("config:%s", strings.ToLower(key))
}

func LimitKeyRedeem(projectID string, identityKey string) string {
	return fmt.Sprintf("limit:redeem:%s:%s", projectID, identityKey)
}
