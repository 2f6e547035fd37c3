package services

import (
	"context"
	"errors"
	"log"
	"time"

	"codedrop/internal/interfaces"
	"codedrop/internal/models"
	"codedrop/internal/pkg"
	"codedrop/internal/pkg/limiter"

	"github.com/go-redis/redis_rate/v10"
	"github.com/go-redsync/redsync/v4"
	"github.com/samber/do"
)

// RedeemRequest is everything the redemption pipeline needs from one HTTP
// request. Platform is the explicit override; when empty the platform is
// detected from UserAgent. Platforms is only set for bundle claims.
type RedeemRequest struct {
	Slug        string
	Platform    string
	Platforms   []string
	Fingerprint string
	IP          string
	UserAgent   string
	Identity    *models.Identity
}

type ServiceRedemption struct {
	container  *do.Injector
	projects   interfaces.ProjectStore
	pool       interfaces.PoolStore
	limiter    interfaces.Limiter
	attempts   interfaces.AttemptLog
	thresholds *ServiceThreshold
	rs         *redsync.Redsync

	rateLimitPerMinute int
}

func NewServiceRedemption(container *do.Injector) (*ServiceRedemption, error) {
	projects, err := do.Invoke[interfaces.ProjectStore](container)
	if err != nil {
		return nil, err
	}

	pool, err := do.Invoke[interfaces.PoolStore](container)
	if err != nil {
		return nil, err
	}

	lim, err := do.Invoke[interfaces.Limiter](container)
	if err != nil {
		return nil, err
	}

	attempts, err := do.Invoke[interfaces.AttemptLog](container)
	if err != nil {
		return nil, err
	}

	thresholds, err := do.Invoke[*ServiceThreshold](container)
	if err != nil {
		return nil, err
	}

	rs, err := do.Invoke[*redsync.Redsync](container)
	if err != nil {
		return nil, err
	}

	serviceConfig, err := do.Invoke[*ServiceConfig](container)
	if err != nil {
		return nil, err
	}

	rateLimitPerMinute, err := serviceConfig.GetIntConfig(context.Background(), CONFIG_RATE_LIMIT_PER_MINUTE, DEFAULT_RATE_LIMIT_PER_MINUTE)
	if err != nil {
		rateLimitPerMinute = DEFAULT_RATE_LIMIT_PER_MINUTE
	}

	return &ServiceRedemption{container, projects, pool, lim, attempts, thresholds, rs, rateLimitPerMinute}, nil
}

// Redeem claims exactly one code. The gates run in a fixed order: project
// lookup, campaign expiry, auth, rate limit, platform resolution, then the
// atomic claim.
func (service *ServiceRedemption) Redeem(ctx context.Context, req *RedeemRequest) (*models.ClaimResult, error) {
	project, identityKey, err := service.gates(ctx, req)
	if err != nil {
		return nil, err
	}

	platform, err := service.resolvePlatform(project, req, req.Platform)
	if err != nil {
		service.logAttempt(ctx, project, req, "", nil, err)
		return nil, err
	}

	unlock, err := service.lockIdentity(identityKey)
	if err != nil {
		service.logAttempt(ctx, project, req, string(platform), nil, err)
		return nil, err
	}
	defer unlock()

	result, err := service.pool.ClaimOne(ctx, project, platform, service.claimMeta(project, req))
	if err != nil {
		service.logAttempt(ctx, project, req, string(platform), nil, err)
		return nil, err
	}

	service.logAttempt(ctx, project, req, string(platform), result, nil)
	service.notify(project, result)
	return result, nil
}

// RedeemBundle claims one code per requested platform atomically. A platform
// with nothing left fails the whole bundle.
func (service *ServiceRedemption) RedeemBundle(ctx context.Context, req *RedeemRequest) (*models.ClaimResult, error) {
	project, identityKey, err := service.gates(ctx, req)
	if err != nil {
		return nil, err
	}

	if !project.EnableBundles {
		service.logAttempt(ctx, project, req, "", nil, models.ErrBundlesDisabled)
		return nil, models.ErrBundlesDisabled
	}

	if len(req.Platforms) == 0 {
		service.logAttempt(ctx, project, req, "", nil, models.ErrPlatformRequired)
		return nil, models.ErrPlatformRequired
	}

	seen := map[models.Platform]bool{}
	platforms := make([]models.Platform, 0, len(req.Platforms))
	for _, raw := range req.Platforms {
		platform := models.Platform(raw)
		if !platform.Valid() {
			service.logAttempt(ctx, project, req, "", nil, models.ErrInvalidPlatform)
			return nil, models.ErrInvalidPlatform
		}
		if seen[platform] {
			continue
		}
		seen[platform] = true
		platforms = append(platforms, platform)
	}

	unlock, err := service.lockIdentity(identityKey)
	if err != nil {
		service.logAttempt(ctx, project, req, "", nil, err)
		return nil, err
	}
	defer unlock()

	result, err := service.pool.ClaimSet(ctx, project, platforms, service.claimMeta(project, req))
	if err != nil {
		service.logAttempt(ctx, project, req, "", nil, err)
		return nil, err
	}

	service.logAttempt(ctx, project, req, "", result, nil)
	service.notify(project, result)
	return result, nil
}

func (service *ServiceRedemption) gates(ctx context.Context, req *RedeemRequest) (*models.Project, string, error) {
	project, err := service.projects.FindBySlug(ctx, req.Slug)
	if err != nil {
		return nil, "", err
	}

	// Paused projects are indistinguishable from missing ones to the public.
	if !project.Active {
		return nil, "", models.ErrProjectNotFound
	}

	if project.Expired(time.Now()) {
		service.logAttempt(ctx, project, req, req.Platform, nil, models.ErrCampaignExpired)
		return nil, "", models.ErrCampaignExpired
	}

	if project.RequireAuth && req.Identity == nil {
		service.logAttempt(ctx, project, req, req.Platform, nil, models.ErrAuthRequired)
		return nil, "", models.ErrAuthRequired
	}

	identityKey := pkg.IdentityKey(req.IP, req.Fingerprint)
	key := LimitKeyRedeem(project.ID, identityKey)
	if err := service.limiter.Allow(ctx, key, redis_rate.PerMinute(service.rateLimitPerMinute)); err != nil {
		if errors.Is(err, limiter.ErrRateLimited) {
			service.logAttempt(ctx, project, req, req.Platform, nil, models.ErrRateLimited)
			return nil, "", models.ErrRateLimited
		}
		return nil, "", err
	}

	return project, identityKey, nil
}

// lockIdentity serializes claims from one requester identity. A busy lock
// means the same identity has a claim in flight, which reads as rate
// limiting from the outside.
func (service *ServiceRedemption) lockIdentity(identityKey string) (func(), error) {
	if service.rs == nil {
		return func() {}, nil
	}

	mutex := service.rs.NewMutex(LockKeyClaim(identityKey))
	if err := mutex.TryLock(); err != nil {
		return nil, models.ErrRateLimited
	}

	return func() {
		// nolint:errcheck
		mutex.Unlock()
	}, nil
}

func (service *ServiceRedemption) resolvePlatform(project *models.Project, req *RedeemRequest, explicit string) (models.Platform, error) {
	if explicit != "" {
		platform := models.Platform(explicit)
		if !platform.Valid() {
			return "", models.ErrInvalidPlatform
		}
		return platform, nil
	}

	platform, ok := models.DetectPlatform(req.UserAgent)
	if !ok {
		return "", models.ErrPlatformRequired
	}
	return platform, nil
}

func (service *ServiceRedemption) claimMeta(project *models.Project, req *RedeemRequest) models.ClaimMeta {
	meta := models.ClaimMeta{
		FingerprintHash: pkg.HashSHA256(req.Fingerprint),
		IPHash:          pkg.HashSHA256(req.IP),
		UserAgent:       req.UserAgent,
	}
	if project.RetainRedeemerEmail && req.Identity != nil && req.Identity.Email != "" {
		email := req.Identity.Email
		meta.Email = &email
	}
	return meta
}

// logAttempt appends to the attempt log. Logging failures never surface into
// the redemption result.
func (service *ServiceRedemption) logAttempt(ctx context.Context, project *models.Project, req *RedeemRequest, platform string, result *models.ClaimResult, cause error) {
	entry := &models.RedemptionLog{
		ProjectID:         project.ID,
		RequestedPlatform: req.Platform,
		DetectedPlatform:  platform,
		Success:           cause == nil,
		FailureReason:     reasonFor(cause),
		Fingerprint:       pkg.HashSHA256(req.Fingerprint),
		IPHash:            pkg.HashSHA256(req.IP),
		UserAgent:         req.UserAgent,
	}
	if result != nil && len(result.Claims) > 0 {
		entry.BatchID = &result.Claims[0].Batch.ID
		entry.CodeID = &result.Claims[0].Code.ID
	}

	if err := service.attempts.Append(ctx, entry); err != nil {
		log.Printf("redemption: append attempt log: %v", err)
	}
}

func (service *ServiceRedemption) notify(project *models.Project, result *models.ClaimResult) {
	if service.thresholds == nil {
		return
	}
	go service.thresholds.NotifyClaim(context.Background(), project, result)
}

func reasonFor(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, models.ErrCampaignExpired):
		return REASON_CAMPAIGN_EXPIRED
	case errors.Is(err, models.ErrAuthRequired):
		return REASON_AUTH_REQUIRED
	case errors.Is(err, models.ErrRateLimited):
		return REASON_RATE_LIMITED
	case errors.Is(err, models.ErrNoCodesAvailable):
		return REASON_NO_CODES
	case errors.Is(err, models.ErrPlatformRequired):
		return REASON_PLATFORM_REQUIRED
	case errors.Is(err, models.ErrInvalidPlatform):
		return REASON_INVALID_PLATFORM
	case errors.Is(err, models.ErrBundlesDisabled):
		return REASON_BUNDLES_DISABLED
	default:
		return err.Error()
	}
}
