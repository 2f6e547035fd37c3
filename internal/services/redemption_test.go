package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"codedrop/internal/models"
	"codedrop/internal/pkg/limiter"

	"github.com/go-redis/redis_rate/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUserAgentIPhone = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X)"

type fakeProjects struct {
	projects map[string]*models.Project
}

func (f *fakeProjects) FindBySlug(ctx context.Context, slug string) (*models.Project, error) {
	project, ok := f.projects[slug]
	if !ok {
		return nil, models.ErrProjectNotFound
	}
	return project, nil
}

func (f *fakeProjects) Availability(ctx context.Context, projectID string) (map[models.Platform]models.PlatformAvailability, error) {
	return nil, nil
}

func (f *fakeProjects) Stats(ctx context.Context, projectID string) (*models.ProjectStats, error) {
	return nil, nil
}

// fakePool hands out codes per platform with the same all-or-nothing
// semantics as the real pool store.
type fakePool struct {
	mu    sync.Mutex
	codes map[models.Platform][]string
	metas []models.ClaimMeta
}

func newFakePool(codes map[models.Platform][]string) *fakePool {
	copied := map[models.Platform][]string{}
	for platform, values := range codes {
		copied[platform] = append([]string(nil), values...)
	}
	return &fakePool{codes: copied}
}

func (f *fakePool) ClaimOne(ctx context.Context, project *models.Project, platform models.Platform, meta models.ClaimMeta) (*models.ClaimResult, error) {
	return f.claim(project, []models.Platform{platform}, meta, "")
}

func (f *fakePool) ClaimSet(ctx context.Context, project *models.Project, platforms []models.Platform, meta models.ClaimMeta) (*models.ClaimResult, error) {
	return f.claim(project, platforms, meta, "bundle-1")
}

func (f *fakePool) claim(project *models.Project, platforms []models.Platform, meta models.ClaimMeta, bundleID string) (*models.ClaimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, platform := range platforms {
		if len(f.codes[platform]) == 0 {
			return nil, models.ErrNoCodesAvailable
		}
	}

	result := &models.ClaimResult{BundleID: bundleID}
	for _, platform := range platforms {
		value := f.codes[platform][0]
		f.codes[platform] = f.codes[platform][1:]
		result.Claims = append(result.Claims, models.ClaimedCode{
			Code:  &models.Code{ID: "code-" + value, Value: value, RedeemerPlatform: platform},
			Batch: &models.CodeBatch{ID: "batch-1"},
		})
	}
	f.metas = append(f.metas, meta)
	return result, nil
}

func (f *fakePool) remaining(platform models.Platform) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.codes[platform])
}

type fakeLimiter struct {
	mu     sync.Mutex
	limit  int
	counts map[string]int
}

func newFakeLimiter(limit int) *fakeLimiter {
	return &fakeLimiter{limit: limit, counts: map[string]int{}}
}

func (f *fakeLimiter) Allow(ctx context.Context, key string, rate redis_rate.Limit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	if f.counts[key] > f.limit {
		return limiter.ErrRateLimited
	}
	return nil
}

type fakeAttempts struct {
	mu      sync.Mutex
	entries []*models.RedemptionLog
}

func (f *fakeAttempts) Append(ctx context.Context, entry *models.RedemptionLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeAttempts) last() *models.RedemptionLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

func testProject() *models.Project {
	return &models.Project{
		ID:     "project-1",
		Slug:   "launch",
		Active: true,
	}
}

func newTestService(project *models.Project, pool *fakePool) (*ServiceRedemption, *fakeAttempts) {
	attempts := &fakeAttempts{}
	service := &ServiceRedemption{
		projects:           &fakeProjects{projects: map[string]*models.Project{project.Slug: project}},
		pool:               pool,
		limiter:            newFakeLimiter(1000),
		attempts:           attempts,
		rateLimitPerMinute: DEFAULT_RATE_LIMIT_PER_MINUTE,
	}
	return service, attempts
}

func baseRequest() *RedeemRequest {
	return &RedeemRequest{
		Slug:        "launch",
		Fingerprint: "fp-1",
		IP:          "203.0.113.7",
		UserAgent:   testUserAgentIPhone,
	}
}

func TestRedeemDetectsPlatformFromUserAgent(t *testing.T) {
	pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"AAA-111"}})
	service, attempts := newTestService(testProject(), pool)

	result, err := service.Redeem(context.Background(), baseRequest())
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)
	assert.Equal(t, "AAA-111", result.Claims[0].Code.Value)
	assert.Equal(t, models.PlatformIOS, result.Claims[0].Code.RedeemerPlatform)

	entry := attempts.last()
	require.NotNil(t, entry)
	assert.True(t, entry.Success)
	assert.Equal(t, "ios", entry.DetectedPlatform)
	assert.Equal(t, "", entry.RequestedPlatform)
	require.NotNil(t, entry.CodeID)
	assert.Equal(t, "code-AAA-111", *entry.CodeID)
}

func TestRedeemExplicitPlatformOverridesUserAgent(t *testing.T) {
	pool := newFakePool(map[models.Platform][]string{
		models.PlatformIOS:   {"IOS-1"},
		models.PlatformSteam: {"STEAM-1"},
	})
	service, _ := newTestService(testProject(), pool)

	req := baseRequest()
	req.Platform = "steam"

	result, err := service.Redeem(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "STEAM-1", result.Claims[0].Code.Value)
	assert.Equal(t, 1, pool.remaining(models.PlatformIOS))
}

func TestRedeemFailureTaxonomy(t *testing.T) {
	expired := time.Now().Add(-time.Hour)

	tests := []struct {
		name     string
		project  func(*models.Project)
		request  func(*RedeemRequest)
		expected error
		reason   string
	}{
		{
			name:     "unknown slug",
			request:  func(r *RedeemRequest) { r.Slug = "missing" },
			expected: models.ErrProjectNotFound,
		},
		{
			name:     "inactive project hidden",
			project:  func(p *models.Project) { p.Active = false },
			expected: models.ErrProjectNotFound,
		},
		{
			name:     "expired campaign",
			project:  func(p *models.Project) { p.ExpiresAt = &expired },
			expected: models.ErrCampaignExpired,
			reason:   REASON_CAMPAIGN_EXPIRED,
		},
		{
			name:     "auth required without identity",
			project:  func(p *models.Project) { p.RequireAuth = true },
			expected: models.ErrAuthRequired,
			reason:   REASON_AUTH_REQUIRED,
		},
		{
			name:     "invalid explicit platform",
			request:  func(r *RedeemRequest) { r.Platform = "gameboy" },
			expected: models.ErrInvalidPlatform,
			reason:   REASON_INVALID_PLATFORM,
		},
		{
			name:     "undetectable user agent",
			request:  func(r *RedeemRequest) { r.UserAgent = "curl/8.4.0" },
			expected: models.ErrPlatformRequired,
			reason:   REASON_PLATFORM_REQUIRED,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := testProject()
			if tt.project != nil {
				tt.project(project)
			}
			pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"AAA-111"}})
			service, attempts := newTestService(project, pool)

			req := baseRequest()
			if tt.request != nil {
				tt.request(req)
			}

			_, err := service.Redeem(context.Background(), req)
			assert.ErrorIs(t, err, tt.expected)
			assert.Equal(t, 1, pool.remaining(models.PlatformIOS), "failed gate must not consume codes")

			if tt.reason != "" {
				entry := attempts.last()
				require.NotNil(t, entry)
				assert.False(t, entry.Success)
				assert.Equal(t, tt.reason, entry.FailureReason)
			}
		})
	}
}

func TestRedeemAuthGateAcceptsIdentity(t *testing.T) {
	project := testProject()
	project.RequireAuth = true
	pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"AAA-111"}})
	service, _ := newTestService(project, pool)

	req := baseRequest()
	req.Identity = &models.Identity{Subject: "user-1", Email: "user@example.com"}

	_, err := service.Redeem(context.Background(), req)
	assert.NoError(t, err)
}

func TestRedeemRateLimited(t *testing.T) {
	pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"A", "B", "C"}})
	service, attempts := newTestService(testProject(), pool)
	service.limiter = newFakeLimiter(2)

	ctx := context.Background()
	_, err := service.Redeem(ctx, baseRequest())
	require.NoError(t, err)
	_, err = service.Redeem(ctx, baseRequest())
	require.NoError(t, err)

	_, err = service.Redeem(ctx, baseRequest())
	assert.ErrorIs(t, err, models.ErrRateLimited)
	assert.Equal(t, 1, pool.remaining(models.PlatformIOS))
	assert.Equal(t, REASON_RATE_LIMITED, attempts.last().FailureReason)

	// a different requester is unaffected
	other := baseRequest()
	other.IP = "203.0.113.99"
	_, err = service.Redeem(ctx, other)
	assert.NoError(t, err)
}

func TestRedeemExhaustedPool(t *testing.T) {
	pool := newFakePool(map[models.Platform][]string{})
	service, attempts := newTestService(testProject(), pool)

	_, err := service.Redeem(context.Background(), baseRequest())
	assert.ErrorIs(t, err, models.ErrNoCodesAvailable)
	assert.Equal(t, REASON_NO_CODES, attempts.last().FailureReason)
}

func TestRedeemEmailRetention(t *testing.T) {
	t.Run("retained when enabled", func(t *testing.T) {
		project := testProject()
		project.RetainRedeemerEmail = true
		pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"A"}})
		service, _ := newTestService(project, pool)

		req := baseRequest()
		req.Identity = &models.Identity{Subject: "user-1", Email: "user@example.com"}

		_, err := service.Redeem(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, pool.metas, 1)
		require.NotNil(t, pool.metas[0].Email)
		assert.Equal(t, "user@example.com", *pool.metas[0].Email)
	})

	t.Run("dropped when disabled", func(t *testing.T) {
		pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"A"}})
		service, _ := newTestService(testProject(), pool)

		req := baseRequest()
		req.Identity = &models.Identity{Subject: "user-1", Email: "user@example.com"}

		_, err := service.Redeem(context.Background(), req)
		require.NoError(t, err)
		require.Len(t, pool.metas, 1)
		assert.Nil(t, pool.metas[0].Email)
	})
}

func TestRedeemHashesRequesterDetails(t *testing.T) {
	pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"A"}})
	service, attempts := newTestService(testProject(), pool)

	req := baseRequest()
	_, err := service.Redeem(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, pool.metas, 1)
	assert.NotContains(t, pool.metas[0].IPHash, req.IP)
	assert.NotEqual(t, req.Fingerprint, pool.metas[0].FingerprintHash)
	assert.NotContains(t, attempts.last().IPHash, req.IP)
}

func TestRedeemBundle(t *testing.T) {
	newBundleProject := func() *models.Project {
		project := testProject()
		project.EnableBundles = true
		return project
	}

	t.Run("bundles disabled", func(t *testing.T) {
		pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"A"}})
		service, _ := newTestService(testProject(), pool)

		req := baseRequest()
		req.Platforms = []string{"ios"}

		_, err := service.RedeemBundle(context.Background(), req)
		assert.ErrorIs(t, err, models.ErrBundlesDisabled)
	})

	t.Run("empty platform list", func(t *testing.T) {
		pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"A"}})
		service, attempts := newTestService(newBundleProject(), pool)

		req := baseRequest()
		_, err := service.RedeemBundle(context.Background(), req)
		assert.ErrorIs(t, err, models.ErrPlatformRequired)

		entry := attempts.last()
		require.NotNil(t, entry)
		assert.False(t, entry.Success)
		assert.Equal(t, REASON_PLATFORM_REQUIRED, entry.FailureReason)
	})

	t.Run("invalid platform in list", func(t *testing.T) {
		pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"A"}})
		service, attempts := newTestService(newBundleProject(), pool)

		req := baseRequest()
		req.Platforms = []string{"ios", "gameboy"}
		_, err := service.RedeemBundle(context.Background(), req)
		assert.ErrorIs(t, err, models.ErrInvalidPlatform)

		entry := attempts.last()
		require.NotNil(t, entry)
		assert.Equal(t, REASON_INVALID_PLATFORM, entry.FailureReason)
	})

	t.Run("duplicates collapse to one claim", func(t *testing.T) {
		pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: {"A", "B"}})
		service, _ := newTestService(newBundleProject(), pool)

		req := baseRequest()
		req.Platforms = []string{"ios", "ios"}

		result, err := service.RedeemBundle(context.Background(), req)
		require.NoError(t, err)
		assert.Len(t, result.Claims, 1)
		assert.Equal(t, 1, pool.remaining(models.PlatformIOS))
	})

	t.Run("all or nothing", func(t *testing.T) {
		pool := newFakePool(map[models.Platform][]string{
			models.PlatformIOS: {"A"},
			// no android codes at all
		})
		service, attempts := newTestService(newBundleProject(), pool)

		req := baseRequest()
		req.Platforms = []string{"ios", "android"}

		_, err := service.RedeemBundle(context.Background(), req)
		assert.ErrorIs(t, err, models.ErrNoCodesAvailable)
		assert.Equal(t, 1, pool.remaining(models.PlatformIOS), "partial bundle must not consume anything")
		assert.Equal(t, REASON_NO_CODES, attempts.last().FailureReason)
	})

	t.Run("success carries bundle id", func(t *testing.T) {
		pool := newFakePool(map[models.Platform][]string{
			models.PlatformIOS:     {"A"},
			models.PlatformAndroid: {"B"},
		})
		service, _ := newTestService(newBundleProject(), pool)

		req := baseRequest()
		req.Platforms = []string{"ios", "android"}

		result, err := service.RedeemBundle(context.Background(), req)
		require.NoError(t, err)
		assert.NotEmpty(t, result.BundleID)
		assert.Len(t, result.Claims, 2)
	})
}

func TestRedeemConcurrentClaimsNeverDoubleIssue(t *testing.T) {
	const available = 10
	const requesters = 40

	values := make([]string, available)
	for i := range values {
		values[i] = fmt.Sprintf("CODE-%03d", i)
	}
	pool := newFakePool(map[models.Platform][]string{models.PlatformIOS: values})
	service, _ := newTestService(testProject(), pool)

	var wg sync.WaitGroup
	results := make(chan *models.ClaimResult, requesters)
	errs := make(chan error, requesters)

	for i := 0; i < requesters; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			req := baseRequest()
			req.IP = fmt.Sprintf("203.0.113.%d", n)
			result, err := service.Redeem(context.Background(), req)
			if err != nil {
				errs <- err
				return
			}
			results <- result
		}(i)
	}
	wg.Wait()
	close(results)
	close(errs)

	issued := map[string]bool{}
	for result := range results {
		value := result.Claims[0].Code.Value
		assert.False(t, issued[value], "code %s issued twice", value)
		issued[value] = true
	}
	assert.Len(t, issued, available)

	for err := range errs {
		assert.ErrorIs(t, err, models.ErrNoCodesAvailable)
	}
}
