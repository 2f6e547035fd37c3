package datastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"codedrop/internal/models"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Pool implements the atomic claim primitives over the code tables. All
// mutation of code rows and batch counters goes through here; nothing else
// writes them.
//
// Selection uses FOR UPDATE SKIP LOCKED so concurrent claimers never wait on
// each other's candidate: a locked row is simply not a candidate, the next
// eligible one is picked instead. The whole claim (code transition, batch
// counter, threshold markers, project counter) commits as one transaction.
type Pool struct {
	db          *bun.DB
	retryBudget int
}

func NewPool(db *bun.DB, retryBudget int) *Pool {
	if retryBudget < 1 {
		retryBudget = 1
	}
	return &Pool{db: db, retryBudget: retryBudget}
}

func (p *Pool) ClaimOne(ctx context.Context, project *models.Project, platform models.Platform, meta models.ClaimMeta) (*models.ClaimResult, error) {
	return p.claimWithRetry(ctx, project, []models.Platform{platform}, meta, false)
}

func (p *Pool) ClaimSet(ctx context.Context, project *models.Project, platforms []models.Platform, meta models.ClaimMeta) (*models.ClaimResult, error) {
	if len(platforms) == 0 {
		return nil, models.ErrPlatformRequired
	}
	return p.claimWithRetry(ctx, project, platforms, meta, true)
}

// claimWithRetry retries the claim transaction up to the bounded budget.
// Transient contention (a concurrently aborted transaction, a lost CAS) is
// retried; a genuinely empty pool is not. An exhausted budget degrades to
// ErrNoCodesAvailable rather than hanging the caller.
func (p *Pool) claimWithRetry(ctx context.Context, project *models.Project, platforms []models.Platform, meta models.ClaimMeta, bundle bool) (*models.ClaimResult, error) {
	for attempt := 0; attempt < p.retryBudget; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result, err := p.claimTx(ctx, project, platforms, meta, bundle)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, models.ErrNoCodesAvailable) {
			return nil, err
		}
	}

	return nil, models.ErrNoCodesAvailable
}

func (p *Pool) claimTx(ctx context.Context, project *models.Project, platforms []models.Platform, meta models.ClaimMeta, bundle bool) (*models.ClaimResult, error) {
	result := &models.ClaimResult{}
	if bundle {
		result.BundleID = uuid.NewString()
	}

	err := p.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		result.Claims = result.Claims[:0]
		result.Crossings = result.Crossings[:0]

		for _, platform := range platforms {
			claim, crossings, err := p.claimEligible(ctx, tx, project, platform, meta, result.BundleID, now)
			if err != nil {
				// Any platform without a candidate aborts the whole
				// set; nothing claimed so far survives the rollback.
				return err
			}
			result.Claims = append(result.Claims, *claim)
			result.Crossings = append(result.Crossings, crossings...)
		}

		milestones, err := p.advanceMilestones(ctx, tx, project, len(result.Claims), now)
		if err != nil {
			return err
		}
		result.Crossings = append(result.Crossings, milestones...)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// claimEligible picks and claims one code for the platform inside tx.
// Tie-break among batches is oldest-created first, then code id, which keeps
// draining deterministic and starvation-free.
func (p *Pool) claimEligible(ctx context.Context, tx bun.Tx, project *models.Project, platform models.Platform, meta models.ClaimMeta, bundleID string, now time.Time) (*models.ClaimedCode, []models.Crossing, error) {
	var code models.Code
	err := tx.NewSelect().Model(&code).
		Join("JOIN code_batch AS batch ON batch.id = code.batch_id").
		Where("code.claimed = FALSE").
		Where("code.developer_reserved = FALSE").
		Where("batch.project_id = ?", project.ID).
		Where("batch.platform = ?", platform).
		Where("batch.status = ?", models.BatchStatusCompleted).
		Where("batch.deleted_at IS NULL").
		Where("(batch.expires_at IS NULL OR batch.expires_at > ?)", now).
		OrderExpr("batch.created_at ASC, code.id ASC").
		Limit(1).
		For("UPDATE OF code SKIP LOCKED").
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, models.ErrNoCodesAvailable
		}
		return nil, nil, err
	}

	var bundleRef *string
	if bundleID != "" {
		bundleRef = &bundleID
	}

	res, err := tx.NewUpdate().Model((*models.Code)(nil)).
		Set("claimed = TRUE").
		Set("claimed_at = ?", now).
		Set("redeemer_fingerprint = ?", meta.FingerprintHash).
		Set("redeemer_ip_hash = ?", meta.IPHash).
		Set("redeemer_platform = ?", platform).
		Set("redeemer_user_agent = ?", meta.UserAgent).
		Set("redeemer_email = ?", meta.Email).
		Set("bundle_id = ?", bundleRef).
		Where("id = ?", code.ID).
		Where("claimed = FALSE").
		Exec(ctx)
	if err != nil {
		return nil, nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, nil, err
	}
	if affected == 0 {
		// The row lock should make this unreachable; treated as
		// contention so the outer retry picks another candidate.
		return nil, nil, models.ErrClaimContention
	}

	code.Claimed = true
	code.ClaimedAt = &now
	code.BundleID = bundleRef
	code.RedeemerFingerprint = meta.FingerprintHash
	code.RedeemerIPHash = meta.IPHash
	code.RedeemerPlatform = platform
	code.RedeemerUserAgent = meta.UserAgent
	code.RedeemerEmail = meta.Email

	var batch models.CodeBatch
	_, err = tx.NewUpdate().Model(&batch).
		Set("used_codes = used_codes + 1").
		Where("id = ?", code.BatchID).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, nil, err
	}

	crossings, err := p.claimBatchMarkers(ctx, tx, project, &batch)
	if err != nil {
		return nil, nil, err
	}

	return &models.ClaimedCode{Code: &code, Batch: &batch}, crossings, nil
}

// claimBatchMarkers evaluates the low-water and empty markers against the
// post-claim remaining count. Each marker is a compare-and-set in the same
// transaction as the counter update, so a crossing is won by exactly one
// claim. Low-water requires a strict above-to-below transition; a batch that
// was imported already at or below the threshold never announces it.
func (p *Pool) claimBatchMarkers(ctx context.Context, tx bun.Tx, project *models.Project, batch *models.CodeBatch) ([]models.Crossing, error) {
	var crossings []models.Crossing
	remaining := batch.Remaining()

	if models.LowThresholdCrossed(remaining, project.LowCodeThreshold) {
		won, err := p.claimMarker(ctx, tx, batch.ID, "low_notified")
		if err != nil {
			return nil, err
		}
		if won {
			crossings = append(crossings, models.Crossing{
				Event:     models.EventBatchLow,
				BatchID:   batch.ID,
				BatchName: batch.Name,
				Platform:  batch.Platform,
				Remaining: remaining,
			})
		}
	}

	if remaining <= 0 {
		won, err := p.claimMarker(ctx, tx, batch.ID, "empty_notified")
		if err != nil {
			return nil, err
		}
		if won {
			crossings = append(crossings, models.Crossing{
				Event:     models.EventBatchEmpty,
				BatchID:   batch.ID,
				BatchName: batch.Name,
				Platform:  batch.Platform,
				Remaining: 0,
			})
		}
	}

	return crossings, nil
}

func (p *Pool) claimMarker(ctx context.Context, tx bun.Tx, batchID string, column string) (bool, error) {
	res, err := tx.NewUpdate().Model((*models.CodeBatch)(nil)).
		Set("? = TRUE", bun.Ident(column)).
		Where("id = ?", batchID).
		Where("? = FALSE", bun.Ident(column)).
		Exec(ctx)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// advanceMilestones bumps the project-wide redemption counter and claims any
// milestone crossed by this bump. The last_milestone high-water mark is
// monotonic, so a briefly misreported counter can never re-fire a milestone.
func (p *Pool) advanceMilestones(ctx context.Context, tx bun.Tx, project *models.Project, claimed int, now time.Time) ([]models.Crossing, error) {
	if claimed == 0 {
		return nil, nil
	}

	var redeemed int64
	err := tx.NewRaw(
		"UPDATE project SET redeemed_count = redeemed_count + ?, updated_at = ? WHERE id = ? RETURNING redeemed_count",
		claimed, now, project.ID,
	).Scan(ctx, &redeemed)
	if err != nil {
		return nil, err
	}

	var crossings []models.Crossing
	prev := redeemed - int64(claimed)
	for _, milestone := range models.MilestonesCrossed(prev, redeemed) {
		res, err := tx.NewUpdate().Model((*models.Project)(nil)).
			Set("last_milestone = ?", milestone).
			Where("id = ?", project.ID).
			Where("last_milestone < ?", milestone).
			Exec(ctx)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 1 {
			crossings = append(crossings, models.Crossing{
				Event:     models.EventMilestone,
				Milestone: milestone,
			})
		}
	}

	return crossings, nil
}
