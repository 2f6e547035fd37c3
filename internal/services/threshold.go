package services

import (
	"context"

	"codedrop/internal/interfaces"
	"codedrop/internal/models"

	"github.com/samber/do"
)

// ServiceThreshold turns the crossings produced inside claim transactions
// into outbound events. The pool store already guarantees each crossing is
// produced at most once, so this layer only shapes payloads.
type ServiceThreshold struct {
	dispatcher interfaces.Dispatcher
}

func NewServiceThreshold(container *do.Injector) (*ServiceThreshold, error) {
	dispatcher, err := do.Invoke[interfaces.Dispatcher](container)
	if err != nil {
		return nil, err
	}

	return &ServiceThreshold{dispatcher}, nil
}

// NotifyClaim emits the redemption event plus every threshold crossing the
// claim produced.
func (service *ServiceThreshold) NotifyClaim(ctx context.Context, project *models.Project, result *models.ClaimResult) {
	platforms := make([]string, 0, len(result.Claims))
	for _, claim := range result.Claims {
		platforms = append(platforms, claim.Code.RedeemerPlatform.String())
	}

	payload := map[string]any{
		"slug":      project.Slug,
		"platforms": platforms,
		"count":     len(result.Claims),
	}
	if result.BundleID != "" {
		payload["bundle_id"] = result.BundleID
	}
	service.dispatcher.Emit(ctx, models.EventCodeRedeemed, project.ID, payload)

	for _, crossing := range result.Crossings {
		service.dispatcher.Emit(ctx, crossing.Event, project.ID, crossingPayload(project, crossing))
	}
}

func crossingPayload(project *models.Project, crossing models.Crossing) map[string]any {
	switch crossing.Event {
	case models.EventBatchLow:
		return map[string]any{
			"batch_id":   crossing.BatchID,
			"batch_name": crossing.BatchName,
			"platform":   crossing.Platform.String(),
			"remaining":  crossing.Remaining,
			"threshold":  project.LowCodeThreshold,
		}
	case models.EventBatchEmpty:
		return map[string]any{
			"batch_id":   crossing.BatchID,
			"batch_name": crossing.BatchName,
			"platform":   crossing.Platform.String(),
		}
	case models.EventMilestone:
		return map[string]any{
			"slug":      project.Slug,
			"milestone": crossing.Milestone,
		}
	}
	return nil
}
