package handler

import (
	"errors"
	"net/http"

	"codedrop/internal/models"
	"codedrop/internal/services"

	"github.com/hiendaovinh/toolkit/pkg/errorx"
	"github.com/hiendaovinh/toolkit/pkg/httpx-echo"
	"github.com/labstack/echo/v4"
	"github.com/samber/do"
)

type groupRedeem struct {
	container *do.Injector
}

type redeemBody struct {
	Platform    string   `json:"platform"`
	Platforms   []string `json:"platforms"`
	Fingerprint string   `json:"fingerprint"`
}

type claimedCodeView struct {
	Value            string `json:"value"`
	Platform         string `json:"platform"`
	BatchID          string `json:"batch_id"`
	AppStoreID       string `json:"app_store_id,omitempty"`
	PlayStorePackage string `json:"play_store_package,omitempty"`
	SteamAppID       string `json:"steam_app_id,omitempty"`
}

type claimView struct {
	Success  bool              `json:"success"`
	BundleID string            `json:"bundle_id,omitempty"`
	Codes    []claimedCodeView `json:"codes"`
}

// Show renders the public redeem page payload: project info, per-platform
// availability and the platform detected from the caller's user agent.
func (gr *groupRedeem) Show(c echo.Context) error {
	serviceProject, err := do.Invoke[*services.ServiceProject](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	project, err := serviceProject.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		return abortRedeem(c, err)
	}
	if !project.Active {
		return abortRedeem(c, models.ErrProjectNotFound)
	}

	availability, err := serviceProject.Availability(ctx, project.ID)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	detected, _ := models.DetectPlatform(c.Request().UserAgent())

	view := struct {
		*models.Project
		Availability     map[models.Platform]models.PlatformAvailability `json:"availability"`
		DetectedPlatform models.Platform                                 `json:"detected_platform"`
	}{
		Project:          project,
		Availability:     availability,
		DetectedPlatform: detected,
	}

	return httpx.RestAbort(c, view, nil)
}

func (gr *groupRedeem) Redeem(c echo.Context) error {
	serviceRedemption, err := do.Invoke[*services.ServiceRedemption](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	var body redeemBody
	if err := c.Bind(&body); err != nil {
		return abortRedeem(c, models.ErrInvalidPlatform)
	}

	ctx := c.Request().Context()
	result, err := serviceRedemption.Redeem(ctx, &services.RedeemRequest{
		Slug:        c.Param("slug"),
		Platform:    body.Platform,
		Fingerprint: body.Fingerprint,
		IP:          c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
		Identity:    ResolveIdentity(ctx),
	})
	if err != nil {
		return abortRedeem(c, err)
	}

	return c.JSON(http.StatusOK, newClaimView(result))
}

func (gr *groupRedeem) RedeemBundle(c echo.Context) error {
	serviceRedemption, err := do.Invoke[*services.ServiceRedemption](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	var body redeemBody
	if err := c.Bind(&body); err != nil {
		return abortRedeem(c, models.ErrInvalidPlatform)
	}

	ctx := c.Request().Context()
	result, err := serviceRedemption.RedeemBundle(ctx, &services.RedeemRequest{
		Slug:        c.Param("slug"),
		Platforms:   body.Platforms,
		Fingerprint: body.Fingerprint,
		IP:          c.RealIP(),
		UserAgent:   c.Request().UserAgent(),
		Identity:    ResolveIdentity(ctx),
	})
	if err != nil {
		return abortRedeem(c, err)
	}

	return c.JSON(http.StatusOK, newClaimView(result))
}

func (gr *groupRedeem) Stats(c echo.Context) error {
	serviceProject, err := do.Invoke[*services.ServiceProject](gr.container)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	ctx := c.Request().Context()
	project, err := serviceProject.FindBySlug(ctx, c.Param("slug"))
	if err != nil {
		return abortRedeem(c, err)
	}

	stats, err := serviceProject.Stats(ctx, project.ID)
	if err != nil {
		return httpx.RestAbort(c, nil, errorx.Wrap(err, errorx.Service))
	}

	return httpx.RestAbort(c, stats, nil)
}

func newClaimView(result *models.ClaimResult) *claimView {
	view := &claimView{Success: true, BundleID: result.BundleID}
	for _, claim := range result.Claims {
		view.Codes = append(view.Codes, claimedCodeView{
			Value:            claim.Code.Value,
			Platform:         claim.Code.RedeemerPlatform.String(),
			BatchID:          claim.Batch.ID,
			AppStoreID:       claim.Batch.AppStoreID,
			PlayStorePackage: claim.Batch.PlayStorePackage,
			SteamAppID:       claim.Batch.SteamAppID,
		})
	}
	return view
}

// abortRedeem maps the allocation failure taxonomy onto stable error codes
// the redeem page keys its copy off.
func abortRedeem(c echo.Context, err error) error {
	code, status := "INTERNAL", http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrProjectNotFound):
		code, status = "NOT_FOUND", http.StatusNotFound
	case errors.Is(err, models.ErrCampaignExpired):
		code, status = "CAMPAIGN_EXPIRED", http.StatusGone
	case errors.Is(err, models.ErrAuthRequired):
		code, status = "AUTH_REQUIRED", http.StatusUnauthorized
	case errors.Is(err, models.ErrRateLimited):
		code, status = "RATE_LIMITED", http.StatusTooManyRequests
	case errors.Is(err, models.ErrPlatformRequired):
		code, status = "PLATFORM_REQUIRED", http.StatusBadRequest
	case errors.Is(err, models.ErrInvalidPlatform):
		code, status = "INVALID_PLATFORM", http.StatusBadRequest
	case errors.Is(err, models.ErrBundlesDisabled):
		code, status = "BUNDLES_DISABLED", http.StatusBadRequest
	case errors.Is(err, models.ErrNoCodesAvailable):
		code, status = "NO_CODES_AVAILABLE", http.StatusNotFound
	}

	return c.JSON(status, map[string]any{
		"success": false,
		"code":    code,
		"error":   err.Error(),
	})
}
