package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"codedrop/internal/models"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAbortRedeemStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{models.ErrProjectNotFound, "NOT_FOUND", http.StatusNotFound},
		{models.ErrCampaignExpired, "CAMPAIGN_EXPIRED", http.StatusGone},
		{models.ErrAuthRequired, "AUTH_REQUIRED", http.StatusUnauthorized},
		{models.ErrRateLimited, "RATE_LIMITED", http.StatusTooManyRequests},
		{models.ErrPlatformRequired, "PLATFORM_REQUIRED", http.StatusBadRequest},
		{models.ErrInvalidPlatform, "INVALID_PLATFORM", http.StatusBadRequest},
		{models.ErrBundlesDisabled, "BUNDLES_DISABLED", http.StatusBadRequest},
		{models.ErrNoCodesAvailable, "NO_CODES_AVAILABLE", http.StatusNotFound},
		{errors.New("boom"), "INTERNAL", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			require.NoError(t, abortRedeem(c, tt.err))
			assert.Equal(t, tt.status, rec.Code)

			var body struct {
				Success bool   `json:"success"`
				Code    string `json:"code"`
				Error   string `json:"error"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.code, body.Code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

func TestAbortRedeemWrappedErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	wrapped := errors.Join(errors.New("context"), models.ErrNoCodesAvailable)
	require.NoError(t, abortRedeem(c, wrapped))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
