package application

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tumulte/domain/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestHealthz(t *testing.T) {
	handler := NewHTTPHandler(HTTPDeps{HealthChecks: map[string]HealthCheck{
		"database": func(ctx context.Context) error { return nil },
		"nats":     func(ctx context.Context) error { return errors.New("not connected") },
	}})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body struct {
		Healthy bool              `json:"healthy"`
		Checks  map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Healthy)
	assert.Equal(t, "ok", body.Checks["database"])
	assert.Equal(t, "not connected", body.Checks["nats"])
}

func TestPreFlightEndpoint(t *testing.T) {
	campaignID := uuid.New()

	t.Run("runs checks and returns the report", func(t *testing.T) {
		runner := &mockPreFlightRunner{}
		runner.On("Run", mock.Anything, campaignID, "dice_critical", entities.PreFlightModeLight, "api").
			Return(&entities.PreFlightReport{CampaignID: campaignID, Healthy: true, Mode: entities.PreFlightModeLight}, nil)

		handler := NewHTTPHandler(HTTPDeps{PreFlight: runner})
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/campaigns/"+campaignID.String()+"/preflight",
			strings.NewReader(`{"eventType":"dice_critical","mode":"light"}`))
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var report entities.PreFlightReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.True(t, report.Healthy)
		assert.Equal(t, campaignID, report.CampaignID)
		runner.AssertExpectations(t)
	})

	t.Run("unknown campaign is 404", func(t *testing.T) {
		runner := &mockPreFlightRunner{}
		runner.On("Run", mock.Anything, campaignID, "", entities.PreFlightMode(""), "api").Return(nil, entities.ErrCampaignNotFound)

		handler := NewHTTPHandler(HTTPDeps{PreFlight: runner})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/campaigns/"+campaignID.String()+"/preflight", nil))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad input is 400", func(t *testing.T) {
		handler := NewHTTPHandler(HTTPDeps{PreFlight: &mockPreFlightRunner{}})

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/campaigns/not-a-uuid/preflight", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/campaigns/"+campaignID.String()+"/preflight",
			strings.NewReader(`{"mode":"turbo"}`)))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method is rejected", func(t *testing.T) {
		handler := NewHTTPHandler(HTTPDeps{PreFlight: &mockPreFlightRunner{}})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/campaigns/"+campaignID.String()+"/preflight", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
