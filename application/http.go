package application

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"time"

	"tumulte/application/dto"
	"tumulte/domain/entities"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// HTTPDeps are the collaborators of the HTTP surface
type HTTPDeps struct {
	HealthChecks map[string]HealthCheck
	VTTHandler   http.Handler
	PreFlight    PreFlightRunner
}

// NewHTTPHandler builds the engine's HTTP routes
func NewHTTPHandler(deps HTTPDeps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthHandler(deps.HealthChecks))
	if deps.VTTHandler != nil {
		mux.Handle("/vtt/ws", deps.VTTHandler)
	}
	if deps.PreFlight != nil {
		mux.HandleFunc("POST /campaigns/{id}/preflight", preFlightHandler(deps.PreFlight))
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.WithError(err).Warn("Failed to write HTTP response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)

		status := http.StatusOK
		results := make(map[string]string, len(checks))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				results[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			results[name] = "ok"
		}

		writeJSON(w, status, map[string]any{
			"healthy": status == http.StatusOK,
			"checks":  results,
		})
	}
}

func preFlightHandler(runner PreFlightRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		campaignID, err := uuid.Parse(r.PathValue("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid campaign id")
			return
		}

		var req dto.PreFlightRequestDTO
		if r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "invalid request body")
				return
			}
		}

		mode := entities.PreFlightMode(req.Mode)
		switch mode {
		case "", entities.PreFlightModeFull, entities.PreFlightModeLight:
		default:
			writeError(w, http.StatusBadRequest, "mode must be light or full")
			return
		}

		triggeredBy := req.TriggeredBy
		if triggeredBy == "" {
			triggeredBy = "api"
		}

		report, err := runner.Run(r.Context(), campaignID, req.EventType, mode, triggeredBy)
		if err != nil {
			if errors.Is(err, entities.ErrCampaignNotFound) {
				writeError(w, http.StatusNotFound, "campaign not found")
				return
			}
			log.WithFields(log.Fields{
				"campaign_id": campaignID,
				"error":       err,
			}).Error("Pre-flight run failed")
			writeError(w, http.StatusInternalServerError, "pre-flight failed")
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}
