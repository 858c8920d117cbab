package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"tumulte/database"
	"tumulte/domain/entities"

	"github.com/google/uuid"
)

// PreFlightReportRepository implements interfaces.PreFlightReportRepository.
// Reports are append-only.
type PreFlightReportRepository struct {
	q Queryable
}

// NewPreFlightReportRepository creates a new report repository
func NewPreFlightReportRepository(db *database.DB) *PreFlightReportRepository {
	return &PreFlightReportRepository{q: db.Pool}
}

// NewPreFlightReportRepositoryScoped creates a report repository bound to a transaction
func NewPreFlightReportRepositoryScoped(tx Queryable) *PreFlightReportRepository {
	return &PreFlightReportRepository{q: tx}
}

// Create stores a report
func (r *PreFlightReportRepository) Create(ctx context.Context, report *entities.PreFlightReport) error {
	checks, err := json.Marshal(report.Checks)
	if err != nil {
		return fmt.Errorf("failed to encode pre-flight checks: %w", err)
	}
	if report.ID == uuid.Nil {
		report.ID = uuid.New()
	}

	query := `
		INSERT INTO preflight_reports (
			id, campaign_id, event_type, healthy, has_warnings, checks, mode, duration_ms, triggered_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err = r.q.QueryRow(ctx, query,
		report.ID, report.CampaignID, report.EventType, report.Healthy, report.HasWarnings,
		checks, string(report.Mode), report.DurationMs, report.TriggeredBy,
	).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create pre-flight report for campaign %s: %w", report.CampaignID, err)
	}

	return nil
}

// GetLatestByCampaign returns the most recent reports of a campaign, newest first
func (r *PreFlightReportRepository) GetLatestByCampaign(ctx context.Context, campaignID uuid.UUID, limit int) ([]*entities.PreFlightReport, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, campaign_id, event_type, healthy, has_warnings, checks, mode,
			duration_ms, triggered_by, created_at
		FROM preflight_reports
		WHERE campaign_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.q.Query(ctx, query, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query pre-flight reports: %w", err)
	}
	defer rows.Close()

	var result []*entities.PreFlightReport
	for rows.Next() {
		var report entities.PreFlightReport
		var mode string
		var checks []byte
		err := rows.Scan(
			&report.ID, &report.CampaignID, &report.EventType, &report.Healthy,
			&report.HasWarnings, &checks, &mode, &report.DurationMs,
			&report.TriggeredBy, &report.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan pre-flight report: %w", err)
		}
		report.Mode = entities.PreFlightMode(mode)
		if err := json.Unmarshal(checks, &report.Checks); err != nil {
			return nil, fmt.Errorf("invalid checks on pre-flight report %s: %w", report.ID, err)
		}
		result = append(result, &report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pre-flight reports: %w", err)
	}

	return result, nil
}
