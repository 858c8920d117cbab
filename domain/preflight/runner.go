package preflight

import (
	"context"
	"fmt"
	"time"

	"tumulte/domain/actions"
	"tumulte/domain/entities"
	"tumulte/domain/events"
	"tumulte/domain/interfaces"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Runner executes the applicable checks of a campaign and stores the report
type Runner struct {
	registry   *Registry
	uowFactory interfaces.UnitOfWorkFactory
	actions    *actions.Registry
}

// NewRunner creates a runner. With a nil action registry, dependency checks
// always run.
func NewRunner(registry *Registry, uowFactory interfaces.UnitOfWorkFactory, actionRegistry *actions.Registry) *Runner {
	return &Runner{registry: registry, uowFactory: uowFactory, actions: actionRegistry}
}

// Run executes the checks for eventType in priority order. A failing
// infrastructure check stops the run; later checks are not executed.
func (r *Runner) Run(
	ctx context.Context,
	campaignID uuid.UUID,
	eventType string,
	mode entities.PreFlightMode,
	triggeredBy string,
) (*entities.PreFlightReport, error) {
	if eventType == "" {
		eventType = AllEventTypes
	}
	if mode == "" {
		mode = entities.PreFlightModeFull
	}

	cctx, err := r.loadContext(ctx, campaignID, eventType, mode)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := &entities.PreFlightReport{
		ID:          uuid.New(),
		CampaignID:  campaignID,
		EventType:   eventType,
		Healthy:     true,
		Mode:        mode,
		TriggeredBy: triggeredBy,
		Checks:      []entities.CheckResult{},
	}

	for _, check := range r.registry.GetChecksFor(eventType, mode) {
		if dc, ok := check.(DependencyCheck); ok && !cctx.Needs(dc.Dependency()) {
			log.WithFields(log.Fields{
				"campaign_id": campaignID,
				"check":       check.Name(),
			}).Debug("No action in scope needs this dependency, skipping check")
			continue
		}
		result := timed(ctx, check, cctx)
		report.Checks = append(report.Checks, result)
		if result.Warning {
			report.HasWarnings = true
		}
		if result.Passed() {
			continue
		}

		report.Healthy = false
		log.WithFields(log.Fields{
			"campaign_id": campaignID,
			"check":       result.Name,
			"message":     result.Message,
		}).Warn("Pre-flight check failed")

		if check.Priority() <= LightModeMaxPriority {
			break
		}
	}

	report.DurationMs = time.Since(start).Milliseconds()
	report.CreatedAt = time.Now().UTC()

	if err := r.save(ctx, report); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"campaign_id": campaignID,
		"event_type":  eventType,
		"mode":        mode,
		"healthy":     report.Healthy,
		"checks":      len(report.Checks),
		"duration_ms": report.DurationMs,
	}).Info("Pre-flight completed")

	return report, nil
}

func (r *Runner) loadContext(ctx context.Context, campaignID uuid.UUID, eventType string, mode entities.PreFlightMode) (CheckContext, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return CheckContext{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	campaign, err := uow.CampaignRepository().GetByID(ctx, campaignID)
	if err != nil {
		return CheckContext{}, fmt.Errorf("failed to get campaign: %w", err)
	}
	if campaign == nil {
		return CheckContext{}, entities.ErrCampaignNotFound
	}

	streamers, err := uow.CampaignRepository().GetMemberStreamers(ctx, campaignID)
	if err != nil {
		return CheckContext{}, fmt.Errorf("failed to get member streamers: %w", err)
	}

	requires, err := r.resolveRequirements(ctx, uow, campaignID, eventType)
	if err != nil {
		return CheckContext{}, err
	}

	return CheckContext{
		CampaignID: campaignID,
		EventType:  eventType,
		Mode:       mode,
		Campaign:   campaign,
		Streamers:  streamers,
		Requires:   requires,
	}, nil
}

// resolveRequirements collects the dependencies of the actions in scope: the
// action of eventType, or of every event enabled for the campaign. It returns
// nil when an action cannot be resolved.
func (r *Runner) resolveRequirements(
	ctx context.Context,
	uow interfaces.UnitOfWork,
	campaignID uuid.UUID,
	eventType string,
) (map[actions.Dependency]bool, error) {
	if r.actions == nil {
		return nil, nil
	}

	var scope []*entities.GamificationEvent
	if eventType == AllEventTypes {
		configs, err := uow.ConfigRepository().GetEnabledByCampaign(ctx, campaignID)
		if err != nil {
			return nil, fmt.Errorf("failed to get enabled configs: %w", err)
		}
		for _, config := range configs {
			event, err := uow.EventRepository().GetByID(ctx, config.EventID)
			if err != nil {
				return nil, fmt.Errorf("failed to get event: %w", err)
			}
			if event == nil {
				return nil, nil
			}
			scope = append(scope, event)
		}
	} else {
		event, err := uow.EventRepository().GetBySlug(ctx, eventType)
		if err != nil {
			return nil, fmt.Errorf("failed to get event: %w", err)
		}
		if event == nil {
			return nil, nil
		}
		scope = append(scope, event)
	}

	requires := make(map[actions.Dependency]bool)
	for _, event := range scope {
		if !r.actions.Has(event.ActionType) {
			return nil, nil
		}
		for _, dep := range r.actions.Requires(event.ActionType) {
			requires[dep] = true
		}
	}
	return requires, nil
}

func (r *Runner) save(ctx context.Context, report *entities.PreFlightReport) error {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.PreFlightReportRepository().Create(ctx, report); err != nil {
		return fmt.Errorf("failed to save pre-flight report: %w", err)
	}

	if err := uow.EventBus().Publish(events.PreFlightCompletedEvent{
		CampaignID: report.CampaignID,
		EventType:  report.EventType,
		Healthy:    report.Healthy,
	}); err != nil {
		log.WithError(err).Error("Failed to publish pre-flight completed event")
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Latest returns the most recent reports of a campaign, newest first
func (r *Runner) Latest(ctx context.Context, campaignID uuid.UUID, limit int) ([]*entities.PreFlightReport, error) {
	uow := r.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	reports, err := uow.PreFlightReportRepository().GetLatestByCampaign(ctx, campaignID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pre-flight reports: %w", err)
	}
	return reports, nil
}
