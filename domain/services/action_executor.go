package services

import (
	"context"
	"fmt"
	"time"

	"tumulte/domain/actions"
	"tumulte/domain/entities"
	"tumulte/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ActionExecutor runs the action of an instance through the action registry.
// It never returns an error: every failure ends up in the ResultData.
type ActionExecutor struct {
	registry *actions.Registry
	notifier interfaces.ChatNotifier
	metrics  interfaces.MetricsRecorder
}

// NewActionExecutor creates an action executor. notifier may be nil to disable chat announcements.
func NewActionExecutor(registry *actions.Registry, notifier interfaces.ChatNotifier, metrics interfaces.MetricsRecorder) *ActionExecutor {
	return &ActionExecutor{
		registry: registry,
		notifier: notifier,
		metrics:  metricsOrNoop(metrics),
	}
}

// Execute runs the event's action for instance against the VTT session connectionID
func (e *ActionExecutor) Execute(
	ctx context.Context,
	instance *entities.GamificationInstance,
	event *entities.GamificationEvent,
	connectionID string,
) entities.ResultData {
	logger := log.WithFields(log.Fields{
		"instance_id": instance.ID,
		"event_slug":  event.Slug,
		"action_type": event.ActionType,
	})

	handler, ok := e.registry.Get(event.ActionType)
	if !ok {
		logger.Warn("No handler registered for action type")
		return entities.FailedResult(fmt.Sprintf("no handler registered for action type: %s", event.ActionType))
	}

	start := time.Now()
	result := e.run(ctx, handler, instance, event, connectionID)
	e.metrics.RecordActionExecution(string(event.ActionType), result.Success, time.Since(start))

	if !result.Success {
		logger.WithField("error", result.Error).Warn("Action execution failed")
		return result
	}
	logger.Info("Action executed")

	e.notify(ctx, instance, event, &result)
	return result
}

func (e *ActionExecutor) run(
	ctx context.Context,
	handler actions.Handler,
	instance *entities.GamificationInstance,
	event *entities.GamificationEvent,
	connectionID string,
) (result entities.ResultData) {
	// a panicking handler must not take the trigger pipeline down with it
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"action_type": event.ActionType,
				"panic":       r,
			}).Error("Action handler panicked")
			result = entities.FailedResult(fmt.Sprintf("action handler panicked: %v", r))
		}
	}()
	return handler.Execute(ctx, event.ActionConfig, instance, connectionID)
}

func (e *ActionExecutor) notify(ctx context.Context, instance *entities.GamificationInstance, event *entities.GamificationEvent, result *entities.ResultData) {
	if e.notifier == nil {
		return
	}
	msg := actions.BuildNotificationMessage(event.ActionType, result)
	if msg == nil {
		return
	}
	if err := e.notifier.NotifyCampaign(ctx, instance.CampaignID, instance.StreamerID, *msg); err != nil {
		log.WithError(err).WithField("instance_id", instance.ID).Warn("Failed to send Twitch chat notification")
	}
}
