package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tumulte/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

// MetricsProvider manages OpenTelemetry metrics and implements interfaces.MetricsRecorder
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// reader replaces the configured exporter when set
	reader sdkmetric.Reader

	triggersEvaluatedCounter     metric.Int64Counter
	contributionsCounter         metric.Int64Counter
	actionExecutionsCounter      metric.Int64Counter
	actionDurationHist           metric.Float64Histogram
	instancesExpiredCounter      metric.Int64Counter
	rewardsOrphanedCounter       metric.Int64Counter
	natsMessagesReceivedCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{config: cfg}
}

// NewMetricsProviderWithReader creates a provider exporting through reader, used by tests
func NewMetricsProviderWithReader(cfg *config.Config, reader sdkmetric.Reader) *MetricsProvider {
	return &MetricsProvider{config: cfg, reader: reader}
}

// Initialize sets up the OpenTelemetry meter provider and instruments
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.ServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	reader := mp.reader
	if reader == nil {
		var exporter sdkmetric.Exporter
		switch mp.config.MetricsExporter {
		case "stdout":
			exporter, err = stdoutmetric.New()
			if err != nil {
				return fmt.Errorf("failed to create stdout exporter: %w", err)
			}
			log.Info("Using stdout metric exporter")

		case "otlp":
			dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			exporter, err = otlpmetricgrpc.New(dialCtx,
				otlpmetricgrpc.WithEndpoint(mp.config.OTLPEndpoint),
				otlpmetricgrpc.WithInsecure(),
			)
			if err != nil {
				return fmt.Errorf("failed to create OTLP exporter: %w", err)
			}
			log.WithField("endpoint", mp.config.OTLPEndpoint).Info("Using OTLP metric exporter")

		case "none", "":
			log.Info("Metrics export disabled")
			mp.initialized = true
			return nil

		default:
			return fmt.Errorf("unknown exporter type: %s", mp.config.MetricsExporter)
		}

		reader = sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(mp.config.MetricsExportPeriod))
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("tumulte")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized")
	return nil
}

func (mp *MetricsProvider) createInstruments() error {
	var err error

	mp.triggersEvaluatedCounter, err = mp.meter.Int64Counter(
		TriggersEvaluatedTotal,
		metric.WithDescription("Total number of trigger evaluations"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create triggers evaluated counter: %w", err)
	}

	mp.contributionsCounter, err = mp.meter.Int64Counter(
		ContributionsTotal,
		metric.WithDescription("Total number of channel point contributions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create contributions counter: %w", err)
	}

	mp.actionExecutionsCounter, err = mp.meter.Int64Counter(
		ActionExecutionsTotal,
		metric.WithDescription("Total number of action executions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create action executions counter: %w", err)
	}

	mp.actionDurationHist, err = mp.meter.Float64Histogram(
		ActionExecutionDuration,
		metric.WithDescription("Duration of action executions in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create action duration histogram: %w", err)
	}

	mp.instancesExpiredCounter, err = mp.meter.Int64Counter(
		InstancesExpiredTotal,
		metric.WithDescription("Total number of instances expired by the sweep"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create instances expired counter: %w", err)
	}

	mp.rewardsOrphanedCounter, err = mp.meter.Int64Counter(
		RewardsOrphanedTotal,
		metric.WithDescription("Total number of failed Twitch reward deletions"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rewards orphaned counter: %w", err)
	}

	mp.natsMessagesReceivedCounter, err = mp.meter.Int64Counter(
		NATSMessagesReceivedTotal,
		metric.WithDescription("Total number of NATS messages received"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages received counter: %w", err)
	}

	mp.natsMessagesPublishedCounter, err = mp.meter.Int64Counter(
		NATSMessagesPublishedTotal,
		metric.WithDescription("Total number of NATS messages published"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create NATS messages published counter: %w", err)
	}

	return nil
}

// Shutdown flushes and stops the meter provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordTriggerEvaluated counts a trigger evaluation
func (mp *MetricsProvider) RecordTriggerEvaluated(triggerType string, fired bool) {
	if !mp.isEnabled() {
		return
	}

	outcome := OutcomeSkipped
	if fired {
		outcome = OutcomeFired
	}
	mp.triggersEvaluatedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelTriggerType, triggerType),
			attribute.String(LabelOutcome, outcome),
		),
	)
}

// RecordContribution counts a redemption applied to an instance
func (mp *MetricsProvider) RecordContribution(accepted bool) {
	if !mp.isEnabled() {
		return
	}

	outcome := OutcomeDuplicate
	if accepted {
		outcome = OutcomeAccepted
	}
	mp.contributionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOutcome, outcome)),
	)
}

// RecordActionExecution counts an action execution and its duration
func (mp *MetricsProvider) RecordActionExecution(actionType string, success bool, duration time.Duration) {
	if !mp.isEnabled() {
		return
	}

	outcome := OutcomeFailure
	if success {
		outcome = OutcomeSuccess
	}
	attrs := metric.WithAttributes(
		attribute.String(LabelActionType, actionType),
		attribute.String(LabelOutcome, outcome),
	)
	mp.actionExecutionsCounter.Add(context.Background(), 1, attrs)
	mp.actionDurationHist.Record(context.Background(), duration.Seconds(), attrs)
}

// RecordInstancesExpired counts instances expired by one sweep
func (mp *MetricsProvider) RecordInstancesExpired(count int) {
	if !mp.isEnabled() || count <= 0 {
		return
	}
	mp.instancesExpiredCounter.Add(context.Background(), int64(count))
}

// RecordRewardOrphaned counts a failed remote reward deletion
func (mp *MetricsProvider) RecordRewardOrphaned() {
	if !mp.isEnabled() {
		return
	}
	mp.rewardsOrphanedCounter.Add(context.Background(), 1)
}

// RecordNATSMessageReceived counts a message consumed from subject
func (mp *MetricsProvider) RecordNATSMessageReceived(subject string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelSubject, subject)),
	)
}

// RecordNATSMessagePublished counts a domain event published to NATS
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
