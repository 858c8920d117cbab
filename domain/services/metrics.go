package services

import (
	"time"

	"tumulte/domain/interfaces"
)

type noopMetrics struct{}

func (noopMetrics) RecordTriggerEvaluated(string, bool)               {}
func (noopMetrics) RecordContribution(bool)                           {}
func (noopMetrics) RecordActionExecution(string, bool, time.Duration) {}
func (noopMetrics) RecordInstancesExpired(int)                        {}
func (noopMetrics) RecordRewardOrphaned()                             {}

func metricsOrNoop(m interfaces.MetricsRecorder) interfaces.MetricsRecorder {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
