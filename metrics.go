package svcwatch

import "sync/atomic"

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricLoginSuccess is an exported constant or variable used by the authentication engine.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure is an exported constant or variable used by the authentication engine.
	MetricLoginFailure
	// MetricLoginRateLimited is an exported constant or variable used by the authentication engine.
	MetricLoginRateLimited
	// MetricTOTPChallengeIssued is an exported constant or variable used by the authentication engine.
	MetricTOTPChallengeIssued
	// MetricTOTPValidateSuccess is an exported constant or variable used by the authentication engine.
	MetricTOTPValidateSuccess
	// MetricTOTPValidateFailure is an exported constant or variable used by the authentication engine.
	MetricTOTPValidateFailure
	// MetricRefreshSuccess is an exported constant or variable used by the authentication engine.
	MetricRefreshSuccess
	// MetricRefreshFailure is an exported constant or variable used by the authentication engine.
	MetricRefreshFailure
	// MetricRefreshReuse is an exported constant or variable used by the authentication engine.
	MetricRefreshReuse
	// MetricTOTPEnabled is an exported constant or variable used by the authentication engine.
	MetricTOTPEnabled
	// MetricTOTPDisabled is an exported constant or variable used by the authentication engine.
	MetricTOTPDisabled
	// MetricResetRequested is an exported constant or variable used by the authentication engine.
	MetricResetRequested
	// MetricResetCompleted is an exported constant or variable used by the authentication engine.
	MetricResetCompleted
	// MetricSetupCompleted is an exported constant or variable used by the authentication engine.
	MetricSetupCompleted
	// MetricPasswordChanged is an exported constant or variable used by the authentication engine.
	MetricPasswordChanged
	// MetricUserCreated is an exported constant or variable used by the authentication engine.
	MetricUserCreated
	// MetricUserDeleted is an exported constant or variable used by the authentication engine.
	MetricUserDeleted

	metricCount
)

// Metrics defines a public type used by svcwatch APIs.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled  bool
	counters [metricCount]atomic.Uint64
}

// MetricsSnapshot defines a public type used by svcwatch APIs.
//
// MetricsSnapshot instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsSnapshot struct {
	Counters map[MetricID]uint64
}

// NewMetrics describes the newmetrics operation and its observable behavior.
//
// NewMetrics may return an error when input validation, dependency calls, or security checks fail.
// NewMetrics does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{enabled: cfg.Enabled}
}

// Inc describes the inc operation and its observable behavior.
//
// Inc may return an error when input validation, dependency calls, or security checks fail.
// Inc does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricCount {
		return
	}
	m.counters[id].Add(1)
}

// Snapshot describes the snapshot operation and its observable behavior.
//
// Snapshot may return an error when input validation, dependency calls, or security checks fail.
// Snapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{Counters: make(map[MetricID]uint64, metricCount)}
	if m == nil || !m.enabled {
		return snap
	}
	for id := MetricID(0); id < metricCount; id++ {
		if v := m.counters[id].Load(); v > 0 {
			snap.Counters[id] = v
		}
	}
	return snap
}
