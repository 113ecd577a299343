// Package fallback implements the circuit breaker in front of the external
// human-verification dependency: it tracks per-feature health, decides when
// to degrade instead of calling the real service, and recovers automatically
// once a synthetic probe reports the dependency healthy again.
package fallback

import (
	"context"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"mosaic/backend/internal/alert"
	"mosaic/backend/internal/audit"
	"mosaic/backend/internal/config"
	"mosaic/backend/internal/logger"
	"mosaic/backend/internal/model"
)

// AdaptivePolicy lets the caller pick a degraded mode per feature when the
// configured mode is ADAPTIVE.
type AdaptivePolicy func(state model.FallbackState) model.FallbackMode

// Manager owns all fallback state. The state map lives in process memory
// only; a restart resets every feature to normal and lets failures
// reaccumulate against the real dependency.
type Manager struct {
	cfg      config.FallbackConfig
	probe    Prober
	auditor  audit.Recorder
	notifier alert.Notifier
	adaptive AdaptivePolicy

	mu        sync.Mutex
	states    map[string]*model.FallbackState
	lastProbe time.Time

	// probeSem enforces at most one probe in flight: a tick that fires
	// while a probe is still running is skipped, not queued, so a slow
	// dependency is never hit by a probe storm.
	probeSem *semaphore.Weighted

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// Option adjusts a Manager at construction.
type Option func(*Manager)

// WithAdaptivePolicy installs the policy consulted for ADAPTIVE mode.
func WithAdaptivePolicy(p AdaptivePolicy) Option {
	return func(m *Manager) { m.adaptive = p }
}

// New creates a fallback manager. The configuration must already be validated.
func New(cfg config.FallbackConfig, probe Prober, auditor audit.Recorder, notifier alert.Notifier, opts ...Option) *Manager {
	m := &Manager{
		cfg:      cfg,
		probe:    probe,
		auditor:  auditor,
		notifier: notifier,
		states:   make(map[string]*model.FallbackState),
		probeSem: semaphore.NewWeighted(1),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Trigger records a dependency failure for a feature. The first failure
// opens the degraded state; repeats increment the failure count and refresh
// the metadata. Every call is audited.
func (m *Manager) Trigger(featureID string, reason model.FallbackReason, message string) {
	if !m.cfg.Enabled {
		logger.Debug("fallback disabled, ignoring trigger", "feature", featureID, "reason", reason)
		return
	}

	now := time.Now().UTC()

	m.mu.Lock()
	state, exists := m.states[featureID]
	if !exists {
		state = &model.FallbackState{
			FeatureID:       featureID,
			Active:          true,
			Reason:          reason,
			StartTime:       now,
			FailureCount:    1,
			LastHealthCheck: now,
			Mode:            m.cfg.Mode,
		}
		m.states[featureID] = state
	} else {
		state.FailureCount++
		state.Reason = reason
		state.LastHealthCheck = now
	}
	snapshot := *state
	m.mu.Unlock()

	action := model.AuditActionFallbackOpened
	if exists {
		action = model.AuditActionFallbackRepeat
	}

	logger.Warn("verification fallback triggered",
		"feature", featureID,
		"reason", reason,
		"failures", snapshot.FailureCount,
		"mode", snapshot.Mode)

	m.auditor.Record(context.Background(), model.AuditEntry{
		Source:    model.AuditSourceFallback,
		Action:    action,
		FeatureID: featureID,
		Reason:    string(reason),
		Details:   message,
	})

	if m.cfg.AlertsEnabled {
		m.notifier.Notify(context.Background(), alert.Alert{
			FeatureID: featureID,
			Reason:    string(reason),
			Message:   message,
		})
	}
}

// ShouldFallback reports whether a feature should degrade instead of calling
// the real dependency. Features classified CRITICAL never degrade, no matter
// how many failures are recorded: payments and admin actions must fail loud
// rather than be silently bypassed.
func (m *Manager) ShouldFallback(featureID string) bool {
	if !m.cfg.Enabled {
		return false
	}

	m.mu.Lock()
	state, exists := m.states[featureID]
	active := exists && state.Active
	m.mu.Unlock()

	if !active {
		return false
	}

	if model.FeatureSecurityLevel(featureID) == model.SecurityLevelCritical {
		m.auditor.Record(context.Background(), model.AuditEntry{
			Source:    model.AuditSourceFallback,
			Action:    model.AuditActionCriticalBypass,
			FeatureID: featureID,
			Reason:    string(model.FallbackReasonManual),
			Details:   "degradation requested for critical feature",
		})
		return false
	}
	return true
}

// ModeFor returns how a degraded feature should be handled. Features that
// are healthy (or may never degrade) get VERIFY: call the real dependency.
// The state is read under one lock acquisition: the recovery loop or a
// concurrent Resolve may delete it at any moment.
func (m *Manager) ModeFor(featureID string) model.FallbackMode {
	if !m.cfg.Enabled {
		return model.FallbackModeVerify
	}

	m.mu.Lock()
	state, exists := m.states[featureID]
	var snapshot model.FallbackState
	if exists {
		snapshot = *state
	}
	m.mu.Unlock()

	if !exists || !snapshot.Active {
		return model.FallbackModeVerify
	}

	if model.FeatureSecurityLevel(featureID) == model.SecurityLevelCritical {
		m.auditor.Record(context.Background(), model.AuditEntry{
			Source:    model.AuditSourceFallback,
			Action:    model.AuditActionCriticalBypass,
			FeatureID: featureID,
			Reason:    string(model.FallbackReasonManual),
			Details:   "degradation requested for critical feature",
		})
		return model.FallbackModeVerify
	}

	if snapshot.Mode == model.FallbackModeAdaptive && m.adaptive != nil {
		return m.adaptive(snapshot)
	}
	return snapshot.Mode
}

// Resolve manually clears a feature's degraded state. Returns false when the
// feature was not degraded.
func (m *Manager) Resolve(featureID string) bool {
	m.mu.Lock()
	_, exists := m.states[featureID]
	delete(m.states, featureID)
	m.mu.Unlock()

	if !exists {
		return false
	}

	logger.Info("fallback manually resolved", "feature", featureID)
	m.auditor.Record(context.Background(), model.AuditEntry{
		Source:    model.AuditSourceFallback,
		Action:    model.AuditActionRecovered,
		FeatureID: featureID,
		Reason:    string(model.FallbackReasonManual),
	})
	return true
}

// Active returns a snapshot of all degraded features, ordered by feature ID.
func (m *Manager) Active() []model.FallbackState {
	m.mu.Lock()
	states := make([]model.FallbackState, 0, len(m.states))
	for _, state := range m.states {
		states = append(states, *state)
	}
	m.mu.Unlock()

	sort.Slice(states, func(i, j int) bool {
		return states[i].FeatureID < states[j].FeatureID
	})
	return states
}

// Start launches the periodic recovery loop.
func (m *Manager) Start() {
	if !m.cfg.Enabled {
		return
	}
	m.wg.Add(1)
	go m.run()
	logger.Info("fallback recovery loop started", "interval", m.cfg.RecoveryInterval)
}

// Stop halts the recovery loop and waits for an in-flight probe to finish.
func (m *Manager) Stop() {
	if !m.cfg.Enabled {
		return
	}
	close(m.stopCh)
	m.wg.Wait()
	logger.Info("fallback recovery loop stopped")
}

func (m *Manager) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.RecoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckAndRecover()
		case <-m.stopCh:
			return
		}
	}
}

// CheckAndRecover probes the verification dependency and, when it reports
// healthy, transitions every degraded feature back to normal in one pass.
// All gated features share the single dependency, so one healthy probe
// clears them all.
func (m *Manager) CheckAndRecover() {
	m.mu.Lock()
	degraded := len(m.states)
	sinceProbe := time.Since(m.lastProbe)
	m.mu.Unlock()

	if degraded == 0 {
		return
	}
	if m.cfg.HealthCheckInterval > 0 && sinceProbe < m.cfg.HealthCheckInterval {
		return
	}

	// Skip, don't queue: an overlapping tick means the dependency is slow,
	// and piling on probes would make that worse.
	if !m.probeSem.TryAcquire(1) {
		logger.Debug("health probe already in flight, skipping tick")
		return
	}
	defer m.probeSem.Release(1)

	ctx, cancel := context.WithTimeout(context.Background(), m.cfg.Timeout)
	defer cancel()

	err := m.probe.Probe(ctx)
	now := time.Now().UTC()

	m.mu.Lock()
	m.lastProbe = now
	if err != nil {
		for _, state := range m.states {
			state.LastHealthCheck = now
		}
		m.mu.Unlock()
		logger.Warn("verification dependency still unhealthy", "error", err)
		return
	}

	recovered := make([]model.FallbackState, 0, len(m.states))
	for _, state := range m.states {
		recovered = append(recovered, *state)
	}
	m.states = make(map[string]*model.FallbackState)
	m.mu.Unlock()

	sort.Slice(recovered, func(i, j int) bool {
		return recovered[i].FeatureID < recovered[j].FeatureID
	})

	for _, state := range recovered {
		logger.Info("verification dependency recovered",
			"feature", state.FeatureID,
			"degraded_for", now.Sub(state.StartTime),
			"failures", state.FailureCount)
		m.auditor.Record(context.Background(), model.AuditEntry{
			Source:    model.AuditSourceFallback,
			Action:    model.AuditActionRecovered,
			FeatureID: state.FeatureID,
			Reason:    string(state.Reason),
		})
	}
}
