package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rfcampos/sitewatch/internal/agent/identity"
	"github.com/rfcampos/sitewatch/internal/agent/probe"
	"github.com/rfcampos/sitewatch/internal/agent/repository"
	"github.com/rfcampos/sitewatch/internal/agent/update"
	"github.com/rfcampos/sitewatch/internal/config"
	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/pkg/logger"
	"github.com/rfcampos/sitewatch/pkg/retry"
	"github.com/rfcampos/sitewatch/pkg/version"
)

// State of the agent lifecycle.
type State int

const (
	StateBootstrapping State = iota
	StateAwaitingApproval
	StateActive
)

func (s State) String() string {
	switch s {
	case StateBootstrapping:
		return "bootstrapping"
	case StateAwaitingApproval:
		return "awaiting_approval"
	default:
		return "active"
	}
}

// ErrRestartRequired signals the caller that the running package changed
// (update applied or rolled back) and the process must re-exec.
var ErrRestartRequired = errors.New("restart required to load replaced agent package")

// Loop orchestrates identity bootstrap, registration, config sync,
// probing, report submission and update checks.
type Loop struct {
	cfg      *config.AgentConfig
	ids      *identity.Store
	client   repository.ICollectorClient
	runner   *probe.Runner
	updates  *update.Manager
	logger   *logger.CanonicalLogger

	state           State
	identity        identity.Identity
	site            string
	intervalSeconds int
	rejectedStreak  int
	lastUpdateCheck time.Time

	lastSpeedtest  time.Time
	cachedDownMbps *float64
	cachedUpMbps   *float64
}

func NewLoop(cfg *config.AgentConfig, ids *identity.Store, client repository.ICollectorClient, runner *probe.Runner, updates *update.Manager, log *logger.CanonicalLogger) *Loop {
	return &Loop{
		cfg:             cfg,
		ids:             ids,
		client:          client,
		runner:          runner,
		updates:         updates,
		logger:          log.Component("loop"),
		state:           StateBootstrapping,
		intervalSeconds: cfg.IntervalSeconds,
	}
}

// State returns the current lifecycle state.
func (l *Loop) State() State {
	return l.state
}

// Site returns the collector-assigned site, empty until approved.
func (l *Loop) Site() string {
	return l.site
}

// RunOnce performs a single pass: register, sync config, probe, report,
// check for updates. The returned error is nil when a report was
// submitted, ErrPendingApproval while the collector has not approved this
// agent, and any other error on an unrecovered failure.
func (l *Loop) RunOnce(ctx context.Context) error {
	return l.cycle(ctx)
}

// Run executes cycles until ctx is cancelled. A failed cycle never
// terminates the loop; it is logged and retried on the next interval.
// Cancellation aborts the sleep between cycles but never a cycle already
// inside its update swap. Run returns ErrRestartRequired when the running
// package was replaced.
func (l *Loop) Run(ctx context.Context) error {
	for {
		err := l.cycle(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrRestartRequired):
			return err
		case errors.Is(err, models.ErrPendingApproval):
			l.logger.Info("awaiting approval from collector",
				logger.String(logger.FieldAgentID, l.identity.AgentID),
			)
		case errors.Is(err, models.ErrRejected):
			l.logger.Warn("registration rejected, backing off",
				logger.String(logger.FieldAgentID, l.identity.AgentID),
				logger.Int("rejected_streak", l.rejectedStreak),
			)
		default:
			l.logger.WithError(err).Error("cycle failed, retrying next interval")
		}

		select {
		case <-ctx.Done():
			l.logger.Info("shutdown requested, stopping loop")
			return ctx.Err()
		case <-time.After(l.sleepInterval()):
		}
	}
}

// cycle runs one full pass of the agent state machine.
func (l *Loop) cycle(ctx context.Context) error {
	if l.state == StateBootstrapping {
		id, err := l.ids.LoadOrCreate()
		if err != nil {
			// The identity itself is valid; only persistence failed.
			l.logger.WithError(err).Warn("identity not persisted, id will be rederived next run")
		}
		l.identity = id
		l.logger.Info("identity loaded",
			logger.String(logger.FieldAgentID, id.AgentID),
			logger.String(logger.FieldHostname, id.Hostname),
		)
	}

	regErr := l.register(ctx)

	if l.updates != nil {
		if rolledBack := l.updates.ConfirmCycle(regErr == nil); rolledBack {
			return ErrRestartRequired
		}
	}

	if regErr != nil {
		return regErr
	}

	cameras, intervalSeconds := l.syncConfig(ctx)
	if intervalSeconds > 0 {
		l.intervalSeconds = intervalSeconds
	}

	camResults, netResults := l.runner.Run(ctx, cameras)

	if l.cfg.SpeedtestEnabled {
		l.measureBandwidth(ctx)
		netResults.DownloadMbps = l.cachedDownMbps
		netResults.UploadMbps = l.cachedUpMbps
	}

	report := &models.Report{
		AgentID:      l.identity.AgentID,
		Site:         l.site,
		Timestamp:    time.Now().UTC(),
		AgentVersion: version.Current,
		Cameras:      camResults,
		Network:      netResults,
	}

	if err := l.client.SubmitReport(ctx, report); err != nil {
		return fmt.Errorf("failed to submit report: %w", err)
	}

	l.logger.Info("report submitted",
		logger.String(logger.FieldSite, l.site),
		logger.Int(logger.FieldCamerasUp, report.CamerasUp()),
		logger.Int(logger.FieldCamerasTotal, len(report.Cameras)),
	)

	return l.checkUpdates(ctx)
}

// register attempts registration and applies the resulting state
// transition. Approval adopts the server-assigned site, token and
// interval; pending and rejected responses put the loop in
// AwaitingApproval, which is the expected steady state until a human
// approves.
func (l *Loop) register(ctx context.Context) error {
	resp, err := l.client.Register(ctx, l.identity.AgentID, l.identity.Hostname, l.cfg.Site)
	if err != nil {
		l.transition(StateAwaitingApproval)
		return err
	}

	switch resp.Status {
	case models.RegistrationApproved:
		l.site = resp.Site
		if resp.IntervalSeconds > 0 {
			l.intervalSeconds = resp.IntervalSeconds
		}
		l.rejectedStreak = 0
		l.transition(StateActive)
		return nil
	case models.RegistrationRejected:
		l.rejectedStreak++
		l.transition(StateAwaitingApproval)
		return models.ErrRejected
	default:
		l.rejectedStreak = 0
		l.transition(StateAwaitingApproval)
		return models.ErrPendingApproval
	}
}

// syncConfig fetches the collector's site config. Server-assigned values
// win over the local file except when the server camera list is empty, in
// which case the local list is the fallback. Config sync always precedes
// probing, so probes reflect the latest known camera list.
func (l *Loop) syncConfig(ctx context.Context) ([]models.Camera, int) {
	payload, err := l.client.GetConfig(ctx, l.site)
	if err != nil {
		l.logger.WithError(err).Warn("config fetch failed, using local camera list")
		return l.cfg.Cameras, 0
	}

	cameras := payload.Cameras
	if len(cameras) == 0 {
		cameras = l.cfg.Cameras
	}

	return cameras, payload.IntervalSeconds
}

// measureBandwidth runs the collector-backed throughput test on its own
// cadence, which is normally much slower than the report interval, and
// caches the latest result for the report cycles in between.
func (l *Loop) measureBandwidth(ctx context.Context) {
	if !l.lastSpeedtest.IsZero() && time.Since(l.lastSpeedtest) < l.cfg.SpeedtestInterval {
		return
	}
	l.lastSpeedtest = time.Now()

	down, up, err := l.client.MeasureBandwidth(ctx, l.cfg.SpeedDownloadBytes, l.cfg.SpeedUploadBytes)
	if err != nil {
		l.logger.WithError(err).Warn("bandwidth test failed, keeping last result")
		return
	}
	l.cachedDownMbps = down
	l.cachedUpMbps = up
}

func (l *Loop) checkUpdates(ctx context.Context) error {
	if l.updates == nil {
		return nil
	}
	if !l.lastUpdateCheck.IsZero() && time.Since(l.lastUpdateCheck) < l.cfg.UpdateCheckInterval {
		return nil
	}
	l.lastUpdateCheck = time.Now()

	outcome, err := l.updates.CheckAndApply(ctx, version.Current)
	switch outcome {
	case update.OutcomeUpdated:
		return ErrRestartRequired
	case update.OutcomeFailed:
		l.logger.WithError(err).Error("update check failed, keeping current version")
	}
	return nil
}

// sleepInterval applies the configured interval, stretched by exponential
// backoff while the collector keeps rejecting this agent.
func (l *Loop) sleepInterval() time.Duration {
	interval := time.Duration(l.intervalSeconds) * time.Second
	if interval <= 0 {
		interval = l.cfg.Interval()
	}

	if l.rejectedStreak > 0 {
		backoff := retry.Backoff(l.rejectedStreak, retry.Config{
			InitialBackoff: l.cfg.RegistrationInitialBackoff,
			MaxBackoff:     l.cfg.RegistrationMaxBackoff,
			Multiplier:     l.cfg.RegistrationBackoffMultiplier,
			Jitter:         true,
		})
		if backoff > interval {
			return backoff
		}
	}

	return interval
}

func (l *Loop) transition(next State) {
	if l.state == next {
		return
	}
	l.logger.Info("state transition",
		logger.String("from", l.state.String()),
		logger.String("to", next.String()),
	)
	l.state = next
}
