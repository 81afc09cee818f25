package usecase

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/rfcampos/sitewatch/internal/config"
	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/internal/server/collector/dto"
	"github.com/rfcampos/sitewatch/internal/server/collector/repository"
	"github.com/rfcampos/sitewatch/pkg/logger"
	"github.com/rfcampos/sitewatch/pkg/wrapper"
)

type UseCase struct {
	Repo   repository.IRepository
	Config *config.CollectorConfig
	Logger *logger.CanonicalLogger

	// Now is injectable so staleness classification is testable.
	Now func() time.Time
}

type UseCaseInterface interface {
	RegisterAgent(ctx context.Context, req *dto.RegisterAgentRequest) wrapper.JSONResult
	ApproveAgent(ctx context.Context, agentID string, req *dto.ApproveAgentRequest) wrapper.JSONResult
	RejectAgent(ctx context.Context, agentID string) wrapper.JSONResult
	ListAgents(ctx context.Context) wrapper.JSONResult
	DeleteAgent(ctx context.Context, agentID string) wrapper.JSONResult
	GetSiteConfig(ctx context.Context, site string) wrapper.JSONResult
	SetSiteConfig(ctx context.Context, site string, req *dto.SetSiteConfigRequest) wrapper.JSONResult
	SubmitReport(ctx context.Context, site string, agentID string, req *dto.SubmitReportRequest) wrapper.JSONResult
	SiteStatus(ctx context.Context, site string) wrapper.JSONResult
	AllStatuses(ctx context.Context) wrapper.JSONResult
}

func NewUseCase(uc UseCase) *UseCase {
	if uc.Now == nil {
		uc.Now = func() time.Time { return time.Now().UTC() }
	}
	return &uc
}

// RegisterAgent is idempotent: the same agent re-registering keeps its
// record and its approval state. Only an unknown agent creates a new
// pending entry.
func (uc *UseCase) RegisterAgent(ctx context.Context, req *dto.RegisterAgentRequest) wrapper.JSONResult {
	now := uc.Now()

	agent, err := uc.Repo.GetAgent(ctx, req.AgentID)
	if err != nil {
		uc.Logger.WithError(err).Error("agent lookup failed")
		return internalError()
	}

	if agent == nil {
		agent = &models.AgentRecord{
			AgentID:       req.AgentID,
			Hostname:      req.Hostname,
			RequestedSite: req.RequestedSite,
			ApprovalState: models.ApprovalPending,
			LastSeen:      now,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := uc.Repo.CreateAgent(ctx, agent); err != nil {
			uc.Logger.WithError(err).Error("agent create failed")
			return internalError()
		}
		uc.Logger.Info("new agent registered, awaiting approval",
			logger.String(logger.FieldAgentID, agent.AgentID),
			logger.String(logger.FieldHostname, agent.Hostname),
		)
		return wrapper.ResponseSuccess(http.StatusOK, models.RegistrationResponse{
			Status: models.RegistrationPending,
		})
	}

	agent.Hostname = req.Hostname
	if req.RequestedSite != "" {
		agent.RequestedSite = req.RequestedSite
	}
	agent.LastSeen = now
	agent.UpdatedAt = now

	if agent.ApprovalState == models.ApprovalRejected && uc.Config.AllowRejectedReregister {
		agent.ApprovalState = models.ApprovalPending
	}

	if err := uc.Repo.UpdateAgent(ctx, agent); err != nil {
		uc.Logger.WithError(err).Error("agent update failed")
		return internalError()
	}

	switch agent.ApprovalState {
	case models.ApprovalApproved:
		interval := uc.Config.IntervalSeconds
		if cfg, err := uc.Repo.GetSiteConfig(ctx, agent.Site); err == nil && cfg != nil && cfg.IntervalSeconds > 0 {
			interval = cfg.IntervalSeconds
		}
		return wrapper.ResponseSuccess(http.StatusOK, models.RegistrationResponse{
			Status:          models.RegistrationApproved,
			Site:            agent.Site,
			Token:           agent.Token,
			IntervalSeconds: interval,
		})
	case models.ApprovalRejected:
		return wrapper.ResponseSuccess(http.StatusOK, models.RegistrationResponse{
			Status: models.RegistrationRejected,
		})
	default:
		return wrapper.ResponseSuccess(http.StatusOK, models.RegistrationResponse{
			Status: models.RegistrationPending,
		})
	}
}

func (uc *UseCase) ApproveAgent(ctx context.Context, agentID string, req *dto.ApproveAgentRequest) wrapper.JSONResult {
	agent, err := uc.Repo.ApproveAgent(ctx, agentID, req.Site)
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return wrapper.ResponseFailed(http.StatusNotFound, "agent not found", nil)
		case errors.Is(err, models.ErrConfigConflict):
			return wrapper.ResponseFailed(http.StatusConflict, err.Error(), nil)
		default:
			uc.Logger.WithError(err).Error("agent approval failed")
			return internalError()
		}
	}

	// Seed a config row so the agent's first fetch sees an interval.
	cfg, err := uc.Repo.GetSiteConfig(ctx, req.Site)
	if err == nil && cfg == nil {
		seed := &models.SiteConfig{Site: req.Site, IntervalSeconds: uc.Config.IntervalSeconds}
		if err := uc.Repo.UpsertSiteConfig(ctx, seed); err != nil {
			uc.Logger.WithError(err).Warn("failed to seed site config")
		}
	}

	if err := uc.Repo.PublishAgentEvent(ctx, "agent_approved", agent.AgentID, agent.Site); err != nil {
		uc.Logger.WithError(err).Warn("failed to publish approval event")
	}

	uc.Logger.Info("agent approved",
		logger.String(logger.FieldAgentID, agent.AgentID),
		logger.String(logger.FieldSite, agent.Site),
	)
	return wrapper.ResponseSuccess(http.StatusOK, toAgentSummary(agent))
}

func (uc *UseCase) RejectAgent(ctx context.Context, agentID string) wrapper.JSONResult {
	agent, err := uc.Repo.GetAgent(ctx, agentID)
	if err != nil {
		uc.Logger.WithError(err).Error("agent lookup failed")
		return internalError()
	}
	if agent == nil {
		return wrapper.ResponseFailed(http.StatusNotFound, "agent not found", nil)
	}

	agent.ApprovalState = models.ApprovalRejected
	agent.Site = ""
	agent.Token = ""
	agent.UpdatedAt = uc.Now()
	if err := uc.Repo.UpdateAgent(ctx, agent); err != nil {
		uc.Logger.WithError(err).Error("agent rejection failed")
		return internalError()
	}

	uc.Logger.Info("agent rejected", logger.String(logger.FieldAgentID, agentID))
	return wrapper.ResponseSuccess(http.StatusOK, toAgentSummary(agent))
}

func (uc *UseCase) ListAgents(ctx context.Context) wrapper.JSONResult {
	agents, err := uc.Repo.ListAgents(ctx)
	if err != nil {
		uc.Logger.WithError(err).Error("agent listing failed")
		return internalError()
	}

	resp := dto.ListAgentsResponse{Agents: make([]dto.AgentSummary, 0, len(agents))}
	for i := range agents {
		resp.Agents = append(resp.Agents, toAgentSummary(&agents[i]))
	}
	return wrapper.ResponseSuccess(http.StatusOK, resp)
}

func (uc *UseCase) DeleteAgent(ctx context.Context, agentID string) wrapper.JSONResult {
	if err := uc.Repo.DeleteAgent(ctx, agentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return wrapper.ResponseFailed(http.StatusNotFound, "agent not found", nil)
		}
		uc.Logger.WithError(err).Error("agent deletion failed")
		return internalError()
	}
	return wrapper.ResponseSuccess(http.StatusOK, fiberMap{"deleted": agentID})
}

// GetSiteConfig returns the cameras and interval assigned to a site. A
// site with no stored config gets the default interval and no cameras,
// which tells the agent to fall back to its local list.
func (uc *UseCase) GetSiteConfig(ctx context.Context, site string) wrapper.JSONResult {
	payload := models.SiteConfigPayload{
		Site:            site,
		IntervalSeconds: uc.Config.IntervalSeconds,
		Cameras:         []models.Camera{},
	}

	cfg, err := uc.Repo.GetSiteConfig(ctx, site)
	if err != nil {
		uc.Logger.WithError(err).Error("site config lookup failed")
		return internalError()
	}
	if cfg != nil {
		if cfg.IntervalSeconds > 0 {
			payload.IntervalSeconds = cfg.IntervalSeconds
		}
		cameras, err := cfg.Cameras()
		if err != nil {
			uc.Logger.WithError(err).Error("stored camera list is corrupt",
				logger.String(logger.FieldSite, site))
			return internalError()
		}
		if cameras != nil {
			payload.Cameras = cameras
		}
	}

	return wrapper.ResponseSuccess(http.StatusOK, payload)
}

func (uc *UseCase) SetSiteConfig(ctx context.Context, site string, req *dto.SetSiteConfigRequest) wrapper.JSONResult {
	cfg := &models.SiteConfig{
		Site:            site,
		IntervalSeconds: req.IntervalSeconds,
	}
	if err := cfg.SetCameras(req.Cameras); err != nil {
		return wrapper.ResponseFailed(http.StatusBadRequest, "invalid camera list", nil)
	}

	if err := uc.Repo.UpsertSiteConfig(ctx, cfg); err != nil {
		uc.Logger.WithError(err).Error("site config store failed")
		return internalError()
	}

	if err := uc.Repo.PublishAgentEvent(ctx, "config_updated", "", site); err != nil {
		uc.Logger.WithError(err).Warn("failed to publish config event")
	}

	uc.Logger.Info("site config updated",
		logger.String(logger.FieldSite, site),
		logger.Int(logger.FieldCamerasTotal, len(req.Cameras)),
	)
	return wrapper.ResponseSuccess(http.StatusOK, fiberMap{"site": site})
}

// SubmitReport stores a site's probe results. agentID comes from the
// token middleware and must match the report body, so an agent can never
// write another site's data.
func (uc *UseCase) SubmitReport(ctx context.Context, site string, agentID string, req *dto.SubmitReportRequest) wrapper.JSONResult {
	if req.AgentID != agentID {
		return wrapper.ResponseFailed(http.StatusForbidden, "report agent_id does not match site binding", nil)
	}

	now := uc.Now()
	ts := req.Timestamp
	if ts.IsZero() {
		ts = now
	}

	report := models.Report{
		AgentID:      req.AgentID,
		Site:         site,
		Timestamp:    ts,
		AgentVersion: req.AgentVersion,
		Cameras:      req.Cameras,
		Network:      req.Network,
	}

	row := &models.SiteReport{Site: site, AgentID: req.AgentID, ReceivedAt: now}
	if err := row.SetReport(&report); err != nil {
		return wrapper.ResponseFailed(http.StatusBadRequest, "invalid report payload", nil)
	}

	if err := uc.Repo.UpsertReport(ctx, row); err != nil {
		uc.Logger.WithError(err).Error("report store failed")
		return internalError()
	}
	if err := uc.Repo.TouchLastSeen(ctx, req.AgentID, now); err != nil {
		uc.Logger.WithError(err).Warn("failed to update last_seen")
	}

	uc.Logger.Info("report received",
		logger.String(logger.FieldSite, site),
		logger.Int(logger.FieldCamerasUp, report.CamerasUp()),
		logger.Int(logger.FieldCamerasTotal, len(report.Cameras)),
	)
	return wrapper.ResponseSuccess(http.StatusOK, dto.SubmitReportResponse{OK: true, ReceivedAt: now})
}

func (uc *UseCase) SiteStatus(ctx context.Context, site string) wrapper.JSONResult {
	agent, err := uc.Repo.GetAgentBySite(ctx, site)
	if err != nil {
		uc.Logger.WithError(err).Error("agent lookup failed")
		return internalError()
	}
	if agent == nil {
		return wrapper.ResponseFailed(http.StatusNotFound, "unknown site", nil)
	}

	status, err := uc.statusFor(ctx, agent)
	if err != nil {
		uc.Logger.WithError(err).Error("status derivation failed")
		return internalError()
	}
	return wrapper.ResponseSuccess(http.StatusOK, status)
}

func (uc *UseCase) AllStatuses(ctx context.Context) wrapper.JSONResult {
	agents, err := uc.Repo.ListAgents(ctx)
	if err != nil {
		uc.Logger.WithError(err).Error("agent listing failed")
		return internalError()
	}

	statuses := make([]models.SiteStatus, 0, len(agents))
	for i := range agents {
		if agents[i].ApprovalState != models.ApprovalApproved {
			continue
		}
		status, err := uc.statusFor(ctx, &agents[i])
		if err != nil {
			uc.Logger.WithError(err).Error("status derivation failed",
				logger.String(logger.FieldSite, agents[i].Site))
			continue
		}
		statuses = append(statuses, status)
	}
	return wrapper.ResponseSuccess(http.StatusOK, fiberMap{"sites": statuses})
}

func (uc *UseCase) statusFor(ctx context.Context, agent *models.AgentRecord) (models.SiteStatus, error) {
	row, err := uc.Repo.GetLatestReport(ctx, agent.Site)
	if err != nil {
		return models.SiteStatus{}, err
	}

	var report *models.Report
	var receivedAt time.Time
	if row != nil {
		receivedAt = row.ReceivedAt
		report, err = row.Report()
		if err != nil {
			return models.SiteStatus{}, err
		}
	}

	return ClassifySite(agent.Site, report, receivedAt, agent.LastSeen, uc.Now(), uc.Config.OfflineThreshold), nil
}

// ClassifySite derives a site's health from its latest report and the
// owning agent's last_seen. The rules, in precedence order: no report
// received within the threshold means offline; a live agent that has
// never reported is degraded; any failed probe or unreachable camera is
// degraded; everything else is ok.
func ClassifySite(site string, report *models.Report, receivedAt, lastSeen, now time.Time, offlineThreshold time.Duration) models.SiteStatus {
	status := models.SiteStatus{Site: site, Classification: models.ClassificationOffline}

	if report != nil {
		status.CamerasUp = report.CamerasUp()
		status.CamerasTotal = len(report.Cameras)
		status.LastReportAge = now.Sub(receivedAt).Seconds()
	}

	if lastSeen.IsZero() || now.Sub(lastSeen) > offlineThreshold {
		return status
	}

	if report == nil {
		// Agent is alive but has never delivered a report.
		status.Classification = models.ClassificationDegraded
		return status
	}

	// last_seen also moves on registration, so the report's own age
	// decides staleness: an agent whose report path is broken goes
	// offline no matter how recently it checked in.
	if now.Sub(receivedAt) > offlineThreshold {
		return status
	}

	if report.Network.AnyFailed() || status.CamerasUp < status.CamerasTotal {
		status.Classification = models.ClassificationDegraded
		return status
	}

	status.Classification = models.ClassificationOK
	return status
}

type fiberMap = map[string]interface{}

func toAgentSummary(a *models.AgentRecord) dto.AgentSummary {
	return dto.AgentSummary{
		AgentID:       a.AgentID,
		Hostname:      a.Hostname,
		Site:          a.Site,
		RequestedSite: a.RequestedSite,
		ApprovalState: a.ApprovalState,
		LastSeen:      a.LastSeen,
		CreatedAt:     a.CreatedAt,
	}
}

func internalError() wrapper.JSONResult {
	return wrapper.ResponseFailed(http.StatusInternalServerError, "internal server error", nil)
}
