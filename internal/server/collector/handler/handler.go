package handler

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rfcampos/sitewatch/internal/config"
	"github.com/rfcampos/sitewatch/internal/models"
	"github.com/rfcampos/sitewatch/internal/server/collector/dto"
	"github.com/rfcampos/sitewatch/internal/server/collector/repository"
	"github.com/rfcampos/sitewatch/internal/server/collector/usecase"
	"github.com/rfcampos/sitewatch/pkg/deps"
	"github.com/rfcampos/sitewatch/pkg/logger"
	"github.com/rfcampos/sitewatch/pkg/middleware"
	"github.com/rfcampos/sitewatch/pkg/validator"
)

const maxSpeedtestBytes = 64 << 20

type Handler struct {
	Logger     *logger.CanonicalLogger
	UseCase    *usecase.UseCase
	Config     *config.CollectorConfig
	Middleware *middleware.AuthMiddleware
}

func NewHandler(d deps.App, cfg *config.CollectorConfig) *Handler {
	repo := repository.NewRepository(d.Database, d.Pub)

	uc := usecase.NewUseCase(usecase.UseCase{
		Repo:   repo,
		Config: cfg,
		Logger: d.Logger,
	})

	h := &Handler{
		Logger:     d.Logger,
		UseCase:    uc,
		Config:     cfg,
		Middleware: d.Middleware,
	}

	d.Fiber.Get("/health", h.health)

	api := d.Fiber.Group("/api")

	// Agent endpoints. Registration is open; the site-scoped calls carry
	// the agent token once one has been assigned.
	api.Post("/agents/register", h.register)
	api.Get("/agents/:site/config", middleware.AgentTokenAuth(d.Database, d.Logger), h.getSiteConfig)
	api.Post("/agents/:site/report", middleware.AgentTokenAuth(d.Database, d.Logger), h.submitReport)

	// Self-update distribution.
	api.Get("/agent/version", h.agentVersion)
	api.Get("/agent/download", h.agentDownload)

	// Bandwidth measurement peers.
	api.Get("/speedtest/download", h.speedtestDownload)
	api.Post("/speedtest/upload", h.speedtestUpload)

	// Health dashboard reads.
	api.Get("/status", h.allStatuses)
	api.Get("/status/:site", h.siteStatus)

	// Admin surface.
	admin := api.Group("/admin", d.Middleware.BasicAuthAdmin())
	admin.Get("/agents", h.listAgents)
	admin.Delete("/agents/:id", h.deleteAgent)
	admin.Post("/agents/:id/approve", h.approveAgent)
	admin.Post("/agents/:id/reject", h.rejectAgent)
	admin.Put("/sites/:site/config", h.setSiteConfig)

	return h
}

// register godoc
// @Summary      Register an agent
// @Description  Idempotent registration. New agents are created pending; known agents get their current approval state back, with site, token and interval once approved.
// @Tags         agents
// @Accept       json
// @Produce      json
// @Param        request body dto.RegisterAgentRequest true "Agent identity"
// @Success      200 {object} models.RegistrationResponse
// @Failure      400 {object} models.ErrorResponse
// @Router       /api/agents/register [post]
func (h *Handler) register(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "register_agent"))

	req := new(dto.RegisterAgentRequest)
	if err := c.BodyParser(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := validator.ValidateStruct(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	logger.AddToContext(c.UserContext(), logger.String(logger.FieldAgentID, req.AgentID))

	res := h.UseCase.RegisterAgent(c.UserContext(), req)
	return c.Status(res.Code).JSON(res.Data)
}

// getSiteConfig godoc
// @Summary      Fetch a site's assigned configuration
// @Tags         agents
// @Produce      json
// @Param        site path string true "Site name"
// @Param        X-Agent-Token header string false "Agent token"
// @Success      200 {object} models.SiteConfigPayload
// @Failure      401 {object} models.ErrorResponse
// @Router       /api/agents/{site}/config [get]
func (h *Handler) getSiteConfig(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "get_site_config"))

	res := h.UseCase.GetSiteConfig(c.UserContext(), c.Params("site"))
	return c.Status(res.Code).JSON(res.Data)
}

// submitReport godoc
// @Summary      Submit a site's probe report
// @Tags         agents
// @Accept       json
// @Produce      json
// @Param        site path string true "Site name"
// @Param        X-Agent-Token header string false "Agent token"
// @Param        request body dto.SubmitReportRequest true "Probe results"
// @Success      200 {object} dto.SubmitReportResponse
// @Failure      403 {object} models.ErrorResponse
// @Router       /api/agents/{site}/report [post]
func (h *Handler) submitReport(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "submit_report"))

	agentID, ok := c.Locals(middleware.AgentIDContextKey).(string)
	if !ok || agentID == "" {
		h.Logger.Error("agent_id not found in context")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "authentication context error"})
	}

	req := new(dto.SubmitReportRequest)
	if err := c.BodyParser(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := validator.ValidateStruct(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res := h.UseCase.SubmitReport(c.UserContext(), c.Params("site"), agentID, req)
	return c.Status(res.Code).JSON(res.Data)
}

// agentVersion godoc
// @Summary      Describe the downloadable agent package
// @Tags         updates
// @Produce      json
// @Success      200 {object} models.VersionInfo
// @Failure      404 {object} models.ErrorResponse
// @Router       /api/agent/version [get]
func (h *Handler) agentVersion(c *fiber.Ctx) error {
	info, err := h.packageInfo()
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no agent package available"})
	}
	return c.JSON(info)
}

// agentDownload godoc
// @Summary      Download the agent package
// @Tags         updates
// @Produce      octet-stream
// @Success      200 {file} binary
// @Failure      404 {object} models.ErrorResponse
// @Router       /api/agent/download [get]
func (h *Handler) agentDownload(c *fiber.Ctx) error {
	if h.Config.AgentPackagePath == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no agent package available"})
	}
	if _, err := os.Stat(h.Config.AgentPackagePath); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no agent package available"})
	}
	return c.SendFile(h.Config.AgentPackagePath)
}

// speedtestDownload streams size_bytes of zeros so agents can time the
// downlink.
func (h *Handler) speedtestDownload(c *fiber.Ctx) error {
	size, err := strconv.ParseInt(c.Query("size_bytes", "1048576"), 10, 64)
	if err != nil || size <= 0 || size > maxSpeedtestBytes {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid size_bytes"})
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEOctetStream)
	c.Set(fiber.HeaderContentLength, strconv.FormatInt(size, 10))

	chunk := make([]byte, 64<<10)
	remaining := size
	for remaining > 0 {
		n := int64(len(chunk))
		if remaining < n {
			n = remaining
		}
		if _, err := c.Write(chunk[:n]); err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// speedtestUpload discards the body and acknowledges how much arrived so
// agents can time the uplink.
func (h *Handler) speedtestUpload(c *fiber.Ctx) error {
	received := int64(len(c.Body()))
	return c.JSON(fiber.Map{"received_bytes": received})
}

// allStatuses godoc
// @Summary      Derived health of every approved site
// @Tags         status
// @Produce      json
// @Success      200 {object} map[string][]models.SiteStatus
// @Router       /api/status [get]
func (h *Handler) allStatuses(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "all_statuses"))

	res := h.UseCase.AllStatuses(c.UserContext())
	return c.Status(res.Code).JSON(res.Data)
}

// siteStatus godoc
// @Summary      Derived health of one site
// @Tags         status
// @Produce      json
// @Param        site path string true "Site name"
// @Success      200 {object} models.SiteStatus
// @Failure      404 {object} models.ErrorResponse
// @Router       /api/status/{site} [get]
func (h *Handler) siteStatus(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "site_status"))

	res := h.UseCase.SiteStatus(c.UserContext(), c.Params("site"))
	return c.Status(res.Code).JSON(res.Data)
}

// listAgents godoc
// @Summary      List registered agents
// @Tags         admin
// @Produce      json
// @Success      200 {object} dto.ListAgentsResponse
// @Router       /api/admin/agents [get]
// @Security     BasicAuth
func (h *Handler) listAgents(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "list_agents"))

	res := h.UseCase.ListAgents(c.UserContext())
	return c.Status(res.Code).JSON(res.Data)
}

// deleteAgent godoc
// @Summary      Remove an agent
// @Tags         admin
// @Produce      json
// @Param        id path string true "Agent ID"
// @Success      200 {object} map[string]string
// @Failure      404 {object} models.ErrorResponse
// @Router       /api/admin/agents/{id} [delete]
// @Security     BasicAuth
func (h *Handler) deleteAgent(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "delete_agent"))

	res := h.UseCase.DeleteAgent(c.UserContext(), c.Params("id"))
	return c.Status(res.Code).JSON(res.Data)
}

// approveAgent godoc
// @Summary      Approve a pending agent and bind it to a site
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        id path string true "Agent ID"
// @Param        request body dto.ApproveAgentRequest true "Site binding"
// @Success      200 {object} dto.AgentSummary
// @Failure      404 {object} models.ErrorResponse
// @Failure      409 {object} models.ErrorResponse "Site already assigned"
// @Router       /api/admin/agents/{id}/approve [post]
// @Security     BasicAuth
func (h *Handler) approveAgent(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "approve_agent"))

	req := new(dto.ApproveAgentRequest)
	if err := c.BodyParser(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validator.ValidateStruct(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res := h.UseCase.ApproveAgent(c.UserContext(), c.Params("id"), req)
	if !res.Success {
		return c.Status(res.Code).JSON(fiber.Map{"error": res.Message})
	}
	return c.Status(res.Code).JSON(res.Data)
}

// rejectAgent godoc
// @Summary      Reject an agent
// @Tags         admin
// @Produce      json
// @Param        id path string true "Agent ID"
// @Success      200 {object} dto.AgentSummary
// @Failure      404 {object} models.ErrorResponse
// @Router       /api/admin/agents/{id}/reject [post]
// @Security     BasicAuth
func (h *Handler) rejectAgent(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "reject_agent"))

	res := h.UseCase.RejectAgent(c.UserContext(), c.Params("id"))
	if !res.Success {
		return c.Status(res.Code).JSON(fiber.Map{"error": res.Message})
	}
	return c.Status(res.Code).JSON(res.Data)
}

// setSiteConfig godoc
// @Summary      Assign a site's camera list and interval
// @Tags         admin
// @Accept       json
// @Produce      json
// @Param        site path string true "Site name"
// @Param        request body dto.SetSiteConfigRequest true "Site configuration"
// @Success      200 {object} map[string]string
// @Router       /api/admin/sites/{site}/config [put]
// @Security     BasicAuth
func (h *Handler) setSiteConfig(c *fiber.Ctx) error {
	logger.AddToContext(c.UserContext(), logger.String(logger.FieldOperation, "set_site_config"))

	req := new(dto.SetSiteConfigRequest)
	if err := c.BodyParser(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := validator.ValidateStruct(req); err != nil {
		logger.AddToContext(c.UserContext(), zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	res := h.UseCase.SetSiteConfig(c.UserContext(), c.Params("site"), req)
	return c.Status(res.Code).JSON(res.Data)
}

// health godoc
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func (h *Handler) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// packageInfo describes the agent binary on disk, checksummed so agents
// can verify what they download.
func (h *Handler) packageInfo() (*models.VersionInfo, error) {
	if h.Config.AgentPackagePath == "" {
		return nil, os.ErrNotExist
	}

	f, err := os.Open(h.Config.AgentPackagePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(hash, f)
	if err != nil {
		return nil, err
	}

	return &models.VersionInfo{
		Version:   h.Config.AgentPackageVersion,
		Checksum:  hex.EncodeToString(hash.Sum(nil)),
		SizeBytes: size,
	}, nil
}
