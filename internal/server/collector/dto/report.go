package dto

import (
	"time"

	"github.com/rfcampos/sitewatch/internal/models"
)

// SubmitReportRequest is the body of POST /api/agents/{site}/report.
type SubmitReportRequest struct {
	AgentID      string                  `json:"agent_id" validate:"required"`
	Timestamp    time.Time               `json:"timestamp"`
	AgentVersion string                  `json:"agent_version"`
	Cameras      []models.CameraResult   `json:"cameras"`
	Network      models.NetworkResults   `json:"network"`
}

// SubmitReportResponse acknowledges a stored report.
type SubmitReportResponse struct {
	OK         bool      `json:"ok"`
	ReceivedAt time.Time `json:"received_at"`
}
