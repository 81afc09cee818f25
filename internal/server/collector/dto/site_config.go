package dto

import "github.com/rfcampos/sitewatch/internal/models"

// SetSiteConfigRequest is the admin body of PUT /api/admin/sites/{site}/config.
type SetSiteConfigRequest struct {
	IntervalSeconds int             `json:"interval_sec" validate:"omitempty,min=1"`
	Cameras         []models.Camera `json:"cameras" validate:"dive"`
}
