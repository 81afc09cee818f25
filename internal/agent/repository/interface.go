package repository

import (
	"context"

	"github.com/rfcampos/sitewatch/internal/models"
)

// ICollectorClient is the agent's view of the collector API.
type ICollectorClient interface {
	Register(ctx context.Context, agentID, hostname, requestedSite string) (*models.RegistrationResponse, error)
	GetConfig(ctx context.Context, site string) (*models.SiteConfigPayload, error)
	SubmitReport(ctx context.Context, report *models.Report) error
	LatestVersion(ctx context.Context) (*models.VersionInfo, error)
	DownloadPackage(ctx context.Context, dst string) error
	MeasureBandwidth(ctx context.Context, downloadBytes, uploadBytes int64) (*float64, *float64, error)
}
