package models

import "time"

// Camera is one entry in a site's monitored camera list.
type Camera struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
	IP   string `json:"ip" validate:"required,ip"`
}

// CameraResult is the outcome of probing a single camera.
type CameraResult struct {
	CameraID string   `json:"camera_id"`
	Name     string   `json:"name,omitempty"`
	IP       string   `json:"ip"`
	Up       bool     `json:"up"`
	MAC      string   `json:"mac,omitempty"`
	PingMs   *float64 `json:"ping_ms,omitempty"`
}

// NetworkResults holds the uplink probe outcomes of one cycle.
type NetworkResults struct {
	DNSOk        bool                `json:"dns_ok"`
	HTTPOk       bool                `json:"http_ok"`
	UplinkPingMs map[string]*float64 `json:"uplink_ping_ms,omitempty"`
	DownloadMbps *float64            `json:"download_mbps,omitempty"`
	UploadMbps   *float64            `json:"upload_mbps,omitempty"`
}

// AnyFailed reports whether any network probe of the cycle failed. A nil
// uplink latency means the target did not answer.
func (n *NetworkResults) AnyFailed() bool {
	if !n.DNSOk || !n.HTTPOk {
		return true
	}
	for _, ms := range n.UplinkPingMs {
		if ms == nil {
			return true
		}
	}
	return false
}

// Report is one cycle's consolidated probe results. Only the most recent
// report per site is retained for health derivation.
type Report struct {
	AgentID      string         `json:"agent_id"`
	Site         string         `json:"site"`
	Timestamp    time.Time      `json:"timestamp"`
	AgentVersion string         `json:"agent_version,omitempty"`
	Cameras      []CameraResult `json:"cameras"`
	Network      NetworkResults `json:"network"`
}

// CamerasUp counts the cameras reported reachable.
func (r *Report) CamerasUp() int {
	up := 0
	for _, c := range r.Cameras {
		if c.Up {
			up++
		}
	}
	return up
}

// Classification is the derived health of a site.
type Classification string

const (
	ClassificationOK       Classification = "ok"
	ClassificationDegraded Classification = "degraded"
	ClassificationOffline  Classification = "offline"
)

// SiteStatus is recomputed on every read from the latest report and
// last_seen; it is never persisted.
type SiteStatus struct {
	Site           string         `json:"site"`
	Classification Classification `json:"classification"`
	CamerasUp      int            `json:"cameras_up"`
	CamerasTotal   int            `json:"cameras_total"`
	LastReportAge  float64        `json:"last_report_age_sec"`
}

// RegistrationStatus is the collector's answer to a registration attempt.
type RegistrationStatus string

const (
	RegistrationApproved RegistrationStatus = "approved"
	RegistrationPending  RegistrationStatus = "pending"
	RegistrationRejected RegistrationStatus = "rejected"
)

// RegistrationResponse is the wire response of POST /api/agents/register.
type RegistrationResponse struct {
	Status          RegistrationStatus `json:"status"`
	Site            string             `json:"site,omitempty"`
	Token           string             `json:"token,omitempty"`
	IntervalSeconds int                `json:"interval_sec,omitempty"`
}

// SiteConfigPayload is the wire form of a site's assigned configuration.
type SiteConfigPayload struct {
	Site            string   `json:"site"`
	IntervalSeconds int      `json:"interval_sec,omitempty"`
	Cameras         []Camera `json:"cameras"`
}

// VersionInfo describes the agent package the collector currently offers.
type VersionInfo struct {
	Version   string `json:"version"`
	Checksum  string `json:"checksum"`
	SizeBytes int64  `json:"size_bytes"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
