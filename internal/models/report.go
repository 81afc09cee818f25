package models

import (
	"encoding/json"
	"time"
)

// SiteConfig is the per-site camera list and interval assigned by an
// administrator and served to the site's agent.
type SiteConfig struct {
	Site            string    `gorm:"primaryKey;column:site"`
	IntervalSeconds int       `gorm:"column:interval_sec"`
	CamerasJSON     string    `gorm:"column:cameras"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (SiteConfig) TableName() string {
	return "site_configs"
}

func (c *SiteConfig) Cameras() ([]Camera, error) {
	if c.CamerasJSON == "" {
		return nil, nil
	}
	var cams []Camera
	if err := json.Unmarshal([]byte(c.CamerasJSON), &cams); err != nil {
		return nil, err
	}
	return cams, nil
}

func (c *SiteConfig) SetCameras(cams []Camera) error {
	raw, err := json.Marshal(cams)
	if err != nil {
		return err
	}
	c.CamerasJSON = string(raw)
	return nil
}

// SiteReport is the latest report slot for a site. One row per site,
// overwritten on every submission.
type SiteReport struct {
	Site       string    `gorm:"primaryKey;column:site"`
	AgentID    string    `gorm:"column:agent_id"`
	Payload    string    `gorm:"column:payload"`
	ReceivedAt time.Time `gorm:"column:received_at"`
}

func (SiteReport) TableName() string {
	return "site_reports"
}

func (r *SiteReport) SetReport(rep *Report) error {
	raw, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	r.Payload = string(raw)
	return nil
}

func (r *SiteReport) Report() (*Report, error) {
	var rep Report
	if err := json.Unmarshal([]byte(r.Payload), &rep); err != nil {
		return nil, err
	}
	return &rep, nil
}
