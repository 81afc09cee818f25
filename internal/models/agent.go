package models

import "time"

// Approval states of an AgentRecord. Transitions out of pending happen only
// through an explicit administrative action and are monotonic: an approved
// agent is never demoted back to pending automatically.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// AgentRecord is the collector's record of a known agent identity.
// Site is empty while pending and unique among approved records.
type AgentRecord struct {
	AgentID       string    `gorm:"primaryKey;column:agent_id"`
	Hostname      string    `gorm:"column:hostname"`
	Site          string    `gorm:"column:site;index"`
	RequestedSite string    `gorm:"column:requested_site"`
	ApprovalState string    `gorm:"column:approval_state"`
	Token         string    `gorm:"column:token"`
	LastSeen      time.Time `gorm:"column:last_seen"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (AgentRecord) TableName() string {
	return "agents"
}
