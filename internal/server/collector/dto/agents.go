package dto

import "time"

// AgentSummary is the admin-facing view of an AgentRecord.
type AgentSummary struct {
	AgentID       string    `json:"agent_id"`
	Hostname      string    `json:"hostname"`
	Site          string    `json:"site,omitempty"`
	RequestedSite string    `json:"requested_site,omitempty"`
	ApprovalState string    `json:"approval_state"`
	LastSeen      time.Time `json:"last_seen"`
	CreatedAt     time.Time `json:"created_at"`
}

// ListAgentsResponse wraps the admin agent listing.
type ListAgentsResponse struct {
	Agents []AgentSummary `json:"agents"`
}
