package dto

// RegisterAgentRequest is the body of POST /api/agents/register.
type RegisterAgentRequest struct {
	AgentID       string `json:"agent_id" validate:"required" example:"3f5a9c0d1b2e4f6a8c0d1b2e4f6a8c0d"`
	Hostname      string `json:"hostname" validate:"required" example:"PC-07"`
	RequestedSite string `json:"requested_site" example:"loja-centro"`
}
