package dto

// ApproveAgentRequest binds a pending agent to a site.
type ApproveAgentRequest struct {
	Site string `json:"site" validate:"required" example:"loja-centro"`
}
