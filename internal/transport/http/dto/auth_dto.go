package dto

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthMeResponse struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

type AuthTokensResponse struct {
	Success      bool           `json:"success"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	ExpiresInSec int64          `json:"expires_in_sec"`
	Me           AuthMeResponse `json:"me"`
}

type HealthResponse struct {
	Success bool              `json:"success"`
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks,omitempty"`
}
