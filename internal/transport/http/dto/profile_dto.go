package dto

type ProfileResponse struct {
	UserID      int64  `json:"user_id"`
	DisplayName string `json:"display_name"`
	Age         int    `json:"age"`
	Gender      string `json:"gender"`
	Faculty     string `json:"faculty,omitempty"`
	Bio         string `json:"bio,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

type OKResponse struct {
	Success bool `json:"success"`
}
