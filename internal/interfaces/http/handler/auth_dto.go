package handler

// =====================
// Auth Request DTOs
// =====================

// RegisterRequest signs a customer up in the current store
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=255" example:"jane@example.com"`
	Username string `json:"username" binding:"required,min=2,max=50" example:"jane"`
	Password string `json:"password" binding:"required,min=8,max=128" example:"s3cret-pass"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255" example:"jane@example.com"`
	Password string `json:"password" binding:"required,max=128" example:"s3cret-pass"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ChangePasswordRequest represents the request body for password change
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=128"`
}

// UpdateProfileRequest carries the editable profile fields
type UpdateProfileRequest struct {
	Username string `json:"username" binding:"omitempty,min=2,max=50"`
	Avatar   string `json:"avatar" binding:"omitempty,url,max=500"`
	Locale   string `json:"locale" binding:"omitempty,oneof=en zh-Hans"`
}

// =====================
// Auth Response DTOs
// =====================

// OAuthAuthorizeResponse is the consent redirect of an auth plugin
type OAuthAuthorizeResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}
