package authsdk

import "time"

// ============================================================================
// Request Types
// ============================================================================

// SignupRequest is the body of POST /api/signup.
type SignupRequest struct {
	Name     string `json:"name" example:"Ana"`
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password" example:"secret1"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Email    string `json:"email" example:"ana@example.com"`
	Password string `json:"password" example:"secret1"`
}

// VerifyOTPRequest is the body of POST /api/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email" example:"ana@example.com"`
	OTP   string `json:"otp" example:"042817"`
}

// EmailRequest is the body of POST /api/resend-otp and /api/forgot-password.
type EmailRequest struct {
	Email string `json:"email" example:"ana@example.com"`
}

// VerifyAndLoginRequest is the body of POST /api/verify-and-login.
type VerifyAndLoginRequest struct {
	Email    string `json:"email" example:"ana@example.com"`
	OTP      string `json:"otp" example:"042817"`
	Password string `json:"password" example:"secret1"`
}

// ResetPasswordRequest is the body of POST /api/reset-password.
type ResetPasswordRequest struct {
	Email       string `json:"email" example:"ana@example.com"`
	OTP         string `json:"otp" example:"042817"`
	NewPassword string `json:"newPassword" example:"secret2"`
}

// ============================================================================
// Response Types
// ============================================================================

// MessageResponse is the body of every plain success or error reply.
type MessageResponse struct {
	Message string `json:"message"`
}

// CodeResponse is returned by the endpoints that email a code. EmailSent is
// false when delivery failed; the code still exists and a resend may help.
type CodeResponse struct {
	Message   string `json:"message"`
	EmailSent bool   `json:"emailSent"`
}

// UserInfo is the public view of an account.
type UserInfo struct {
	Name  string `json:"name" example:"Ana"`
	Email string `json:"email" example:"ana@example.com"`
}

// LoginResponse is returned by /api/login and /api/verify-and-login.
type LoginResponse struct {
	Message   string     `json:"message"`
	User      UserInfo   `json:"user"`
	Token     string     `json:"token,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// MeResponse is returned by GET /api/me.
type MeResponse struct {
	User UserInfo `json:"user"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	// MongoState is "connected" or "disconnected".
	MongoState     string `json:"mongoState"`
	MongoConnected bool   `json:"mongoConnected"`

	// MemoryUsers counts accounts held only in the in-memory fallback.
	MemoryUsers int64 `json:"memoryUsers"`

	// Driver names the configured store ("mongo+memory", "sqlite", ...).
	Driver string `json:"driver"`
}

// LivenessResponse is returned by GET /livez.
type LivenessResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime,omitempty"`
	Version string `json:"version,omitempty"`
}
