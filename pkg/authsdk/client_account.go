package authsdk

import (
	"context"
	"net/http"
)

// Signup registers an account and triggers a verification code email.
func (c *SDKClient) Signup(ctx context.Context, req SignupRequest) (*CodeResponse, error) {
	var out CodeResponse
	if err := c.postJSON(ctx, "/api/signup", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyOTP marks the account verified.
func (c *SDKClient) VerifyOTP(ctx context.Context, email, otp string) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.postJSON(ctx, "/api/verify-otp", VerifyOTPRequest{Email: email, OTP: otp}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResendOTP issues a fresh verification code.
func (c *SDKClient) ResendOTP(ctx context.Context, email string) (*CodeResponse, error) {
	var out CodeResponse
	if err := c.postJSON(ctx, "/api/resend-otp", EmailRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// VerifyAndLogin verifies the account and logs in with one request.
func (c *SDKClient) VerifyAndLogin(ctx context.Context, req VerifyAndLoginRequest) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, "/api/verify-and-login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login authenticates with email and password.
func (c *SDKClient) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	if err := c.postJSON(ctx, "/api/login", LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword emails a password reset code.
func (c *SDKClient) ForgotPassword(ctx context.Context, email string) (*CodeResponse, error) {
	var out CodeResponse
	if err := c.postJSON(ctx, "/api/forgot-password", EmailRequest{Email: email}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ResetPassword sets a new password using a reset code.
func (c *SDKClient) ResetPassword(ctx context.Context, req ResetPasswordRequest) (*MessageResponse, error) {
	var out MessageResponse
	if err := c.postJSON(ctx, "/api/reset-password", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the account behind a session token.
func (c *SDKClient) Me(ctx context.Context, token string) (*MeResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/me", nil, token)
	if err != nil {
		return nil, err
	}

	var out MeResponse
	if err := decodeJSON(resp, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
