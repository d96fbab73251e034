package http

import (
	"net/http"

	"github.com/aussiebroadwan/studybuddy/internal/auth/domain"
	"github.com/aussiebroadwan/studybuddy/internal/auth/service"
	"github.com/aussiebroadwan/studybuddy/pkg/authsdk"
	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
)

const (
	msgSignupSent     = "Signup successful. Check your email for the verification code."
	msgSignupUnsent   = "Account created, but we could not send the verification email. Please request a new code."
	msgVerified       = "Email verified. You can now log in."
	msgResendSent     = "A new verification code has been sent."
	msgResendUnsent   = "A new code was created, but we could not send the email. Please try again."
	msgLoggedIn       = "Login successful."
	msgResetSent      = "A password reset code has been sent."
	msgResetUnsent    = "A reset code was created, but we could not send the email. Please try again."
	msgPasswordReset  = "Password has been reset. You can now log in."
	msgVerifiedLogged = "Email verified and logged in."
)

// AccountHandler serves the account lifecycle endpoints.
type AccountHandler struct {
	AccountService *service.AccountService
}

func codeResponse(d service.Delivery, sent, unsent string) authsdk.CodeResponse {
	if d.EmailSent {
		return authsdk.CodeResponse{Message: sent, EmailSent: true}
	}
	return authsdk.CodeResponse{Message: unsent}
}

func userInfo(a domain.Account) authsdk.UserInfo {
	return authsdk.UserInfo{Name: a.Name, Email: a.Email}
}

func loginResponse(msg string, s service.Session) authsdk.LoginResponse {
	resp := authsdk.LoginResponse{Message: msg, User: userInfo(s.Account)}
	if s.Token != "" {
		exp := s.ExpiresAt
		resp.Token, resp.ExpiresAt = s.Token, &exp
	}
	return resp
}

// HandleSignup godoc
//
//	@Summary		Create an account
//	@Description	Creates an unverified account and emails a 6-digit code valid for 5 minutes.
//	@Description	Signing up again before verifying issues a fresh code. A failed email does not
//	@Description	undo the signup; emailSent is false and the client should offer a resend.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.SignupRequest	true	"name, email, password"
//	@Success		200		{object}	authsdk.CodeResponse
//	@Failure		400		{object}	authsdk.MessageResponse	"Missing fields"
//	@Failure		409		{object}	authsdk.MessageResponse	"Email already registered and verified"
//	@Failure		429		{object}	authsdk.MessageResponse
//	@Failure		500		{object}	authsdk.MessageResponse
//	@Router			/api/signup [post].
func (h *AccountHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req authsdk.SignupRequest
	if !decodeBody(w, r, &req, 0) {
		return
	}

	res, err := h.AccountService.Signup(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, "signup", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, codeResponse(res.Delivery, msgSignupSent, msgSignupUnsent))
}

// HandleVerifyOTP godoc
//
//	@Summary		Verify an account
//	@Description	Marks the account verified when the code matches and has not expired.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyOTPRequest	true	"email, otp"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.MessageResponse	"Unknown account or invalid/expired code"
//	@Failure		429		{object}	authsdk.MessageResponse
//	@Failure		500		{object}	authsdk.MessageResponse
//	@Router			/api/verify-otp [post].
func (h *AccountHandler) HandleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyOTPRequest
	if !decodeBody(w, r, &req, 0) {
		return
	}

	if err := h.AccountService.VerifyOTP(r.Context(), req.Email, req.OTP); err != nil {
		writeServiceError(w, r, "verify_otp", err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, msgVerified)
}

// HandleResendOTP godoc
//
//	@Summary		Resend the verification code
//	@Description	Issues a fresh verification code, replacing any earlier one.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.EmailRequest	true	"email"
//	@Success		200		{object}	authsdk.CodeResponse
//	@Failure		400		{object}	authsdk.MessageResponse	"Missing email or unknown account"
//	@Failure		429		{object}	authsdk.MessageResponse
//	@Failure		500		{object}	authsdk.MessageResponse
//	@Router			/api/resend-otp [post].
func (h *AccountHandler) HandleResendOTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if !decodeBody(w, r, &req, 0) {
		return
	}

	d, err := h.AccountService.ResendOTP(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, "resend_otp", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, codeResponse(d, msgResendSent, msgResendUnsent))
}

// HandleVerifyAndLogin godoc
//
//	@Summary		Verify and log in
//	@Description	Consumes the verification code and checks the password in one step.
//	@Description	The code is spent even if the password is wrong.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.VerifyAndLoginRequest	true	"email, otp, password"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.MessageResponse	"Invalid or expired code"
//	@Failure		401		{object}	authsdk.MessageResponse	"Wrong password"
//	@Failure		429		{object}	authsdk.MessageResponse
//	@Failure		500		{object}	authsdk.MessageResponse
//	@Router			/api/verify-and-login [post].
func (h *AccountHandler) HandleVerifyAndLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.VerifyAndLoginRequest
	if !decodeBody(w, r, &req, 0) {
		return
	}

	s, err := h.AccountService.VerifyAndLogin(r.Context(), req.Email, req.OTP, req.Password)
	if err != nil {
		writeServiceError(w, r, "verify_and_login", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse(msgVerifiedLogged, s))
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Checks email and password and returns the user plus a session token.
//	@Description	Unverified accounts are refused before the password is compared.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	authsdk.LoginResponse
//	@Failure		400		{object}	authsdk.MessageResponse	"Missing fields"
//	@Failure		401		{object}	authsdk.MessageResponse	"Invalid credentials"
//	@Failure		403		{object}	authsdk.MessageResponse	"Account not verified"
//	@Failure		429		{object}	authsdk.MessageResponse
//	@Failure		500		{object}	authsdk.MessageResponse
//	@Router			/api/login [post].
func (h *AccountHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decodeBody(w, r, &req, 0) {
		return
	}

	s, err := h.AccountService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, "login", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, loginResponse(msgLoggedIn, s))
}

// HandleForgotPassword godoc
//
//	@Summary		Request a password reset
//	@Description	Emails a reset code valid for 5 minutes. The code is stored even if the email fails.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.EmailRequest	true	"email"
//	@Success		200		{object}	authsdk.CodeResponse
//	@Failure		400		{object}	authsdk.MessageResponse	"Missing email or unknown account"
//	@Failure		429		{object}	authsdk.MessageResponse
//	@Failure		500		{object}	authsdk.MessageResponse
//	@Router			/api/forgot-password [post].
func (h *AccountHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.EmailRequest
	if !decodeBody(w, r, &req, 0) {
		return
	}

	d, err := h.AccountService.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, r, "forgot_password", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, codeResponse(d, msgResetSent, msgResetUnsent))
}

// HandleResetPassword godoc
//
//	@Summary		Reset the password
//	@Description	Sets a new password when the reset code matches and has not expired.
//	@Tags			Accounts
//	@Accept			json
//	@Produce		json
//	@Param			request	body		authsdk.ResetPasswordRequest	true	"email, otp, newPassword"
//	@Success		200		{object}	authsdk.MessageResponse
//	@Failure		400		{object}	authsdk.MessageResponse	"Invalid or expired code"
//	@Failure		429		{object}	authsdk.MessageResponse
//	@Failure		500		{object}	authsdk.MessageResponse
//	@Router			/api/reset-password [post].
func (h *AccountHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if !decodeBody(w, r, &req, 0) {
		return
	}

	if err := h.AccountService.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeServiceError(w, r, "reset_password", err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, msgPasswordReset)
}
