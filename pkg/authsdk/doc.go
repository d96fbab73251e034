/*
Package authsdk is a Go client for the StudyBuddy account API.

# Overview

All operations hang off SDKClient. Request and response types are shared
with the server handlers, so the wire format is defined once.

	client := authsdk.NewSDKClient("http://localhost:8080")

	// Create an account; a 6-digit code is emailed.
	res, err := client.Signup(ctx, authsdk.SignupRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "secret1",
	})
	if err == nil && !res.EmailSent {
		// The account exists but the email did not go out.
		_, err = client.ResendOTP(ctx, "ana@example.com")
	}

	// Verify and log in at once.
	login, err := client.VerifyAndLogin(ctx, authsdk.VerifyAndLoginRequest{
		Email: "ana@example.com", OTP: code, Password: "secret1",
	})

	// Use the session token.
	me, err := client.Me(ctx, login.Token)

# Error Handling

Non-2xx replies come back as *APIError carrying the status code and the
server's message. The status sentinels work with errors.Is:

	_, err := client.Login(ctx, email, password)
	switch {
	case errors.Is(err, authsdk.ErrUnverifiedAccount):
		// 403: verify first
	case errors.Is(err, authsdk.ErrInvalidCredentials):
		// 401
	}
*/
package authsdk
