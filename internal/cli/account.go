package cli

import (
	"context"
	"fmt"

	"github.com/aussiebroadwan/studybuddy/pkg/authsdk"
)

func (a *App) runSignup(ctx context.Context, args []string) error {
	fs := a.subFlags("signup", "")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := requireFlags(fs, map[string]string{"name": *name, "email": *email}); err != nil {
		return err
	}

	pw, err := getPassword(a.Err, a.In, "Password: ")
	if err != nil {
		return err
	}
	res, err := a.accountClient().Signup(ctx, authsdk.SignupRequest{Name: *name, Email: *email, Password: pw})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.Out, res.Message)
	return err
}

func (a *App) runVerify(ctx context.Context, args []string) error {
	fs := a.subFlags("verify", "")
	email := fs.String("email", "", "email address")
	otp := fs.String("otp", "", "6-digit code from the email")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := requireFlags(fs, map[string]string{"email": *email, "otp": *otp}); err != nil {
		return err
	}

	res, err := a.accountClient().VerifyOTP(ctx, *email, *otp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.Out, res.Message)
	return err
}

func (a *App) runLogin(ctx context.Context, args []string) error {
	fs := a.subFlags("login", "")
	email := fs.String("email", "", "email address")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := requireFlags(fs, map[string]string{"email": *email}); err != nil {
		return err
	}

	pw, err := getPassword(a.Err, a.In, "Password: ")
	if err != nil {
		return err
	}
	res, err := a.accountClient().Login(ctx, *email, pw)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.Err, "Logged in as %s <%s>\n", res.User.Name, res.User.Email)
	_, err = fmt.Fprintln(a.Out, res.Token)
	return err
}

func (a *App) runMe(ctx context.Context, args []string) error {
	fs := a.subFlags("me", "")
	token := fs.String("token", a.Getenv("STUDYBUDDY_TOKEN"), "session token (default $STUDYBUDDY_TOKEN)")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if err := requireFlags(fs, map[string]string{"token": *token}); err != nil {
		return err
	}

	res, err := a.accountClient().Me(ctx, *token)
	if err != nil {
		return err
	}
	return a.printJSON(res.User)
}

func (a *App) runHealth(ctx context.Context, args []string) error {
	res, err := a.accountClient().GetHealth(ctx)
	if err != nil {
		return err
	}
	return a.printJSON(res)
}
