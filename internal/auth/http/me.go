package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/studybuddy/internal/auth/service"
	"github.com/aussiebroadwan/studybuddy/pkg/authsdk"
	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
)

type MeHandler struct {
	AccountService *service.AccountService
}

// ServeHTTP returns the account behind the session token.
//
//	@Summary		Current account
//	@Description	Returns the name and email of the account that owns the session token.
//	@Tags			Accounts
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.MessageResponse	"Missing, invalid or expired token"
//	@Failure		500	{object}	authsdk.MessageResponse
//	@Router			/api/me [get].
func (h *MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	claims, ok := httpx.ClaimsFromContext(ctx)
	if !ok || claims.Email == "" {
		httpx.WriteMessage(w, http.StatusUnauthorized, "invalid session token")
		return
	}

	acct, err := h.AccountService.Account(ctx, claims.Email)
	switch {
	case errors.Is(err, service.ErrNotFound):
		// The account lived in the memory fallback and is gone.
		httpx.WriteMessage(w, http.StatusUnauthorized, "account no longer exists")
		return
	case err != nil:
		log.Warn("failed to load account", "account_id", claims.Subject, "err", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	httpx.NoCache(w)
	httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{User: userInfo(acct)})
}
