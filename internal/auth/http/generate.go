package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
	"github.com/aussiebroadwan/studybuddy/pkg/studyai"
)

// maxGenerateBody allows inline document attachments.
const maxGenerateBody = 20 << 20

// GenerateHandler forwards a generation request using a server-held key.
type GenerateHandler struct {
	Resolver *studyai.Resolver
	Model    string // used when the request names none
}

// ServeHTTP godoc
//
//	@Summary		Generate text
//	@Description	Forwards a provider request (model, contents, config) using a server-held API key
//	@Description	and returns only the response text. Used by clients that have no key of their own.
//	@Tags			AI
//	@Accept			json
//	@Produce		json
//	@Param			request	body		object					true	"Provider request: model, contents, config"
//	@Success		200		{object}	studyai.ProxyResponse	"text"
//	@Failure		400		{object}	authsdk.MessageResponse	"No server key configured or bad body"
//	@Failure		429		{object}	authsdk.MessageResponse
//	@Failure		500		{object}	authsdk.MessageResponse	"Provider failure"
//	@Router			/api/ai/generate [post].
func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req studyai.Request
	if !decodeBody(w, r, &req, maxGenerateBody) {
		return
	}
	if req.Model == "" {
		req.Model = h.Model
	}
	if len(req.Contents) == 0 {
		httpx.WriteMessage(w, http.StatusBadRequest, "contents is required")
		return
	}

	var t studyai.Transport
	err := studyai.ErrNoCredentials
	if h.Resolver != nil {
		t, err = h.Resolver.Direct()
	}
	if err != nil {
		log.Warn("generate refused", "err", err)
		httpx.WriteMessage(w, http.StatusBadRequest, studyai.ProxyNotConfigured)
		return
	}

	text, err := t.Generate(ctx, req)
	if err != nil {
		var perr *studyai.ProviderError
		if errors.As(err, &perr) {
			log.Error("provider call failed", "status", perr.StatusCode, "msg", perr.Message)
		} else {
			log.Error("provider call failed", "err", err)
		}
		httpx.WriteMessage(w, http.StatusInternalServerError, "AI request failed. Please try again.")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, studyai.ProxyResponse{Text: text})
}
