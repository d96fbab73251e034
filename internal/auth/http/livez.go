package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/studybuddy/pkg/authsdk"
	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
)

// LivezHandler godoc
//
//	@Summary		Liveness Endpoint
//	@Description	Liveness probe returning status, uptime and version.
//	@Description	This endpoint always returns 200 OK if the process is serving.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.LivenessResponse	"status, uptime, version"
//	@Router			/livez [get].
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := authsdk.LivenessResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).Round(time.Second).String(),
			Version: version,
		}
		httpx.WriteJSON(w, http.StatusOK, response)
	}
}
