package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
	"github.com/aussiebroadwan/studybuddy/pkg/authsdk"
	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
)

const (
	mongoDriver  = "mongo"
	memoryDriver = "memory"
)

// HealthHandler godoc
//
//	@Summary		Storage Health
//	@Description	Reports whether the document database is reachable and how many accounts
//	@Description	currently live only in the in-memory fallback. Always 200; the service keeps
//	@Description	working from memory while the database is down.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse	"mongoState, mongoConnected, memoryUsers, driver"
//	@Router			/api/health [get].
func HealthHandler(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := storeStatus(r.Context(), st)

		resp := authsdk.HealthResponse{
			MongoState:     "disconnected",
			MongoConnected: s.Primary == mongoDriver && s.PrimaryConnected,
			MemoryUsers:    s.SecondaryCount,
			Driver:         st.Name(),
		}
		if resp.MongoConnected {
			resp.MongoState = "connected"
		}
		httpx.WriteJSON(w, http.StatusOK, resp)
	}
}

// storeStatus describes single-backend stores in the same terms as a
// Fallback, counting a bare memory store as the fallback.
func storeStatus(ctx context.Context, st store.Store) store.Status {
	if f, ok := st.(*store.Fallback); ok {
		return f.Status(ctx)
	}

	s := store.Status{Primary: st.Name()}
	if st.Name() == memoryDriver {
		s.Primary, s.Secondary = "", memoryDriver
		s.SecondaryCount, _ = st.Accounts().Count(ctx)
		return s
	}
	s.PrimaryConnected = st.Ping(ctx) == nil
	return s
}
