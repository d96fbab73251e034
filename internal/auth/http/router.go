package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/studybuddy/internal/auth/service"
	"github.com/aussiebroadwan/studybuddy/internal/auth/store"
	"github.com/aussiebroadwan/studybuddy/pkg/httpx"
	"github.com/aussiebroadwan/studybuddy/pkg/jwtx"
	"github.com/aussiebroadwan/studybuddy/pkg/slogx"
	"github.com/aussiebroadwan/studybuddy/pkg/studyai"

	_ "github.com/aussiebroadwan/studybuddy/api/studybuddy" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store          store.Store
	AccountService *service.AccountService

	// AIResolver serves the generation proxy. Only its Direct transport is
	// used; the proxy never forwards to itself.
	AIResolver *studyai.Resolver
	AIModel    string

	// Limits are the rate limit profiles; NewRouter sets the defaults.
	Limits httpx.Limits
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
		Limits:       httpx.DefaultLimits(),
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger, "/livez"),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccounts()
	r.registerSession()
	r.registerAI()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			StudyBuddy API
//	@version		0.1.0
//	@description	Account lifecycle with emailed one-time codes, plus a generation proxy for clients without their own AI key.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/studybuddy
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token from /api/login. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAccounts() {
	h := &AccountHandler{AccountService: r.AccountService}

	// Credential and code checks - strict by IP (brute force of 6-digit codes)
	r.Mux.Handle("POST /api/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.LimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /api/verify-otp",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyOTP),
			httpx.LimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /api/verify-and-login",
		httpx.Chain(http.HandlerFunc(h.HandleVerifyAndLogin),
			httpx.LimitByIP(r.Limits.Strict),
		),
	)
	r.Mux.Handle("POST /api/reset-password",
		httpx.Chain(http.HandlerFunc(h.HandleResetPassword),
			httpx.LimitByIP(r.Limits.Strict),
		),
	)

	// Endpoints that send email - strict by IP + email so one address
	// cannot be flooded from a single client
	r.Mux.Handle("POST /api/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.LimitByIPAndField(r.Limits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /api/resend-otp",
		httpx.Chain(http.HandlerFunc(h.HandleResendOTP),
			httpx.LimitByIPAndField(r.Limits.Strict, "email"),
		),
	)
	r.Mux.Handle("POST /api/forgot-password",
		httpx.Chain(http.HandlerFunc(h.HandleForgotPassword),
			httpx.LimitByIPAndField(r.Limits.Strict, "email"),
		),
	)
}

func (r *Router) registerSession() {
	h := &MeHandler{AccountService: r.AccountService}

	// Authenticated endpoint - lenient rate limit by account
	secured := httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.LimitByAccount(r.Limits.Lenient),
	)

	r.Mux.Handle("GET /api/me", secured)
}

func (r *Router) registerAI() {
	h := &GenerateHandler{Resolver: r.AIResolver, Model: r.AIModel}

	r.Mux.Handle("POST "+studyai.ProxyPath,
		httpx.Chain(h,
			httpx.LimitByIP(r.Limits.Generate),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.LimitByIP(r.Limits.Lenient),
		),
	)
	r.Mux.Handle("GET /api/health",
		httpx.Chain(HealthHandler(r.store),
			httpx.LimitByIP(r.Limits.Lenient),
		),
	)
}
