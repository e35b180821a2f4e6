package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/schemafence/schemafence/internal/dbpool"
	"github.com/schemafence/schemafence/internal/domain"
	"github.com/schemafence/schemafence/internal/middleware"
	"github.com/schemafence/schemafence/internal/ratelimit"
	"github.com/schemafence/schemafence/internal/ws"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	Log         *logrus.Logger
	Pool        *dbpool.Pool
	RDB         *redis.Client
	Hub         *ws.Hub
	Tenants     domain.TenantService
	Members     domain.MemberService
	Audit       domain.AuditService
	MFA         domain.MFAService
	Limiter     *ratelimit.Limiter
	AuthSecret  []byte
	CORSOrigins []string
	Version     string

	// MutationLimit / MutationWindow bound tenant-mutating requests per
	// principal. Zero values fall back to the router defaults.
	MutationLimit  int
	MutationWindow time.Duration
}

// Router-level limits.
const (
	maxBodySize = 1 << 20 // 1 MB; the API carries control-plane payloads only
	rateLimit   = 100     // requests per second per IP
	rateBurst   = 200     // token bucket burst size

	defaultMutationLimit  = 30 // mutations per principal per window
	defaultMutationWindow = time.Minute
)

// mutationLimits resolves the per-principal mutation budget from the deps,
// defaulting where unset.
func mutationLimits(deps *RouterDeps) (int, time.Duration) {
	limit, window := deps.MutationLimit, deps.MutationWindow
	if limit <= 0 {
		limit = defaultMutationLimit
	}
	if window <= 0 {
		window = defaultMutationWindow
	}

	return limit, window
}

// setupMiddleware configures all middleware on the Gin engine.
func setupMiddleware(ctx context.Context, r *gin.Engine, deps *RouterDeps) {
	r.SetTrustedProxies(nil) //nolint:errcheck // nil always succeeds.
	r.Use(middleware.RequestID(deps.Log))
	r.Use(ginLogger(deps.Log))
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MaxBodySize(maxBodySize))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     deps.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		MaxAge:           1 * time.Hour,
		AllowCredentials: false,
	}))
	r.Use(middleware.NewRateLimiter(ctx, rateLimit, rateBurst).Handler())
	r.Use(middleware.Metrics())

	// Metrics endpoint (unauthenticated, like health).
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// registerRoutes sets up all API route handlers on the given router group.
func registerRoutes(ctx context.Context, api *gin.RouterGroup, deps *RouterDeps) {
	log := deps.Log

	health := NewHealthHandler(deps.Pool, deps.RDB, deps.Hub, log, deps.Version)
	orgs := NewOrgHandler(deps.Tenants, log)
	members := NewMemberHandler(deps.Members, log)
	audit := NewAuditHandler(deps.Audit, log)
	mfa := NewMFAHandler(deps.MFA, log)

	// Health and readiness are unauthenticated.
	api.GET("/health", health.Liveness)
	api.GET("/ready", health.Readiness)

	// All other API routes require authentication.
	api.Use(middleware.Auth(deps.AuthSecret, log))

	// Mutations additionally pass the shared per-principal rate limiter.
	limit, window := mutationLimits(deps)
	mutate := middleware.MutationLimit(deps.Limiter, limit, window, log)

	// Principal identity and default-org resolution.
	api.GET("/me", orgs.Me)

	// Organization lifecycle. These routes resolve the slug themselves so
	// members can see tenants in any lifecycle state.
	api.POST("/orgs", mutate, orgs.Create)
	api.GET("/orgs/:slug", orgs.Get)
	api.PATCH("/orgs/:slug", mutate, orgs.Update)
	api.DELETE("/orgs/:slug", mutate, orgs.Delete)
	api.POST("/orgs/:slug/provision", mutate, orgs.Retry)

	// Lifecycle event stream; any member, any state.
	api.GET("/orgs/:slug/events", wsHandler(ctx, log, deps.Hub, deps.CORSOrigins, deps.Tenants))

	// Tenant-bound routes require a ready tenant and an active membership.
	bound := api.Group("/orgs/:slug", middleware.TenantBind(deps.Tenants, log))
	bound.GET("/members", members.List)
	bound.POST("/members", mutate, members.Add)
	bound.PATCH("/members/:user_id", mutate, members.ChangeRole)
	bound.DELETE("/members/:user_id", mutate, members.Remove)
	bound.GET("/audit", audit.Query)
	bound.POST("/export", mutate, audit.Export)

	// Second-factor enrollment is per principal, not per tenant.
	api.POST("/mfa/enroll", mutate, mfa.Enroll)
}

// NewRouter creates and configures the Gin engine with all middleware and routes.
func NewRouter(ctx context.Context, deps *RouterDeps) http.Handler {
	r := gin.New()
	setupMiddleware(ctx, r, deps)
	registerRoutes(ctx, r.Group("/api/v1"), deps)

	return r
}
