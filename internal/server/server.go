// Package server assembles repositories, services and handlers into the
// HTTP API.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/aryan0dhankhar/memedata/internal/domain"
	"github.com/aryan0dhankhar/memedata/internal/featureflags"
	"github.com/aryan0dhankhar/memedata/internal/handler"
	"github.com/aryan0dhankhar/memedata/internal/infrastructure/blob"
	"github.com/aryan0dhankhar/memedata/internal/infrastructure/redis"
	"github.com/aryan0dhankhar/memedata/internal/observability/metrics"
	"github.com/aryan0dhankhar/memedata/internal/reliability/circuitbreaker"
	"github.com/aryan0dhankhar/memedata/internal/repository"
	"github.com/aryan0dhankhar/memedata/internal/respond"
	"github.com/aryan0dhankhar/memedata/internal/security"
	"github.com/aryan0dhankhar/memedata/internal/security/audit"
	"github.com/aryan0dhankhar/memedata/internal/security/auth"
	"github.com/aryan0dhankhar/memedata/internal/security/middleware"
	"github.com/aryan0dhankhar/memedata/internal/security/ratelimit"
	"github.com/aryan0dhankhar/memedata/internal/service"
	"github.com/aryan0dhankhar/memedata/internal/validation"
	"github.com/aryan0dhankhar/memedata/pkg/config"
	"github.com/aryan0dhankhar/memedata/pkg/database"
)

// Options carries the pieces New cannot build from configuration alone
type Options struct {
	// Redis enables the revocation cache; nil uses the database only.
	Redis *redis.Client
	// Flags overrides feature flags; nil reads FLAG_* from the environment.
	Flags *featureflags.Flags
	// Hasher overrides the bcrypt hasher (tests use a low cost).
	Hasher service.PasswordHasher
}

// Server is the memedata HTTP API
type Server struct {
	srv     *http.Server
	handler http.Handler
	users   *service.UserService
	logger  *slog.Logger
}

// New wires the application against an open database
func New(cfg *config.Config, log *slog.Logger, pool *database.ConnectionPool, opts Options) (*Server, error) {
	if log == nil {
		log = slog.Default()
	}
	db := pool.DB()

	// Repositories
	userRepo := repository.NewUserRepository(db, log)
	tagRepo := repository.NewTagRepository(db, log)
	textRepo := repository.NewTextRepository(db, log)
	imageRepo := repository.NewImageRepository(db, log)

	var revocations domain.RevocationStore = repository.NewRevokedTokenRepository(db, log)
	if opts.Redis != nil {
		breaker := circuitbreaker.NewCircuitBreaker(5, 2, 30*time.Second)
		breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
			log.Warn("revocation cache breaker state changed",
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		})
		revocations = repository.NewCachedRevocationStore(revocations, opts.Redis, breaker, log)
	}

	blobs, err := blob.NewFileStore(cfg.ImageDir, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open image store: %w", err)
	}

	// Services
	hasher := opts.Hasher
	if hasher == nil {
		hasher = auth.NewBcryptHasher(0)
	}
	validator := validation.New()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authService := service.NewAuthService(userRepo, revocations, tokens, hasher, log)
	userService := service.NewUserService(userRepo, hasher, validator, cfg.MinPasswordLength, log)
	resolver := service.NewTagResolver(tagRepo, cfg.MaxTags, cfg.TagBlacklist, log)
	textService := service.NewTextService(textRepo, tagRepo, resolver, validator, log)
	imageService := service.NewImageService(imageRepo, blobs, cfg.MaxImageBytes, log)

	// Security
	authz := security.NewAuthorizationService(cfg.Superusers, log)
	auditLog := audit.NewLogger(log)
	limiter := ratelimit.NewLimiter(cfg.LoginRatePerMinute, cfg.LoginBurst)
	clientIPs, err := middleware.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, err
	}
	rw := respond.New(log, cfg.Debug)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, auditLog, rw, log)
	userHandler := handler.NewUserHandler(userService, authz, opts.Flags, auditLog, rw, log)
	textHandler := handler.NewTextHandler(textService, rw, log)
	imageHandler := handler.NewImageHandler(imageService, cfg.MaxImageBytes, rw, log)

	var redisPinger handler.Pinger
	if opts.Redis != nil {
		redisPinger = opts.Redis
	}
	healthHandler := handler.NewHealthHandler(handler.PingFunc(pool.Health), redisPinger, log)

	requireAccess := middleware.RequireToken(authService, auth.TokenAccess, rw)
	requireRefresh := middleware.RequireToken(authService, auth.TokenRefresh, rw)
	optionalAccess := middleware.OptionalToken(authService, auth.TokenAccess)
	loginLimit := middleware.RateLimitMiddleware(limiter, clientIPs, auditLog, rw)

	access := func(h http.HandlerFunc) http.Handler { return requireAccess(h) }

	mux := http.NewServeMux()
	mux.Handle("POST /auth/login", loginLimit(http.HandlerFunc(authHandler.Login)))
	mux.Handle("POST /auth/token/refresh", requireRefresh(http.HandlerFunc(authHandler.Refresh)))
	mux.Handle("POST /auth/logout/access", access(authHandler.LogoutAccess))
	mux.Handle("POST /auth/logout/refresh", requireRefresh(http.HandlerFunc(authHandler.LogoutRefresh)))

	mux.Handle("POST /users", optionalAccess(http.HandlerFunc(userHandler.Register)))
	mux.Handle("GET /users", access(userHandler.List))
	mux.Handle("GET /users/{id}", access(userHandler.Get))
	mux.Handle("DELETE /users/{id}", access(userHandler.Delete))

	mux.Handle("GET /texts", access(textHandler.List))
	mux.Handle("POST /texts", access(textHandler.Create))
	mux.Handle("GET /texts/{id}", access(textHandler.Get))
	mux.Handle("PUT /texts/{id}", access(textHandler.Update))
	mux.Handle("DELETE /texts/{id}", access(textHandler.Delete))

	mux.Handle("GET /images", access(imageHandler.List))
	mux.Handle("POST /images", access(imageHandler.Upload))
	mux.Handle("GET /images/{id}", access(imageHandler.Get))
	mux.Handle("PUT /images/{id}", access(imageHandler.Replace))
	mux.Handle("DELETE /images/{id}", access(imageHandler.Delete))

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/", handler.NotFound(rw))

	// Chain: tracing -> CORS -> request log -> recover -> content type -> metrics -> mux
	var root http.Handler = metrics.HTTPMetricsMiddleware(mux)
	root = middleware.ValidateContentType(log, rw)(root)
	root = middleware.Recover(log, rw)(root)
	root = middleware.RequestLogging(log)(root)
	root = cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})(root)
	root = otelhttp.NewHandler(root, "memedata",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)

	return &Server{
		srv: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
			Handler:      root,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		handler: root,
		users:   userService,
		logger:  log,
	}, nil
}

// Handler returns the fully wrapped root handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Users exposes the user service for startup bootstrapping
func (s *Server) Users() *service.UserService {
	return s.users
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return s.srv.Addr
}

func (s *Server) ListenAndServe() error {
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
