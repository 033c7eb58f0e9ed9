package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/respond"
	"github.com/aryan0dhankhar/memedata/internal/security/audit"
	"github.com/aryan0dhankhar/memedata/internal/security/auth"
	"github.com/aryan0dhankhar/memedata/internal/security/middleware"
	"github.com/aryan0dhankhar/memedata/internal/service"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService *service.AuthService
	audit       *audit.Logger
	rw          *respond.Writer
	logger      *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService, auditLog *audit.Logger, rw *respond.Writer, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &AuthHandler{
		authService: authService,
		audit:       auditLog,
		rw:          rw,
		logger:      logger,
	}
}

// LoginResponse represents login response
type LoginResponse struct {
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshResponse represents token refresh response
type RefreshResponse struct {
	AccessToken string `json:"access_token"`
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, err := bindCredentials(w, r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	if creds.Username == "" || creds.Password == "" {
		h.rw.Error(w, r, apperror.NewInvalidCredentials())
		return
	}

	pair, err := h.authService.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if apperror.Is(err, apperror.InvalidCredentials) {
			h.audit.LogLogin(r.Context(), creds.Username, audit.StatusFailure, "invalid credentials")
		}
		h.rw.Error(w, r, err)
		return
	}

	h.audit.LogLogin(r.Context(), creds.Username, audit.StatusSuccess, "")
	h.rw.JSON(w, http.StatusOK, LoginResponse{
		Message:      fmt.Sprintf("user '%s' logged in", creds.Username),
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Refresh handles POST /auth/token/refresh; the route requires a refresh token
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	access, err := h.authService.Refresh(r.Context(), middleware.GetTokenFromContext(r.Context()))
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.JSON(w, http.StatusOK, RefreshResponse{AccessToken: access})
}

// LogoutAccess handles POST /auth/logout/access
func (h *AuthHandler) LogoutAccess(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r, auth.TokenAccess)
}

// LogoutRefresh handles POST /auth/logout/refresh
func (h *AuthHandler) LogoutRefresh(w http.ResponseWriter, r *http.Request) {
	h.logout(w, r, auth.TokenRefresh)
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request, typ auth.TokenType) {
	claims, err := h.authService.Revoke(r.Context(), middleware.GetTokenFromContext(r.Context()), typ)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.audit.LogLogout(r.Context(), claims.Identity(), string(typ), audit.StatusSuccess)
	h.rw.NoContent(w)
}
