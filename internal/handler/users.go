package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/featureflags"
	"github.com/aryan0dhankhar/memedata/internal/respond"
	"github.com/aryan0dhankhar/memedata/internal/security"
	"github.com/aryan0dhankhar/memedata/internal/security/audit"
	"github.com/aryan0dhankhar/memedata/internal/security/middleware"
	"github.com/aryan0dhankhar/memedata/internal/service"
)

// UserHandler handles registration and user management
type UserHandler struct {
	users  *service.UserService
	authz  *security.AuthorizationService
	flags  *featureflags.Flags
	audit  *audit.Logger
	rw     *respond.Writer
	logger *slog.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(
	users *service.UserService,
	authz *security.AuthorizationService,
	flags *featureflags.Flags,
	auditLog *audit.Logger,
	rw *respond.Writer,
	logger *slog.Logger,
) *UserHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if flags == nil {
		flags = featureflags.New(nil)
	}
	return &UserHandler{users: users, authz: authz, flags: flags, audit: auditLog, rw: rw, logger: logger}
}

// RegisterResponse represents registration response
type RegisterResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

// requirePrivileged checks the caller's claims against the privilege gate
func (h *UserHandler) requirePrivileged(r *http.Request) (string, error) {
	claims := middleware.GetClaimsFromContext(r.Context())
	if claims == nil {
		return "", apperror.NewUnauthenticated("missing authorization token", nil)
	}
	if err := h.authz.RequirePrivileged(claims.Identity()); err != nil {
		h.audit.LogDenied(r.Context(), claims.Identity(), "user management requires privileges")
		return "", err
	}
	return claims.Identity(), nil
}

// Register handles POST /users
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	actor := "anonymous"
	if h.flags.Enabled(featureflags.RestrictRegistration) {
		identity, err := h.requirePrivileged(r)
		if err != nil {
			h.rw.Error(w, r, err)
			return
		}
		actor = identity
	} else if claims := middleware.GetClaimsFromContext(r.Context()); claims != nil {
		actor = claims.Identity()
	}

	creds, err := bindCredentials(w, r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}

	user, err := h.users.Register(r.Context(), service.RegisterInput{Username: creds.Username, Password: creds.Password})
	if err != nil {
		h.audit.LogUserCreated(r.Context(), actor, "", audit.StatusFailure, err.Error())
		h.rw.Error(w, r, err)
		return
	}

	h.audit.LogUserCreated(r.Context(), actor, strconv.FormatInt(user.ID, 10), audit.StatusSuccess, user.Username)
	h.rw.JSON(w, http.StatusCreated, RegisterResponse{
		Message: fmt.Sprintf("user '%s' created", user.Username),
		UserID:  user.ID,
	})
}

// List handles GET /users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requirePrivileged(r); err != nil {
		h.rw.Error(w, r, err)
		return
	}
	users, err := h.users.List(r.Context())
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	h.rw.JSON(w, http.StatusOK, map[string]any{"users": out})
}

// Get handles GET /users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, err := h.requirePrivileged(r); err != nil {
		h.rw.Error(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	user, err := h.users.Get(r.Context(), id)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	h.rw.JSON(w, http.StatusOK, map[string]any{"user": toUserResponse(user)})
}

// Delete handles DELETE /users/{id}
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := h.requirePrivileged(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		h.rw.Error(w, r, err)
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		h.audit.LogUserDeleted(r.Context(), actor, strconv.FormatInt(id, 10), audit.StatusFailure, err.Error())
		h.rw.Error(w, r, err)
		return
	}
	h.audit.LogUserDeleted(r.Context(), actor, strconv.FormatInt(id, 10), audit.StatusSuccess, "")
	h.rw.NoContent(w)
}
