package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/observability/requestid"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusDenied  = "denied"
)

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit"))}
}

func (al *Logger) LogAction(ctx context.Context, actor, action, resource, resourceID, status, details string) {
	al.logger.InfoContext(ctx, "audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("actor", actor),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestid.From(ctx)),
		slog.Time("timestamp", time.Now().UTC()),
	)
}

func (al *Logger) LogLogin(ctx context.Context, username, status, details string) {
	al.LogAction(ctx, username, "login", "session", "", status, details)
}

func (al *Logger) LogLogout(ctx context.Context, username, tokenType, status string) {
	al.LogAction(ctx, username, "logout", "token", tokenType, status, "")
}

func (al *Logger) LogUserCreated(ctx context.Context, actor, userID, status, details string) {
	al.LogAction(ctx, actor, "create", "user", userID, status, details)
}

func (al *Logger) LogUserDeleted(ctx context.Context, actor, userID, status, details string) {
	al.LogAction(ctx, actor, "delete", "user", userID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, actor, reason string) {
	al.LogAction(ctx, actor, "access_denied", "api", "", StatusDenied, reason)
}
