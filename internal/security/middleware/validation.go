package middleware

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/aryan0dhankhar/memedata/internal/respond"
)

var allowedContentTypes = map[string]bool{
	"application/json":                  true,
	"application/x-www-form-urlencoded": true,
	"multipart/form-data":               true,
}

// ValidateContentType rejects POST/PUT/PATCH bodies that are neither JSON nor form encoded
func ValidateContentType(log *slog.Logger, rw *respond.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
				next.ServeHTTP(w, r)
				return
			}

			// Allow requests without body (refresh, logout)
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			mediaType, _, err := mime.ParseMediaType(contentType)
			if err != nil || !allowedContentTypes[mediaType] {
				log.Warn("invalid content type",
					slog.String("path", r.URL.Path),
					slog.String("content_type", contentType),
					slog.String("method", r.Method),
				)
				rw.Status(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json or form encoded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
