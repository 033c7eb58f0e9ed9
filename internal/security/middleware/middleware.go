package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/aryan0dhankhar/memedata/internal/apperror"
	"github.com/aryan0dhankhar/memedata/internal/observability/requestid"
	"github.com/aryan0dhankhar/memedata/internal/respond"
	"github.com/aryan0dhankhar/memedata/internal/security/audit"
	"github.com/aryan0dhankhar/memedata/internal/security/auth"
	"github.com/aryan0dhankhar/memedata/internal/security/ratelimit"
)

type ClaimsContextKey struct{}
type TokenContextKey struct{}

// TokenValidator validates a bearer token of the expected type
type TokenValidator interface {
	Validate(ctx context.Context, token string, expected auth.TokenType) (*auth.Claims, error)
}

// RequireToken rejects requests without a valid, unrevoked token of the
// given type and stores the claims and raw token in the request context.
func RequireToken(validator TokenValidator, expected auth.TokenType, rw *respond.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.ExtractToken(r.Header.Get("Authorization"))
			if err != nil {
				rw.Error(w, r, apperror.NewUnauthenticated("missing or malformed authorization header", err))
				return
			}

			claims, err := validator.Validate(r.Context(), tokenString, expected)
			if err != nil {
				rw.Error(w, r, err)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, TokenContextKey{}, tokenString)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalToken attaches claims when a valid access token is presented and
// otherwise passes the request through untouched.
func OptionalToken(validator TokenValidator, expected auth.TokenType) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := auth.ExtractToken(r.Header.Get("Authorization"))
			if err == nil {
				if claims, err := validator.Validate(r.Context(), tokenString, expected); err == nil {
					ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
					ctx = context.WithValue(ctx, TokenContextKey{}, tokenString)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimitMiddleware throttles by client IP as resolved by ips
func RateLimitMiddleware(limiter *ratelimit.Limiter, ips *ClientIPResolver, auditLog *audit.Logger, rw *respond.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ips.ClientIP(r)
			if !limiter.Allow(ip) {
				auditLog.LogDenied(r.Context(), ip, "rate limit exceeded")
				rw.Error(w, r, apperror.NewRateLimited("too many requests, try again later"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestLogging assigns a request ID and logs each request once it completes
func RequestLogging(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestid.Header)
			if id == "" || len(id) > 64 {
				id = requestid.New()
			}
			w.Header().Set(requestid.Header, id)
			r = r.WithContext(requestid.With(r.Context(), id))

			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			level := slog.LevelInfo
			if sw.status >= 500 {
				level = slog.LevelError
			} else if sw.status >= 400 {
				level = slog.LevelWarn
			}
			log.Log(r.Context(), level, "http request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", sw.status),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", id),
				slog.String("remote_ip", ClientIP(r)),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// ClientIP returns the host of the connection's remote address
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// ClientIPResolver maps a request to the client address. X-Forwarded-For
// is only read when the peer is a trusted proxy.
type ClientIPResolver struct {
	trusted []netip.Prefix
}

// NewClientIPResolver parses trusted proxies given as CIDRs or bare IPs
func NewClientIPResolver(proxies []string) (*ClientIPResolver, error) {
	res := &ClientIPResolver{}
	for _, p := range proxies {
		if strings.Contains(p, "/") {
			prefix, err := netip.ParsePrefix(p)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
			}
			res.trusted = append(res.trusted, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		addr = addr.Unmap()
		res.trusted = append(res.trusted, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return res, nil
}

func (c *ClientIPResolver) isTrusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range c.trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientIP returns the peer address, or for a trusted peer the right-most
// X-Forwarded-For hop that is not itself a trusted proxy. A nil resolver
// trusts nobody.
func (c *ClientIPResolver) ClientIP(r *http.Request) string {
	peer := ClientIP(r)
	if c == nil || !c.isTrusted(peer) {
		return peer
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(v, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if c.isTrusted(hops[i]) {
			continue
		}
		if addr, err := netip.ParseAddr(hops[i]); err == nil {
			return addr.Unmap().String()
		}
		return peer
	}
	return peer
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

func GetTokenFromContext(ctx context.Context) string {
	if t, ok := ctx.Value(TokenContextKey{}).(string); ok {
		return t
	}
	return ""
}

// Recover turns a handler panic into a 500 in the error envelope
func Recover(log *slog.Logger, rw *respond.Writer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					if rvr == http.ErrAbortHandler {
						panic(rvr)
					}
					log.Error("panic in handler",
						slog.Any("panic", rvr),
						slog.String("path", r.URL.Path),
						slog.String("request_id", requestid.From(r.Context())),
					)
					rw.Error(w, r, apperror.NewInternal("internal server error", fmt.Errorf("panic: %v", rvr)))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
