package client

import (
	"context"
	"fmt"
	"log/slog"
)

// authState is a step of the recovery policy around an authenticated call.
type authState int

const (
	stateAuthenticated authState = iota
	stateRefreshing
	stateReAuthenticating
	stateFailed
)

func (s authState) String() string {
	switch s {
	case stateAuthenticated:
		return "authenticated"
	case stateRefreshing:
		return "refreshing"
	case stateReAuthenticating:
		return "reauthenticating"
	default:
		return "failed"
	}
}

// authedCall runs op with the current access token. A 401 moves to
// Refreshing, which retries op once with a new access token; a second
// 401 or a failed refresh moves to ReAuthenticating, which logs in with
// the configured credentials and retries op once more. Any other error
// is returned as is.
func (c *Client) authedCall(ctx context.Context, op func(ctx context.Context, accessToken string) error) error {
	state := stateAuthenticated
	var lastErr error

	for {
		switch state {
		case stateAuthenticated:
			lastErr = op(ctx, c.Tokens().AccessToken)
			if lastErr == nil || !IsUnauthenticated(lastErr) {
				return lastErr
			}
			state = stateRefreshing

		case stateRefreshing:
			if _, err := c.Refresh(ctx); err != nil {
				c.logger.Debug("token refresh failed", slog.String("error", err.Error()))
				state = stateReAuthenticating
				continue
			}
			lastErr = op(ctx, c.Tokens().AccessToken)
			if lastErr == nil || !IsUnauthenticated(lastErr) {
				return lastErr
			}
			state = stateReAuthenticating

		case stateReAuthenticating:
			username, password := c.credentials()
			if password == "" {
				lastErr = fmt.Errorf("%w: %w", ErrNoCredentials, lastErr)
				state = stateFailed
				continue
			}
			if _, err := c.Login(ctx, username, password); err != nil {
				lastErr = err
				state = stateFailed
				continue
			}
			lastErr = op(ctx, c.Tokens().AccessToken)
			if lastErr == nil {
				return nil
			}
			state = stateFailed

		case stateFailed:
			return lastErr
		}
	}
}

func (c *Client) credentials() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tokens.Username, c.password
}
