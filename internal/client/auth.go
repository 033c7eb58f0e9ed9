package client

import (
	"context"
	"errors"
	"net/http"
)

// LoginResult is the body of a successful login.
type LoginResult struct {
	Message      string `json:"message"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Login exchanges credentials for a token pair and stores it.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := jsonBody(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	var out LoginResult
	err = c.doJSON(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/login",
		body:        body,
		contentType: "application/json",
	}, &out)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.password = password
	c.mu.Unlock()
	if err := c.setTokens(Tokens{
		Username:     username,
		AccessToken:  out.AccessToken,
		RefreshToken: out.RefreshToken,
	}); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh obtains a new access token with the stored refresh token.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	current := c.Tokens()
	if current.RefreshToken == "" {
		return "", ErrNoRefreshToken
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	err := c.doJSON(ctx, request{
		method: http.MethodPost,
		path:   "/auth/token/refresh",
		token:  current.RefreshToken,
	}, &out)
	if err != nil {
		return "", err
	}

	current.AccessToken = out.AccessToken
	if err := c.setTokens(current); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

// Logout revokes both held tokens and forgets the session. Tokens the
// server already rejects are not an error.
func (c *Client) Logout(ctx context.Context) error {
	current := c.Tokens()
	var errs []error
	if current.AccessToken != "" {
		errs = append(errs, c.revoke(ctx, "/auth/logout/access", current.AccessToken))
	}
	if current.RefreshToken != "" {
		errs = append(errs, c.revoke(ctx, "/auth/logout/refresh", current.RefreshToken))
	}

	c.mu.Lock()
	c.tokens = Tokens{Username: current.Username}
	c.mu.Unlock()
	if c.store != nil {
		errs = append(errs, c.store.Clear())
	}
	return errors.Join(errs...)
}

func (c *Client) revoke(ctx context.Context, path, token string) error {
	err := c.doJSON(ctx, request{method: http.MethodPost, path: path, token: token}, nil)
	if IsUnauthenticated(err) {
		return nil
	}
	return err
}
