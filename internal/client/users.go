package client

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// User is a registered account.
type User struct {
	ID        int64     `json:"user_id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Register creates an account and returns its id. The current access
// token, if any, is sent along for servers that restrict registration.
func (c *Client) Register(ctx context.Context, username, password string) (int64, error) {
	var out struct {
		UserID int64 `json:"user_id"`
	}
	err := c.authedCall(ctx, func(ctx context.Context, token string) error {
		body, err := jsonBody(map[string]string{"username": username, "password": password})
		if err != nil {
			return err
		}
		return c.doJSON(ctx, request{
			method:      http.MethodPost,
			path:        "/users",
			body:        body,
			contentType: "application/json",
			token:       token,
		}, &out)
	})
	return out.UserID, err
}

func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Users []User `json:"users"`
	}
	err := c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{method: http.MethodGet, path: "/users", token: token}, &out)
	})
	return out.Users, err
}

func (c *Client) GetUser(ctx context.Context, id int64) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{method: http.MethodGet, path: "/users/" + strconv.FormatInt(id, 10), token: token}, &out)
	})
	if err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) DeleteUser(ctx context.Context, id int64) error {
	return c.authedCall(ctx, func(ctx context.Context, token string) error {
		return c.doJSON(ctx, request{method: http.MethodDelete, path: "/users/" + strconv.FormatInt(id, 10), token: token}, nil)
	})
}
