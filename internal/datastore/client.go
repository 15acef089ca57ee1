// Package datastore is the REST client for the remote tabular datastore.
// Two credential kinds are in play: a long-lived static token for ordinary
// row and file operations, and a short-lived bearer credential (obtained via
// Login) for schema-mutating calls. When a relay/CORS layer is configured
// the base URL simply points at it; the client does not care which it talks
// to.
package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/gridport/internal/config"
	"github.com/timmy/gridport/internal/domain"
)

// Client talks to the remote tabular datastore.
type Client struct {
	http        *resty.Client
	staticToken string
	username    string
	password    string
}

// NewClient creates a datastore client from configuration.
func NewClient(cfg *config.DatastoreConfig) *Client {
	http := resty.New()
	http.SetBaseURL(cfg.Endpoint())
	http.SetTimeout(cfg.Timeout())
	http.SetHeader("Content-Type", "application/json")

	return &Client{
		http:        http,
		staticToken: cfg.StaticToken,
		username:    cfg.Username,
		password:    cfg.Password,
	}
}

// Authenticate exchanges the configured username/password for a short-lived
// bearer credential. Implements the auth.Authenticator interface.
func (c *Client) Authenticate(ctx context.Context) (string, time.Time, error) {
	var out LoginResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"username": c.username, "password": c.password}).
		SetResult(&out).
		Post("/api/auth/login")
	if err != nil {
		return "", time.Time{}, &domain.AuthenticationError{Message: err.Error()}
	}
	if resp.IsError() {
		return "", time.Time{}, &domain.AuthenticationError{
			Status:  resp.StatusCode(),
			Message: resp.String(),
		}
	}
	if out.Token == "" {
		return "", time.Time{}, &domain.AuthenticationError{Message: "empty token in login response"}
	}
	expiresAt := time.Now().Add(time.Duration(out.ExpiresIn) * time.Second)
	return out.Token, expiresAt, nil
}

// request returns a request pre-authorized with the static token.
func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if c.staticToken != "" {
		r.SetHeader("Authorization", "Bearer "+c.staticToken)
	}
	return r
}

// bearerRequest returns a request authorized with an elevated credential.
func (c *Client) bearerRequest(ctx context.Context, bearer string) *resty.Request {
	return c.http.R().SetContext(ctx).SetHeader("Authorization", "Bearer "+bearer)
}

// check converts a non-2xx response into an APIError.
func check(resp *resty.Response, err error) error {
	if err != nil {
		return fmt.Errorf("datastore request failed: %w", err)
	}
	if resp.IsError() {
		return &APIError{Status: resp.StatusCode(), Body: resp.String()}
	}
	return nil
}
