package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/storeadmin/internal/client/models"
)

// CreateUser registers a new account (POST /users/).
func (c *Client) CreateUser(ctx context.Context, payload models.CreateUserPayload) (*models.UserProfile, error) {
	var out models.UserProfile
	if err := c.doJSON(ctx, http.MethodPost, "/users/", nil, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token pair (POST /auth/login).
func (c *Client) Login(ctx context.Context, creds models.LoginCredentials) (*models.AuthTokens, error) {
	var out models.AuthTokens
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", nil, creds, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile returns the user owning the current bearer token (GET /auth/profile).
func (c *Client) Profile(ctx context.Context) (*models.UserProfile, error) {
	var out models.UserProfile
	if err := c.doJSON(ctx, http.MethodGet, "/auth/profile", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout asks the server to revoke the current session (POST /auth/logout).
// The demo API may not implement it; callers treat it as best effort. A 401
// here means the session is already gone and does not trigger the
// unauthorized handler.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, request{method: http.MethodPost, path: "/auth/logout", ignoreUnauthorized: true}, nil)
}
