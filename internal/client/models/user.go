// Package models defines the client-side data shapes exchanged with the
// store API and kept in local storage slots.
package models

import (
	"errors"
	"strings"
)

var (
	ErrMissingEmail       = errors.New("email is required")
	ErrMissingAccessToken = errors.New("access token is required")
)

// UserProfile is the current user's identity record.
// Role is client-side only for registrations; the API never stores it.
type UserProfile struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Avatar string `json:"avatar"`
}

func (p UserProfile) Validate() error {
	if strings.TrimSpace(p.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}

// AuthTokens is an opaque token pair. Only the access token decides whether
// a session is authenticated.
type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

func (t AuthTokens) Authenticated() bool {
	return t.AccessToken != ""
}

func (t AuthTokens) Validate() error {
	if t.AccessToken == "" {
		return ErrMissingAccessToken
	}
	return nil
}

// StoredRegistration caches the last registration form together with the
// server-assigned id. It backs the local-fallback login and keeps the
// password in clear text because the demo API offers nothing better.
type StoredRegistration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	UserID   int64  `json:"userId,omitempty"`
}

func (r StoredRegistration) Validate() error {
	if strings.TrimSpace(r.Email) == "" {
		return ErrMissingEmail
	}
	return nil
}

type RegisterForm struct {
	Username string
	Email    string
	Password string
	Role     string
}

type LoginCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserPayload is the body of POST /users/.
type CreateUserPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Avatar   string `json:"avatar"`
}
