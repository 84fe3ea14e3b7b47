package services

import (
	"strings"

	"github.com/dmitrijs2005/storeadmin/internal/client/models"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// LoginPath says which of the two login mechanisms serves a request.
type LoginPath int

const (
	// RemoteLogin checks the credentials against the API.
	RemoteLogin LoginPath = iota
	// LocalFallback checks them against the cached registration only.
	LocalFallback
)

func (p LoginPath) String() string {
	if p == LocalFallback {
		return "local-fallback"
	}
	return "remote"
}

// LoginPlan is the resolved login path plus the registration backing it
// (set only for LocalFallback).
type LoginPlan struct {
	Path         LoginPath
	Registration models.StoredRegistration
}

// PlanLogin picks the login path. A cached registration whose email matches
// the submitted one always wins over the remote check.
func PlanLogin(cached models.StoredRegistration, haveCached bool, creds models.LoginCredentials) LoginPlan {
	if haveCached && sameEmail(cached.Email, creds.Email) {
		return LoginPlan{Path: LocalFallback, Registration: cached}
	}
	return LoginPlan{Path: RemoteLogin}
}

func normalizeEmail(s string) string {
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

func sameEmail(a, b string) bool {
	na := normalizeEmail(a)
	return na != "" && na == normalizeEmail(b)
}
