package services

import "errors"

// ErrInvalidCredentials matches any *InvalidCredentialsError via errors.Is.
var ErrInvalidCredentials = errors.New("invalid credentials")

// RegistrationError is returned when the API rejects a sign-up.
type RegistrationError struct {
	Message string
	Err     error
}

func (e *RegistrationError) Error() string { return e.Message }
func (e *RegistrationError) Unwrap() error { return e.Err }

// InvalidCredentialsError is returned by a local-fallback login whose
// password does not match the cached registration.
type InvalidCredentialsError struct {
	Email string
}

func (e *InvalidCredentialsError) Error() string { return "invalid email or password" }

func (e *InvalidCredentialsError) Is(target error) bool { return target == ErrInvalidCredentials }

// LoginError is returned when the remote login or the profile fetch fails.
// Status is the HTTP status when the failure came from the API, else 0.
type LoginError struct {
	Message string
	Status  int
	Err     error
}

func (e *LoginError) Error() string { return e.Message }
func (e *LoginError) Unwrap() error { return e.Err }
