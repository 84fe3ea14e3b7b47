// Package common holds names shared by the storage, transport and session
// layers: storage slot keys and HTTP header names.
package common

// Storage slot keys. Only the session store writes the auth slots.
const (
	SlotUser         = "authUser"
	SlotTokens       = "authTokens"
	SlotRegistration = "authRegisteredUser"
	SlotLogoutSignal = "app.logout"
)

const (
	AuthorizationHeaderName = "Authorization"
	RequestIDHeaderName     = "X-Request-ID"
)
