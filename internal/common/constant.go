package common

const (
	// AuthorizationHeaderName carries "Bearer <token>" on protected requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the token in the Authorization header.
	BearerPrefix = "Bearer "

	// RoleUser and RoleAdmin are the roles a user record can hold.
	RoleUser  = "user"
	RoleAdmin = "admin"
)
