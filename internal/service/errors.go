// Package service implements the account, roster and authentication use
// cases on top of the repository stores and the linker.
package service

import "errors"

var (
	// ErrInvalidCredentials covers both an unknown username and a wrong
	// password so the two cannot be told apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNotApproved is returned for a correct password on an account
	// that staff has not approved yet.  Admins are exempt.
	ErrNotApproved = errors.New("account pending approval")

	// ErrInvalidRefresh is returned for an unknown, expired or revoked
	// refresh token.
	ErrInvalidRefresh = errors.New("invalid refresh token")

	// ErrRoleNotAllowed is returned when self-registration asks for a
	// staff role.
	ErrRoleNotAllowed = errors.New("role cannot self-register")
)
