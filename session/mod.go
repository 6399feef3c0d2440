// Package session defines the identity value threaded explicitly through
// every pipeline call. There is no ambient current-user state: each operation
// receives the session of the caller it acts for, which keeps concurrent
// sessions and tests straightforward.
package session

import "github.com/rs/xid"

// Role labels what a session is allowed to reach. The ledger does not consume
// it; it only gates which pipelines the client exposes.
type Role string

const (
	// RoleAdmin grants access to the administrative mutation pipeline.
	RoleAdmin Role = "admin"

	// RoleUser grants access to the vote submission pipeline.
	RoleUser Role = "user"
)

// Session identifies an authenticated caller and the ledger identity it acts
// with. It is an immutable value created at login and discarded at logout.
type Session struct {
	ID       string
	Username string
	Role     Role
	Address  string
}

// New creates a session with a fresh unique identifier.
func New(username string, role Role, addr string) Session {
	return Session{
		ID:       xid.New().String(),
		Username: username,
		Role:     role,
		Address:  addr,
	}
}

// IsAdmin returns true when the session holds the administrator role.
func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}
