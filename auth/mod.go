// Package auth implements the authentication gate. It is a static credential
// check producing a role-labeled session; the core performs no credential
// storage or verification beyond this table.
package auth

import (
	"go.dedis.ch/dvote/session"
	"golang.org/x/xerrors"
)

// ErrInvalidCredentials is returned when the username or the password does
// not match any account.
var ErrInvalidCredentials = xerrors.New("invalid username or password")

type account struct {
	password string
	role     session.Role
	address  string
}

// Gate validates credentials against a static table and mints sessions.
type Gate struct {
	accounts map[string]account
}

// NewGate creates a gate pre-populated with the demo accounts.
func NewGate() *Gate {
	gate := &Gate{
		accounts: make(map[string]account),
	}

	gate.Register("admin", "admin123", session.RoleAdmin, "0xadmin")
	gate.Register("user", "user123", session.RoleUser, "0xuser")

	return gate
}

// Register adds or replaces an account. The address is the ledger identity
// the account acts with.
func (g *Gate) Register(username, password string, role session.Role, addr string) {
	g.accounts[username] = account{
		password: password,
		role:     role,
		address:  addr,
	}
}

// Login checks the credentials and returns a fresh session on success.
func (g *Gate) Login(username, password string) (session.Session, error) {
	acc, ok := g.accounts[username]
	if !ok || acc.password != password {
		return session.Session{}, ErrInvalidCredentials
	}

	return session.New(username, acc.role, acc.address), nil
}
