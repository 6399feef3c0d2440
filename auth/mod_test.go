package auth

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dvote/session"
)

func TestGate_Login(t *testing.T) {
	gate := NewGate()

	sess, err := gate.Login("admin", "admin123")
	require.NoError(t, err)
	require.Equal(t, session.RoleAdmin, sess.Role)
	require.True(t, sess.IsAdmin())
	require.NotEmpty(t, sess.ID)

	sess, err = gate.Login("user", "user123")
	require.NoError(t, err)
	require.Equal(t, session.RoleUser, sess.Role)
	require.False(t, sess.IsAdmin())
}

func TestGate_Login_Invalid(t *testing.T) {
	gate := NewGate()

	_, err := gate.Login("admin", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = gate.Login("nobody", "admin123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestGate_Login_FreshSessions(t *testing.T) {
	gate := NewGate()

	first, err := gate.Login("user", "user123")
	require.NoError(t, err)

	second, err := gate.Login("user", "user123")
	require.NoError(t, err)

	// Two logins never share a session identifier.
	require.NotEqual(t, first.ID, second.ID)
}

func TestGate_Register(t *testing.T) {
	gate := NewGate()
	gate.Register("alice", "secret", session.RoleUser, "0xalice")

	sess, err := gate.Login("alice", "secret")
	require.NoError(t, err)
	require.Equal(t, "0xalice", sess.Address)
	require.Equal(t, "alice", sess.Username)
}
