package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	m, err := NewSessionManager("0123456789abcdef", "salespulse", time.Hour)
	require.NoError(t, err)

	token, expires, err := m.IssueToken("admin", RoleAdmin)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expires, 5*time.Second)

	claims, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, RoleAdmin, claims.Role)
}

func TestValidateRejectsTampering(t *testing.T) {
	m, err := NewSessionManager("0123456789abcdef", "salespulse", time.Hour)
	require.NoError(t, err)
	other, err := NewSessionManager("fedcba9876543210", "salespulse", time.Hour)
	require.NoError(t, err)

	token, _, err := other.IssueToken("admin", RoleAdmin)
	require.NoError(t, err)
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrTokenSignature)

	_, err = m.Validate("")
	assert.ErrorIs(t, err, ErrTokenEmpty)
	_, err = m.Validate("a.b")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	good, _, err := m.IssueToken("admin", RoleAdmin)
	require.NoError(t, err)
	parts := strings.Split(good, ".")
	_, err = m.Validate(parts[0] + "." + parts[1] + "x." + parts[2])
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	m, err := NewSessionManager("0123456789abcdef", "salespulse", time.Minute)
	require.NoError(t, err)
	issued := time.Now().Add(-2 * time.Minute)
	m.nowFunc = func() time.Time { return issued }
	token, _, err := m.IssueToken("admin", RoleAdmin)
	require.NoError(t, err)

	m.nowFunc = time.Now
	_, err = m.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestShortKeyRejected(t *testing.T) {
	_, err := NewSessionManager("short", "salespulse", time.Hour)
	assert.Error(t, err)
}

func TestPasswordMatches(t *testing.T) {
	assert.True(t, PasswordMatches("hunter22", "hunter22"))
	assert.False(t, PasswordMatches("hunter2", "hunter22"))
	assert.False(t, PasswordMatches("", ""))
}
