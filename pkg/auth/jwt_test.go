package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/auth"
)

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := auth.NewIssuer("", time.Hour)
	assert.ErrorIs(t, err, auth.ErrNoSecret)
}

func TestIssueAndValidate(t *testing.T) {
	iss, err := auth.NewIssuer("s3cr3t", time.Hour)
	require.NoError(t, err)

	tok, exp, err := iss.Issue("u1", "waiter", "sid-1")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	claims, err := iss.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "waiter", claims.Role)
	assert.Equal(t, "sid-1", claims.SessionID)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	a, _ := auth.NewIssuer("one", time.Hour)
	b, _ := auth.NewIssuer("two", time.Hour)

	tok, _, err := a.Issue("u1", "admin", "sid")
	require.NoError(t, err)

	_, err = b.Validate(tok)
	assert.Error(t, err)
}

func TestValidateRejectsExpired(t *testing.T) {
	iss, _ := auth.NewIssuer("s3cr3t", time.Millisecond)
	tok, _, err := iss.Issue("u1", "kitchen", "sid")
	require.NoError(t, err)

	time.Sleep(1100 * time.Millisecond)
	_, err = iss.Validate(tok)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)

	assert.True(t, auth.CheckPassword(hash, "correct horse"))
	assert.False(t, auth.CheckPassword(hash, "wrong"))
	assert.False(t, auth.CheckPassword("", ""))
}
