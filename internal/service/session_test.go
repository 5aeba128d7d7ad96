package service

import (
	"context"
	"testing"
	"time"

	"finance-portal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func seedAdmin(t *testing.T, db *gorm.DB, email, password string, active bool) models.Admin {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	a := models.Admin{Email: email, Name: "Treasurer", PasswordHash: string(hash), Role: "admin", IsActive: true}
	require.NoError(t, db.Create(&a).Error)
	if !active {
		require.NoError(t, db.Model(&a).Update("is_active", false).Error)
	}
	return a
}

func TestNewSessionAuthority_RejectsEmptySecret(t *testing.T) {
	_, err := NewSessionAuthority(nil, "  ", SessionTTL, nil, quietLog)
	assert.Error(t, err)
}

func TestSessionAuthority_TokenRoundTrip(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	auth, err := NewSessionAuthority(nil, "s3cret", SessionTTL, fixedClock(now), quietLog)
	require.NoError(t, err)

	in := Credential{Subject: "42", Email: "a@b.org", Name: "Ann", Role: "admin"}
	tok, err := auth.IssueToken(in)
	require.NoError(t, err)

	out, err := auth.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	id, err := out.AdminID()
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestSessionAuthority_Expiry(t *testing.T) {
	issued := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	current := issued
	clock := func() time.Time { return current }

	auth, err := NewSessionAuthority(nil, "s3cret", SessionTTL, clock, quietLog)
	require.NoError(t, err)
	tok, err := auth.IssueToken(Credential{Subject: "1", Email: "a@b.org"})
	require.NoError(t, err)

	current = issued.Add(SessionTTL - time.Second)
	_, err = auth.VerifyToken(tok)
	assert.NoError(t, err)

	current = issued.Add(SessionTTL + time.Second)
	_, err = auth.VerifyToken(tok)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionAuthority_VerifyRejects(t *testing.T) {
	now := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)
	auth, err := NewSessionAuthority(nil, "s3cret", SessionTTL, fixedClock(now), quietLog)
	require.NoError(t, err)
	other, err := NewSessionAuthority(nil, "other", SessionTTL, fixedClock(now), quietLog)
	require.NoError(t, err)

	foreign, err := other.IssueToken(Credential{Subject: "1", Email: "a@b.org"})
	require.NoError(t, err)
	noEmail, err := auth.IssueToken(Credential{Subject: "1"})
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": foreign,
		"no email":     noEmail,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := auth.VerifyToken(tok)
			assert.ErrorIs(t, err, ErrInvalidSession)
		})
	}
}

func TestAuthenticate(t *testing.T) {
	db := newTestDB(t)
	admin := seedAdmin(t, db, "treasurer@church.org", "correct horse", true)
	seedAdmin(t, db, "former@church.org", "correct horse", false)

	now := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)
	auth, err := NewSessionAuthority(db, "s3cret", SessionTTL, fixedClock(now), quietLog)
	require.NoError(t, err)
	ctx := context.Background()

	cred, err := auth.Authenticate(ctx, "  Treasurer@Church.org ", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, "treasurer@church.org", cred.Email)
	assert.Equal(t, "1", cred.Subject)

	var reloaded models.Admin
	require.NoError(t, db.First(&reloaded, admin.ID).Error)
	require.NotNil(t, reloaded.LastLoginAt)
	assert.True(t, reloaded.LastLoginAt.Equal(now))

	_, wrongPassword := auth.Authenticate(ctx, "treasurer@church.org", "battery staple")
	_, unknownEmail := auth.Authenticate(ctx, "nobody@church.org", "correct horse")
	_, inactive := auth.Authenticate(ctx, "former@church.org", "correct horse")
	assert.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword, unknownEmail)
	assert.Equal(t, wrongPassword.Error(), inactive.Error())

	_, missing := auth.Authenticate(ctx, "", "x")
	assert.True(t, IsValidation(missing))
}

func TestAuthenticate_FailuresCostOneComparison(t *testing.T) {
	db := newTestDB(t)
	seedAdmin(t, db, "treasurer@church.org", "correct horse", true)
	seedAdmin(t, db, "former@church.org", "correct horse", false)

	auth, err := NewSessionAuthority(db, "s3cret", SessionTTL, nil, quietLog)
	require.NoError(t, err)
	calls := 0
	auth.compare = func(hash, password []byte) error {
		calls++
		return bcrypt.CompareHashAndPassword(hash, password)
	}
	ctx := context.Background()

	for _, email := range []string{"treasurer@church.org", "nobody@church.org", "former@church.org"} {
		calls = 0
		_, err := auth.Authenticate(ctx, email, "battery staple")
		assert.ErrorIs(t, err, ErrInvalidCredentials, email)
		assert.Equal(t, 1, calls, email)
	}
}
