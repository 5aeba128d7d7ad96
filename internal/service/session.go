package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"finance-portal/internal/models"
	"finance-portal/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SessionTTL is how long an issued token stays valid.
const SessionTTL = 7 * 24 * time.Hour

// Clock supplies the current time. Tests pass a fixed clock.
type Clock func() time.Time

// Credential is the verified identity carried by a session token.
type Credential struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
}

// SessionAuthority authenticates admins and issues/verifies session tokens.
// It holds no mutable state; revocation happens only through expiry or a
// new secret.
type SessionAuthority struct {
	db     *gorm.DB
	secret string
	ttl    time.Duration
	now    Clock
	log    *slog.Logger

	// compare is bcrypt.CompareHashAndPassword outside tests.
	compare func(hash, password []byte) error
}

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// equalizeTiming runs one bcrypt comparison against a throwaway hash for
// logins that have no stored hash to check.
func (a *SessionAuthority) equalizeTiming(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)
	})
	_ = a.compare(dummyHash, []byte(password))
}

// NewSessionAuthority builds the authority. An empty secret is rejected.
func NewSessionAuthority(db *gorm.DB, secret string, ttl time.Duration, now Clock, log *slog.Logger) (*SessionAuthority, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, util.ErrEmptySecret
	}
	if ttl <= 0 {
		ttl = SessionTTL
	}
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &SessionAuthority{
		db:      db,
		secret:  secret,
		ttl:     ttl,
		now:     now,
		log:     log,
		compare: bcrypt.CompareHashAndPassword,
	}, nil
}

// TTL reports the token lifetime, used for the cookie max-age.
func (a *SessionAuthority) TTL() time.Duration { return a.ttl }

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Authenticate checks email and password against the admins table.
func (a *SessionAuthority) Authenticate(ctx context.Context, email, password string) (Credential, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Credential{}, validationf("missing credentials")
	}

	var admin models.Admin
	err := a.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			a.equalizeTiming(password)
			return Credential{}, ErrInvalidCredentials
		}
		a.log.ErrorContext(ctx, "load admin", "error", err)
		return Credential{}, fmt.Errorf("load admin: %w", err)
	}

	if !admin.IsActive {
		a.equalizeTiming(password)
		return Credential{}, ErrInvalidCredentials
	}
	if err := a.compare([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return Credential{}, ErrInvalidCredentials
	}

	now := a.now()
	if err := a.db.WithContext(ctx).Model(&admin).Update("last_login_at", now).Error; err != nil {
		// not fatal for the login itself
		a.log.WarnContext(ctx, "record last login", "admin_id", admin.ID, "error", err)
	}

	return Credential{
		Subject: strconv.FormatUint(uint64(admin.ID), 10),
		Email:   admin.Email,
		Name:    admin.Name,
		Role:    admin.Role,
	}, nil
}

// IssueToken signs a token for cred that expires after the configured TTL.
func (a *SessionAuthority) IssueToken(cred Credential) (string, error) {
	claims := util.Claims{
		Email: cred.Email,
		Name:  cred.Name,
		Role:  cred.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: cred.Subject,
		},
	}
	tok, err := util.GenerateToken(a.secret, claims, a.now(), a.ttl)
	if err != nil {
		return "", fmt.Errorf("sign session: %w", err)
	}
	return tok, nil
}

// VerifyToken returns the credential in token, or ErrInvalidSession.
func (a *SessionAuthority) VerifyToken(token string) (Credential, error) {
	if token == "" {
		return Credential{}, ErrInvalidSession
	}
	claims, err := util.ParseToken(a.secret, token, a.now)
	if err != nil || claims.Subject == "" || claims.Email == "" {
		return Credential{}, ErrInvalidSession
	}
	return Credential{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    claims.Name,
		Role:    claims.Role,
	}, nil
}

// AdminID parses the subject back into an admin primary key.
func (c Credential) AdminID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidSession
	}
	return uint(id), nil
}
