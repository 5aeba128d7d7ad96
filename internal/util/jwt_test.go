package util

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func fixedNow(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGenerateAndParseToken(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	in := Claims{
		Email: "admin@example.org",
		Name:  "Admin",
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: "7",
		},
	}

	tok, err := GenerateToken("secret", in, issued, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	out, err := ParseToken("secret", tok, fixedNow(issued.Add(time.Hour)))
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if out.Subject != "7" || out.Email != in.Email || out.Name != in.Name || out.Role != in.Role {
		t.Errorf("claims mismatch: %+v", out)
	}
	if !out.ExpiresAt.Time.Equal(issued.Add(7 * 24 * time.Hour)) {
		t.Errorf("exp = %v", out.ExpiresAt.Time)
	}
}

func TestParseToken_Expired(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tok, _ := GenerateToken("secret", Claims{Email: "a@b.c"}, issued, time.Hour)

	_, err := ParseToken("secret", tok, fixedNow(issued.Add(time.Hour+time.Second)))
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("err = %v, want ErrTokenExpired", err)
	}
}

func TestParseToken_WrongSecret(t *testing.T) {
	now := time.Now()
	tok, _ := GenerateToken("secret", Claims{Email: "a@b.c"}, now, time.Hour)

	if _, err := ParseToken("other", tok, fixedNow(now)); err == nil {
		t.Error("wrong secret should fail")
	}
}

func TestParseToken_RejectsOtherAlgorithms(t *testing.T) {
	now := time.Now()
	claims := &Claims{
		Email: "a@b.c",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := ParseToken("secret", tok, fixedNow(now)); err == nil {
		t.Error("HS512 token should be rejected")
	}

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if _, err := ParseToken("secret", none, fixedNow(now)); err == nil {
		t.Error("alg=none token should be rejected")
	}
}

func TestParseToken_Malformed(t *testing.T) {
	for _, tok := range []string{"", "abc", "a.b.c"} {
		if _, err := ParseToken("secret", tok, nil); err == nil {
			t.Errorf("ParseToken(%q) should fail", tok)
		}
	}
}

func TestEmptySecret(t *testing.T) {
	if _, err := GenerateToken("", Claims{}, time.Now(), time.Hour); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("GenerateToken err = %v", err)
	}
	if _, err := ParseToken("", "x", nil); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("ParseToken err = %v", err)
	}
}
