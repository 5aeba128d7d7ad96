package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
)

// RandomString returns n URL-safe random characters (initial passwords, keys).
func RandomString(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}

// ----------------- AES-256-GCM (audit fields, backups) -----------------

// deriveKey always yields a 32 byte key regardless of the configured length.
func deriveKey(keyStr string) []byte {
	sum := sha256.Sum256([]byte(keyStr))
	return sum[:]
}

func newGCM(keyStr string) (cipher.AEAD, error) {
	block, err := aes.NewCipher(deriveKey(keyStr))
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("new gcm: %w", err)
	}
	return aesgcm, nil
}

// EncryptAES encrypts with AES-256-GCM and returns nonce+ciphertext.
func EncryptAES(keyStr string, plaintext []byte) ([]byte, error) {
	aesgcm, err := newGCM(keyStr)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}

	ciphertext := aesgcm.Seal(nil, nonce, plaintext, nil)
	return append(nonce, ciphertext...), nil
}

// DecryptAES reverses EncryptAES. The input must be nonce+ciphertext.
func DecryptAES(keyStr string, data []byte) ([]byte, error) {
	aesgcm, err := newGCM(keyStr)
	if err != nil {
		return nil, err
	}

	ns := aesgcm.NonceSize()
	if len(data) < ns {
		return nil, fmt.Errorf("cipher too short")
	}
	nonce, ciphertext := data[:ns], data[ns:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plaintext, nil
}

// EncryptField encrypts a short string to base64. Empty input or an empty
// key is passed through unchanged.
func EncryptField(key, plain string) (string, error) {
	if plain == "" || key == "" {
		return plain, nil
	}
	b, err := EncryptAES(key, []byte(plain))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecryptField reverses EncryptField. Values that fail to decode or decrypt
// are returned as-is.
func DecryptField(key, cipherStr string) string {
	if cipherStr == "" || key == "" {
		return cipherStr
	}
	b, err := base64.StdEncoding.DecodeString(cipherStr)
	if err != nil {
		return cipherStr
	}
	plain, err := DecryptAES(key, b)
	if err != nil {
		return cipherStr
	}
	return string(plain)
}
