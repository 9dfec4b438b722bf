package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptCost = 12

const secretBytes = 32

// GenerateSecret returns a fresh random secret for an ingest key. The secret
// is shown once at creation time; only its bcrypt hash is stored.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func HashSecret(secret string) (string, error) {
	trimmed := strings.TrimSpace(secret)
	if trimmed == "" {
		return "", fmt.Errorf("secret is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(trimmed), DefaultBcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash secret: %w", err)
	}
	return string(hash), nil
}

func VerifySecret(secret, hash string) bool {
	trimmedSecret := strings.TrimSpace(secret)
	trimmedHash := strings.TrimSpace(hash)
	if trimmedSecret == "" || trimmedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(trimmedHash), []byte(trimmedSecret)) == nil
}

// FormatKey renders the presentable form of an ingest key, "<id>.<secret>".
func FormatKey(keyID int64, secret string) string {
	return fmt.Sprintf("%d.%s", keyID, strings.TrimSpace(secret))
}

// ParseKey splits a presented key into its id and secret parts.
func ParseKey(raw string) (int64, string, bool) {
	trimmed := strings.TrimSpace(raw)
	idPart, secret, found := strings.Cut(trimmed, ".")
	if !found || idPart == "" || secret == "" {
		return 0, "", false
	}

	keyID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || keyID <= 0 {
		return 0, "", false
	}
	return keyID, secret, true
}
