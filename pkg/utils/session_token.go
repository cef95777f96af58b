package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateSessionToken creates a random, URL-safe identifier used for
// position-feed subscriptions and client sessions.
func GenerateSessionToken(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("rand.Read failed: %w", err)
	}
	return hex.EncodeToString(b), nil
}
