package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateID generates a random tab identifier. Tabs use it as their
// origin id on the cross-tab relay, so it must not collide between tabs.
func GenerateID() (string, error) {

	const size = 16 // 128 bits

	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("session: failed to generate id: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(b), nil

}
