package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

const (
	// CodeVerifierLength is the PKCE verifier length (RFC 7636 allows 43-128).
	CodeVerifierLength = 64

	// StateLength is the length of the anti-CSRF state parameter.
	StateLength = 32
)

// PKCE holds the verifier, its S256 challenge, and the state for one login.
type PKCE struct {
	Verifier  string
	Challenge string
	State     string
}

// NewPKCE generates fresh PKCE parameters.
func NewPKCE() (*PKCE, error) {
	verifier, err := randomString(CodeVerifierLength)
	if err != nil {
		return nil, err
	}
	state, err := randomString(StateLength)
	if err != nil {
		return nil, err
	}
	return &PKCE{
		Verifier:  verifier,
		Challenge: challengeFor(verifier),
		State:     state,
	}, nil
}

// randomString returns n URL-safe base64 characters from crypto/rand.
func randomString(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf)[:n], nil
}

// challengeFor returns base64url(sha256(verifier)).
func challengeFor(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
