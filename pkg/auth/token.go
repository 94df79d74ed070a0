package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// TokenPrefix identifies BudgetUp tokens
	TokenPrefix = "bup_"
	// TokenLength is the total length of random bytes (32 bytes = 256 bits)
	TokenLength = 32
)

// TokenGenerator generates and validates API tokens
type TokenGenerator struct{}

// NewTokenGenerator creates a new token generator
func NewTokenGenerator() *TokenGenerator {
	return &TokenGenerator{}
}

// GenerateToken creates a new API token.
// Format: bup_<base64url(32 random bytes)>
func (tg *TokenGenerator) GenerateToken() (token string, tokenHash string, tokenPrefix string, err error) {
	randomBytes := make([]byte, TokenLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	encodedToken := base64.RawURLEncoding.EncodeToString(randomBytes)
	fullToken := TokenPrefix + encodedToken

	// Only the SHA256 hash is ever stored
	hash := sha256.Sum256([]byte(fullToken))
	hashStr := hex.EncodeToString(hash[:])

	prefix := TokenPrefix
	if len(encodedToken) >= 8 {
		prefix = TokenPrefix + encodedToken[:8]
	}

	return fullToken, hashStr, prefix, nil
}

// HashToken computes the SHA256 hash of a token for lookup
func (tg *TokenGenerator) HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// ValidateTokenFormat checks if a token has the correct format
func (tg *TokenGenerator) ValidateTokenFormat(token string) error {
	if !strings.HasPrefix(token, TokenPrefix) {
		return fmt.Errorf("token must start with %q", TokenPrefix)
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) == 0 {
		return fmt.Errorf("token is too short")
	}

	if _, err := base64.RawURLEncoding.DecodeString(encodedPart); err != nil {
		return fmt.Errorf("invalid token encoding: %w", err)
	}

	return nil
}

// ExtractPrefix extracts the prefix from a token for display
func (tg *TokenGenerator) ExtractPrefix(token string) string {
	if !strings.HasPrefix(token, TokenPrefix) {
		return ""
	}

	encodedPart := strings.TrimPrefix(token, TokenPrefix)
	if len(encodedPart) >= 8 {
		return TokenPrefix + encodedPart[:8]
	}

	return token
}
