package session

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity holds the claims decoded from a token's payload segment.
// The claims are unverified.
type Identity struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// DecodeIdentity extracts the identity from token. Any malformed input,
// including a payload without a positive user_id, yields ok == false;
// callers treat that exactly like a missing token.
func DecodeIdentity(token string) (id *Identity, ok bool) {
	parts := strings.Split(token, ".")
	if len(parts) < 2 || parts[1] == "" {
		return nil, false
	}

	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil, false
	}

	var claims Identity
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, false
	}
	if claims.UserID <= 0 {
		return nil, false
	}
	return &claims, true
}

// Expired reports whether the token carries an expiry that has passed at now.
// The server remains the judge; this is only a hint for the user.
func (id *Identity) Expired(now time.Time) bool {
	if id == nil || id.ExpiresAt == nil {
		return false
	}
	return now.After(id.ExpiresAt.Time)
}
