// Package utils provides small helpers shared across layers.
package utils

import (
	"sort"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/errors"
)

// TokenClaims is the subset of JWT claims graphbind cares about.
type TokenClaims struct {
	Subject   string
	Audience  string
	Scopes    []string
	ExpiresAt time.Time
}

// tokenParser skips claim-level validation: graphbind is not the audience of
// these tokens, it only reads claims to derive cache keys and expiry. The
// Graph API itself is the verifier.
var tokenParser = jwt.NewParser(jwt.WithoutClaimsValidation())

// DecodeTokenClaims parses a compact JWT without verifying its signature and
// extracts subject, audience, scopes and expiry.
func DecodeTokenClaims(tokenString string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := tokenParser.ParseUnverified(tokenString, claims); err != nil {
		return nil, errors.ErrMissingCredential.WithMessage("token is not a well-formed JWT").WithError(err)
	}

	out := &TokenClaims{}
	if sub, err := claims.GetSubject(); err == nil {
		out.Subject = sub
	}
	if aud, err := claims.GetAudience(); err == nil && len(aud) > 0 {
		out.Audience = aud[0]
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	if scp, ok := claims["scp"].(string); ok {
		out.Scopes = strings.Fields(scp)
	}
	return out, nil
}

// IsWellFormedToken reports whether tokenString parses as a compact JWT.
func IsWellFormedToken(tokenString string) bool {
	_, err := DecodeTokenClaims(tokenString)
	return err == nil
}

// ExpiresWithinBuffer reports whether expiresAt falls inside the proactive
// refresh buffer relative to now. A zero expiry is treated as expired.
func ExpiresWithinBuffer(expiresAt time.Time, now time.Time) bool {
	if expiresAt.IsZero() {
		return true
	}
	return !expiresAt.After(now.Add(constants.TokenExpiryBuffer))
}

// ClientCacheKey derives the ClientCache key from a token: the subject claim
// followed by the scope claim sorted lexicographically, space-joined. Two
// tokens for the same principal and scope set map to the same key regardless
// of raw token bytes or scope ordering.
func ClientCacheKey(claims *TokenClaims) string {
	scopes := make([]string, len(claims.Scopes))
	copy(scopes, claims.Scopes)
	sort.Strings(scopes)
	return claims.Subject + " " + strings.Join(scopes, " ")
}
