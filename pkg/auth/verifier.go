package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the Supabase access token claims the frontend relies on.
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata"`
	jwt.RegisteredClaims
}

// MetadataString returns the first non-empty string among the given user_metadata keys.
func (c *Claims) MetadataString(keys ...string) string {
	for _, k := range keys {
		if v, ok := c.UserMetadata[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// Verifier validates access tokens signed either with the project HS256
// secret or with an asymmetric key published in the JWKS document.
type Verifier struct {
	secret []byte
	jwks   *Provider
}

func NewVerifier(hmacSecret string, jwks *Provider) *Verifier {
	v := &Verifier{jwks: jwks}
	if hmacSecret != "" {
		v.secret = []byte(hmacSecret)
	}
	return v
}

func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errors.New("empty token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		switch token.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if v.secret == nil {
				return nil, fmt.Errorf("HS256 token received but SUPABASE_JWT_SECRET is not configured")
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			if v.jwks == nil {
				return nil, fmt.Errorf("asymmetric token received but no JWKS provider is configured")
			}
			return v.jwks.KeyFunc(token)
		default:
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}
	return claims, nil
}
