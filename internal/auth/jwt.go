package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/usherlabs/custody/internal/did"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the JWT claims of a DID bearer token. Subject is the DID.
type Claims struct {
	Wallet *WalletSummary `json:"wallet,omitempty"`
	jwt.RegisteredClaims
}

// DID returns the DID the token was issued for.
func (c *Claims) DID() string {
	return c.Subject
}

// TokenConfig holds JWT configuration
type TokenConfig struct {
	Issuer      string
	ExpiryHours int
}

// GenerateToken creates a JWT for id, signed by its DID key.
func GenerateToken(id *Identity, config *TokenConfig) (string, error) {
	now := time.Now()
	wallet := id.Wallet()
	claims := Claims{
		Wallet: &wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    config.Issuer,
			Subject:   id.DID.ID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(config.ExpiryHours) * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = id.DID.ID()
	return token.SignedString(id.DID.SigningKey())
}

// ValidateToken verifies a JWT against the did:key in its subject and
// returns the claims if valid.
func ValidateToken(tokenString string, config *TokenConfig) (*Claims, error) {
	var opts []jwt.ParserOption
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, ErrInvalidToken
		}
		claims, ok := token.Claims.(*Claims)
		if !ok {
			return nil, ErrInvalidToken
		}
		return did.ParseKey(claims.Subject)
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}
