// Package auth turns bearer JWTs into the current user identity consumed by
// the services.
package auth

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/placeshare/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Issuer is stamped into every token and required on parse.
const Issuer = "placeshare"

// Claims carries the acting user id next to the registered claims.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

// GenerateToken signs an HS256 token for userID that expires after ttl.
func GenerateToken(userID string, secretKey []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secretKey)
}

// GetUserIDFromToken validates the token and returns its user id. Expiry maps
// to common.ErrTokenExpired, anything else to common.ErrInvalidToken.
func GetUserIDFromToken(tokenString string, secretKey []byte) (string, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", common.ErrTokenExpired
	case err != nil, claims.UserID == "":
		return "", common.ErrInvalidToken
	}
	return claims.UserID, nil
}
