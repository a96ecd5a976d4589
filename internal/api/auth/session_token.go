package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"replyify-site/internal/domain/users"
)

const SessionTTL = 7 * 24 * time.Hour

var ErrInvalidSession = errors.New("invalid or expired session token")

type sessionClaims struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
	Picture   string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

// IssueSessionToken signs the opaque token kept in the session cookie.
func IssueSessionToken(u users.User, secret []byte, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", errors.New("session secret not configured")
	}

	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		Email:     u.Email,
		FirstName: u.FirstName,
		Picture:   u.ProfilePictureURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return t.SignedString(secret)
}

// ParseSessionToken returns ErrInvalidSession for anything it cannot trust.
func ParseSessionToken(tokenString string, secret []byte) (users.User, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return users.User{}, ErrInvalidSession
	}
	if claims.Subject == "" {
		return users.User{}, ErrInvalidSession
	}

	return users.User{
		ID:                claims.Subject,
		Email:             claims.Email,
		FirstName:         claims.FirstName,
		ProfilePictureURL: claims.Picture,
	}, nil
}
