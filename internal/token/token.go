// Package token signs and verifies the bearer credential carried by every
// protected request. Tokens embed only the subject id and the issue/expiry
// times; nothing is persisted server-side.
package token

import (
	"errors"
	"net/http"
	"time"

	"account-service/pkg/apperror"

	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	jwt.RegisteredClaims
}

// Identity is the verified content of a bearer token.
type Identity struct {
	SubjectID string
	IssuedAt  time.Time
}

func Issue(subjectID string, secret string, lifetime time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// Verify checks signature, structure and expiry. It runs on every protected
// request; results are never cached across requests.
func Verify(tokenString string, secret string) (*Identity, error) {
	claims := &Claims{}

	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperror.New(apperror.KindExpiredToken, http.StatusUnauthorized,
				"your token has expired, please log in again")
		}
		return nil, apperror.New(apperror.KindInvalidToken, http.StatusUnauthorized,
			"invalid token, please log in again")
	}

	if !tok.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return nil, apperror.New(apperror.KindInvalidToken, http.StatusUnauthorized,
			"invalid token, please log in again")
	}

	return &Identity{
		SubjectID: claims.Subject,
		IssuedAt:  claims.IssuedAt.Time,
	}, nil
}
