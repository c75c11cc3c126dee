package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"account-service/internal/account"
	"account-service/internal/config"
	"account-service/internal/token"
	"account-service/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccountLoader is the slice of the account repository the gate needs.
type AccountLoader interface {
	GetByID(ctx context.Context, id uuid.UUID, opts ...account.FindOption) (*account.Account, error)
}

func abortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// extractToken prefers the Authorization header over the session cookie.
func extractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "" {
			return parts[1], true
		}
	}

	if cookie, err := c.Cookie(account.SessionCookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

// resolveAccount runs the full trust chain for one request: verify the token,
// load the subject, and reject tokens issued before the last password change.
func resolveAccount(c *gin.Context, loader AccountLoader, cfg *config.Config) (*account.Account, error) {
	raw, ok := extractToken(c)
	if !ok {
		return nil, apperror.New(apperror.KindNoCredential, http.StatusUnauthorized,
			"you are not logged in, please log in to get access")
	}

	identity, err := token.Verify(raw, cfg.JWT.Secret)
	if err != nil {
		return nil, err
	}

	subjectID, err := uuid.Parse(identity.SubjectID)
	if err != nil {
		return nil, apperror.New(apperror.KindInvalidToken, http.StatusUnauthorized,
			"invalid token, please log in again")
	}

	acct, err := loader.GetByID(c.Request.Context(), subjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.New(apperror.KindStaleCredential, http.StatusUnauthorized,
				"the account belonging to this token no longer exists")
		}
		return nil, err
	}

	if acct.PasswordChangedAfter(identity.IssuedAt) {
		return nil, apperror.New(apperror.KindRevokedCredential, http.StatusUnauthorized,
			"password was changed recently, please log in again")
	}

	return acct, nil
}

// RequireAuth guards protected routes. Failures short-circuit into the error
// funnel; on success the account rides the request context.
func RequireAuth(loader AccountLoader, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		acct, err := resolveAccount(c, loader, cfg)
		if err != nil {
			abortWithError(c, err)
			return
		}

		account.AttachToContext(c, acct)
		c.Next()
	}
}

// OptionalAuth attaches an identity when one can be resolved and degrades
// every failure mode to anonymous. It never rejects the request.
func OptionalAuth(loader AccountLoader, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if acct, err := resolveAccount(c, loader, cfg); err == nil {
			account.AttachToContext(c, acct)
		}
		c.Next()
	}
}

// RequireRole composes after RequireAuth.
func RequireRole(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		acct, ok := account.FromContext(c)
		if !ok {
			abortWithError(c, apperror.New(apperror.KindNoCredential, http.StatusUnauthorized,
				"you are not logged in, please log in to get access"))
			return
		}

		for _, role := range allowedRoles {
			if acct.Role == role {
				c.Next()
				return
			}
		}

		abortWithError(c, apperror.New(apperror.KindForbidden, http.StatusForbidden,
			"you do not have permission to perform this action"))
	}
}
