package account

import "github.com/gin-gonic/gin"

// SessionCookieName is the cookie carrying the bearer token for callers that
// cannot set an Authorization header.
const SessionCookieName = "jwt"

const contextKey = "account"

// AttachToContext stores the authenticated account for downstream handlers.
func AttachToContext(c *gin.Context, acct *Account) {
	c.Set(contextKey, acct)
}

// FromContext returns the account attached by the authentication gate.
func FromContext(c *gin.Context) (*Account, bool) {
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, false
	}
	acct, ok := value.(*Account)
	return acct, ok
}
