package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"account-service/internal/account"
	"account-service/internal/config"
	"account-service/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const authTestSecret = "auth-test-secret"

type stubLoader struct {
	accounts map[uuid.UUID]*account.Account
}

func (s *stubLoader) GetByID(ctx context.Context, id uuid.UUID, opts ...account.FindOption) (*account.Account, error) {
	if acct, ok := s.accounts[id]; ok {
		return acct, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.JWT.Secret = authTestSecret
	cfg.JWT.ExpiryHours = 1
	return cfg
}

func newGateRouter(loader AccountLoader) *gin.Engine {
	cfg := testConfig()

	router := gin.New()
	router.Use(RequestID())
	router.Use(ErrorHandler(cfg))

	router.GET("/protected", RequireAuth(loader, cfg), func(c *gin.Context) {
		acct, _ := account.FromContext(c)
		c.JSON(http.StatusOK, gin.H{"id": acct.ID})
	})
	router.GET("/admin", RequireAuth(loader, cfg), RequireRole(account.RoleAdmin), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	router.GET("/soft", OptionalAuth(loader, cfg), func(c *gin.Context) {
		_, ok := account.FromContext(c)
		c.JSON(http.StatusOK, gin.H{"authenticated": ok})
	})
	return router
}

func seedAccount(role string) (*stubLoader, *account.Account) {
	acct := &account.Account{
		ID:     uuid.New(),
		Name:   "Jo",
		Email:  "jo@example.com",
		Role:   role,
		Active: true,
	}
	return &stubLoader{accounts: map[uuid.UUID]*account.Account{acct.ID: acct}}, acct
}

func get(router *gin.Engine, path string, decorate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if decorate != nil {
		decorate(req)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequireAuthNoCredential(t *testing.T) {
	loader, _ := seedAccount(account.RoleUser)
	w := get(newGateRouter(loader), "/protected", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "not logged in")
}

func TestRequireAuthBearerHeader(t *testing.T) {
	loader, acct := seedAccount(account.RoleUser)
	tok, err := token.Issue(acct.ID.String(), authTestSecret, time.Hour)
	require.NoError(t, err)

	w := get(newGateRouter(loader), "/protected", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthCookie(t *testing.T) {
	loader, acct := seedAccount(account.RoleUser)
	tok, err := token.Issue(acct.ID.String(), authTestSecret, time.Hour)
	require.NoError(t, err)

	w := get(newGateRouter(loader), "/protected", func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: account.SessionCookieName, Value: tok})
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthHeaderTakesPrecedence(t *testing.T) {
	loader, acct := seedAccount(account.RoleUser)
	tok, err := token.Issue(acct.ID.String(), authTestSecret, time.Hour)
	require.NoError(t, err)

	// Valid header with a garbage cookie must still pass.
	w := get(newGateRouter(loader), "/protected", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
		r.AddCookie(&http.Cookie{Name: account.SessionCookieName, Value: "garbage"})
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireAuthExpiredToken(t *testing.T) {
	loader, acct := seedAccount(account.RoleUser)
	tok, err := token.Issue(acct.ID.String(), authTestSecret, -time.Minute)
	require.NoError(t, err)

	w := get(newGateRouter(loader), "/protected", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestRequireAuthStaleCredential(t *testing.T) {
	loader, _ := seedAccount(account.RoleUser)
	tok, err := token.Issue(uuid.New().String(), authTestSecret, time.Hour)
	require.NoError(t, err)

	w := get(newGateRouter(loader), "/protected", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "no longer exists")
}

func TestRequireAuthRevokedAfterPasswordChange(t *testing.T) {
	loader, acct := seedAccount(account.RoleUser)
	tok, err := token.Issue(acct.ID.String(), authTestSecret, time.Hour)
	require.NoError(t, err)

	changed := time.Now().Add(5 * time.Second)
	acct.PasswordChangedAt = &changed

	w := get(newGateRouter(loader), "/protected", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "changed recently")
}

func TestRequireRoleForbidden(t *testing.T) {
	loader, acct := seedAccount(account.RoleUser)
	tok, err := token.Issue(acct.ID.String(), authTestSecret, time.Hour)
	require.NoError(t, err)

	w := get(newGateRouter(loader), "/admin", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequireRoleAllows(t *testing.T) {
	loader, acct := seedAccount(account.RoleAdmin)
	tok, err := token.Issue(acct.ID.String(), authTestSecret, time.Hour)
	require.NoError(t, err)

	w := get(newGateRouter(loader), "/admin", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOptionalAuthDegradesToAnonymous(t *testing.T) {
	loader, _ := seedAccount(account.RoleUser)
	router := newGateRouter(loader)

	for name, decorate := range map[string]func(*http.Request){
		"no credential": nil,
		"garbage token": func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer garbage")
		},
		"unknown subject": func(r *http.Request) {
			tok, _ := token.Issue(uuid.New().String(), authTestSecret, time.Hour)
			r.Header.Set("Authorization", "Bearer "+tok)
		},
	} {
		t.Run(name, func(t *testing.T) {
			w := get(router, "/soft", decorate)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Body.String(), `"authenticated":false`)
		})
	}
}

func TestOptionalAuthAttachesIdentity(t *testing.T) {
	loader, acct := seedAccount(account.RoleUser)
	tok, err := token.Issue(acct.ID.String(), authTestSecret, time.Hour)
	require.NoError(t, err)

	w := get(newGateRouter(loader), "/soft", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+tok)
	})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"authenticated":true`)
}
