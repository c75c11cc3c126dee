package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"account-service/internal/config"
	"account-service/internal/validate"
	"account-service/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNormalizePassesThroughAppError(t *testing.T) {
	original := apperror.New(apperror.KindForbidden, http.StatusForbidden, "no")
	assert.Same(t, original, Normalize(original))
}

func TestNormalizeRecordNotFound(t *testing.T) {
	appErr := Normalize(gorm.ErrRecordNotFound)
	assert.Equal(t, apperror.KindNotFound, appErr.Kind)
	assert.Equal(t, http.StatusNotFound, appErr.StatusCode)
}

func TestNormalizeDuplicateValue(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:    "23505",
		Detail:  "Key (email)=(x@y.com) already exists.",
		Message: `duplicate key value violates unique constraint "idx_accounts_email"`,
	}

	appErr := Normalize(pgErr)
	assert.Equal(t, apperror.KindDuplicateValue, appErr.Kind)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Contains(t, appErr.Message, "x@y.com")
}

func TestNormalizeDuplicateValueWithoutDetail(t *testing.T) {
	appErr := Normalize(&pgconn.PgError{Code: "23505"})
	assert.Equal(t, apperror.KindDuplicateValue, appErr.Kind)
	assert.Equal(t, "duplicate field value", appErr.Message)
}

func TestNormalizeInvalidIdentifier(t *testing.T) {
	appErr := Normalize(&pgconn.PgError{Code: "22P02"})
	assert.Equal(t, apperror.KindInvalidIdentifier, appErr.Kind)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
}

func TestNormalizeValidationErrors(t *testing.T) {
	type form struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
	}

	err := validate.Struct(&form{Email: "nope", Password: "short"})
	require.Error(t, err)

	appErr := Normalize(err)
	assert.Equal(t, apperror.KindValidationFailed, appErr.Kind)
	assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	assert.Contains(t, appErr.Message, "email")
	assert.Contains(t, appErr.Message, "password")
}

func TestNormalizeRawTokenErrors(t *testing.T) {
	appErr := Normalize(jwt.ErrTokenExpired)
	assert.Equal(t, apperror.KindExpiredToken, appErr.Kind)

	appErr = Normalize(jwt.ErrTokenMalformed)
	assert.Equal(t, apperror.KindInvalidToken, appErr.Kind)
}

func TestNormalizeUnclassified(t *testing.T) {
	appErr := Normalize(errors.New("cosmic rays"))
	assert.Equal(t, apperror.KindUnclassified, appErr.Kind)
	assert.False(t, appErr.IsOperational)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
}

func serveWithError(t *testing.T, environment string, err error) *httptest.ResponseRecorder {
	t.Helper()

	cfg := &config.Config{}
	cfg.Server.Environment = environment

	router := gin.New()
	router.Use(RequestID())
	router.Use(ErrorHandler(cfg))
	router.GET("/boom", func(c *gin.Context) {
		_ = c.Error(err)
		c.Abort()
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestErrorHandlerDevelopmentIncludesDiagnostics(t *testing.T) {
	w := serveWithError(t, "development", errors.New("cosmic rays"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"stack"`)
	assert.Contains(t, w.Body.String(), "cosmic rays")
}

func TestErrorHandlerProductionOperational(t *testing.T) {
	err := apperror.New(apperror.KindForbidden, http.StatusForbidden,
		"you do not have permission to perform this action")
	w := serveWithError(t, "production", err)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"fail"`)
	assert.Contains(t, w.Body.String(), "you do not have permission")
	assert.NotContains(t, w.Body.String(), "stack")
}

func TestErrorHandlerProductionHidesInternalDetail(t *testing.T) {
	w := serveWithError(t, "production", errors.New("pg password leaked"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "something went very wrong")
	assert.NotContains(t, w.Body.String(), "pg password leaked")
	assert.NotContains(t, w.Body.String(), "stack")
}
