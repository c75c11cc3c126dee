package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"account-service/internal/config"
	"account-service/internal/logger"
	"account-service/pkg/apperror"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	pgUniqueViolation = "23505"
	pgInvalidTextRepr = "22P02"
)

// duplicateDetailPattern pulls the offending value out of a Postgres unique
// violation detail: `Key (email)=(x@y.com) already exists.`
var duplicateDetailPattern = regexp.MustCompile(`\([^)]*\)=\((.*)\)`)

// ErrorHandler is the single funnel every upstream failure reaches. It
// normalizes raw store, validation and token errors into the operational
// error shape and is the only place a response body for a failure is built.
func ErrorHandler(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		appErr := Normalize(c.Errors.Last().Err)

		if !appErr.IsOperational {
			logger.Error("unclassified failure",
				zap.String("request_id", GetRequestID(c)),
				zap.String("path", c.Request.URL.Path),
				zap.String("method", c.Request.Method),
				zap.Error(appErr.Err),
			)
		}

		if cfg.Server.IsProduction() {
			sendProduction(c, appErr)
			return
		}
		sendDevelopment(c, appErr)
	}
}

// Normalize translates known raw failure shapes into operational errors.
// Anything unrecognized becomes an unclassified 500.
func Normalize(err error) *apperror.Error {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.New(apperror.KindNotFound, http.StatusNotFound,
			"no document found with that id")
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return apperror.New(apperror.KindDuplicateValue, http.StatusBadRequest,
				duplicateMessage(pgErr))
		case pgInvalidTextRepr:
			return apperror.New(apperror.KindInvalidIdentifier, http.StatusBadRequest,
				"invalid identifier")
		}
	}

	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		messages := make([]string, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			messages = append(messages, fmt.Sprintf("field %s failed on the '%s' rule",
				strings.ToLower(fieldErr.Field()), fieldErr.Tag()))
		}
		return apperror.New(apperror.KindValidationFailed, http.StatusBadRequest,
			"invalid input data: "+strings.Join(messages, ", "))
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return apperror.New(apperror.KindExpiredToken, http.StatusUnauthorized,
			"your token has expired, please log in again")
	}
	if errors.Is(err, jwt.ErrTokenMalformed) ||
		errors.Is(err, jwt.ErrTokenSignatureInvalid) ||
		errors.Is(err, jwt.ErrSignatureInvalid) {
		return apperror.New(apperror.KindInvalidToken, http.StatusUnauthorized,
			"invalid token, please log in again")
	}

	return apperror.Wrap(err)
}

func duplicateMessage(pgErr *pgconn.PgError) string {
	if m := duplicateDetailPattern.FindStringSubmatch(pgErr.Detail); m != nil {
		return "duplicate value: " + m[1]
	}
	return "duplicate field value"
}

func sendDevelopment(c *gin.Context, appErr *apperror.Error) {
	body := gin.H{
		"status":  appErr.Status(),
		"message": appErr.Message,
		"stack":   appErr.Stack(),
	}
	if appErr.Err != nil {
		body["error"] = appErr.Err.Error()
	}
	c.JSON(appErr.StatusCode, body)
}

func sendProduction(c *gin.Context, appErr *apperror.Error) {
	if appErr.IsOperational {
		c.JSON(appErr.StatusCode, gin.H{
			"status":  appErr.Status(),
			"message": appErr.Message,
		})
		return
	}

	// Internal detail never leaks outside development mode.
	c.JSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"message": "something went very wrong",
	})
}
