package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Success writes the uniform success envelope.
func Success(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"status": "success",
		"data":   data,
	})
}

// SuccessList includes the result count alongside the envelope.
func SuccessList(c *gin.Context, results int, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"results": results,
		"data":    data,
	})
}

// NoContent writes the empty-body deletion response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
