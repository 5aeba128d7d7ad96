package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response holds the extra top-level fields of a success body.
type Response map[string]interface{}

// business error codes
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeNotFound     = 40401
	CodeServerErr    = 50001
)

// Success writes {"ok":true, ...data}.
func Success(c *gin.Context, data Response) {
	body := gin.H{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Error writes {"ok":false,"code":code,"error":msg}.
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"ok":    false,
		"code":  code,
		"error": msg,
	})
}
