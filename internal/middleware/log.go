package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"finance-portal/internal/service"

	"github.com/gin-gonic/gin"
)

const maxAuditBody = 2000

// Audit records every signed-in mutation under /api. Bodies of password
// routes are never stored.
func Audit(audit *service.AuditService, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		path := c.Request.URL.Path
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions ||
			!strings.HasPrefix(path, "/api/") {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil && !strings.Contains(path, "password") {
			body, _ = io.ReadAll(io.LimitReader(c.Request.Body, maxAuditBody+1))
			rest := c.Request.Body
			c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(body), rest))
		}

		c.Next()

		cred, ok := CurrentCredential(c)
		if !ok {
			return
		}
		adminID, _ := cred.AdminID()

		action := method + " " + path
		if len(body) > 0 && len(body) <= maxAuditBody {
			action += " " + string(body)
		}

		err := audit.Record(c.Request.Context(), service.AuditEntry{
			AdminID:   adminID,
			Method:    method,
			Path:      path,
			Action:    action,
			Status:    c.Writer.Status(),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		})
		if err != nil {
			log.WarnContext(c.Request.Context(), "audit record failed", "path", path, "error", err)
		}
	}
}
