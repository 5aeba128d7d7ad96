package handler

import (
	"log/slog"

	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
)

// LogHandler serves the audit trail.
type LogHandler struct {
	Audit *service.AuditService
	Log   *slog.Logger
}

func NewLogHandler(audit *service.AuditService, log *slog.Logger) *LogHandler {
	return &LogHandler{Audit: audit, Log: log}
}

// ListLogs GET /api/logs?page=&page_size=&start=&end=&q=
func (h *LogHandler) ListLogs(c *gin.Context) {
	page, err := h.Audit.List(c.Request.Context(), service.LogQuery{
		Page:  queryInt(c, "page", 1),
		Size:  queryInt(c, "page_size", 0),
		Start: c.Query("start"),
		End:   c.Query("end"),
		Query: c.Query("q"),
	})
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{
		"items": page.Items,
		"total": page.Total,
		"page":  page.Page,
		"size":  page.Size,
	})
}
