package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
)

type ReceiptHandler struct {
	Receipts *service.ReceiptService
	Log      *slog.Logger
}

func NewReceiptHandler(receipts *service.ReceiptService, log *slog.Logger) *ReceiptHandler {
	return &ReceiptHandler{Receipts: receipts, Log: log}
}

func (h *ReceiptHandler) taxYear(c *gin.Context) int {
	return queryInt(c, "year", h.Receipts.DefaultTaxYear())
}

// Stats GET /api/receipts/stats
func (h *ReceiptHandler) Stats(c *gin.Context) {
	st, err := h.Receipts.Stats(c.Request.Context(), h.taxYear(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"stats": st})
}

// Generate POST /api/receipts/:memberId?year=
func (h *ReceiptHandler) Generate(c *gin.Context) {
	memberID, ok := paramID(c, "memberId")
	if !ok {
		return
	}
	rec, pdf, err := h.Receipts.Generate(c.Request.Context(), memberID, h.taxYear(c))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"receipt_%d_%d.pdf\"", rec.Year, memberID))
	c.Header("Cache-Control", "no-store")
	c.Header("X-Receipt-Serial", rec.Serial)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
