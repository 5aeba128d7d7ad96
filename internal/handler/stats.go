package handler

import (
	"log/slog"
	"net/http"

	"finance-portal/internal/models"
	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// StatsHandler exposes the aggregation read model.
type StatsHandler struct {
	Stats *service.Stats
	Log   *slog.Logger
}

func NewStatsHandler(stats *service.Stats, log *slog.Logger) *StatsHandler {
	return &StatsHandler{Stats: stats, Log: log}
}

// Summary GET /api/stats/summary
func (h *StatsHandler) Summary(c *gin.Context) {
	year, ok := requireYear(c)
	if !ok {
		return
	}

	var (
		totals service.CategoryTotals
		kpi    service.KPI
	)
	g, ctx := errgroup.WithContext(c.Request.Context())
	g.Go(func() (err error) {
		totals, err = h.Stats.TotalsByCategory(ctx, year)
		return err
	})
	g.Go(func() (err error) {
		kpi, err = h.Stats.KPIs(ctx, year)
		return err
	})
	if err := g.Wait(); err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"year": year, "totals": totals, "kpi": kpi})
}

// Monthly GET /api/stats/monthly
func (h *StatsHandler) Monthly(c *gin.Context) {
	year, ok := requireYear(c)
	if !ok {
		return
	}
	rows, err := h.Stats.MonthlyTotals(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"data": rows})
}

// Quarterly GET /api/stats/quarterly
func (h *StatsHandler) Quarterly(c *gin.Context) {
	year, ok := requireYear(c)
	if !ok {
		return
	}
	rows, err := h.Stats.QuarterlyTotals(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"data": rows})
}

// ByType GET /api/stats/by-type
func (h *StatsHandler) ByType(c *gin.Context) {
	year, ok := requireYear(c)
	if !ok {
		return
	}
	rows, err := h.Stats.BreakdownByType(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"data": rows})
}

// ByMethod GET /api/stats/by-method
func (h *StatsHandler) ByMethod(c *gin.Context) {
	year, ok := requireYear(c)
	if !ok {
		return
	}
	rows, err := h.Stats.BreakdownByMethod(c.Request.Context(), year)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"data": rows})
}

// Categories GET /api/categories?range=inc|imd
func (h *StatsHandler) Categories(c *gin.Context) {
	r, err := models.ParseRange(c.DefaultQuery("range", string(models.RangeIncomeType)))
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Unknown category range")
		return
	}
	cats, err := h.Stats.Categories(c.Request.Context(), r)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	items := make([]gin.H, 0, len(cats))
	for _, cat := range cats {
		items = append(items, gin.H{
			"id":     cat.ID,
			"name":   cat.Name,
			"detail": cat.Detail,
			"order":  cat.Order,
		})
	}
	util.Success(c, util.Response{"data": items})
}
