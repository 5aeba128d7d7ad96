package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
)

// IncomeHandler serves the income list and every income write.
type IncomeHandler struct {
	Stats   *service.Stats
	Incomes *service.IncomeService
	Log     *slog.Logger
}

func NewIncomeHandler(stats *service.Stats, incomes *service.IncomeService, log *slog.Logger) *IncomeHandler {
	return &IncomeHandler{Stats: stats, Incomes: incomes, Log: log}
}

func listQuery(c *gin.Context, year int) service.ListQuery {
	return service.ListQuery{
		Year:  year,
		Month: queryInt(c, "month", 0),
		Day:   queryInt(c, "day", 0),
		Page:  queryInt(c, "page", 1),
		Query: strings.TrimSpace(c.Query("query")),
	}
}

// List GET /api/income
func (h *IncomeHandler) List(c *gin.Context) {
	year, ok := requireYear(c)
	if !ok {
		return
	}
	page, err := h.Stats.FilteredList(c.Request.Context(), listQuery(c, year))
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"data": page.Rows, "pagination": page.Pagination})
}

// Latest GET /api/income/latest
func (h *IncomeHandler) Latest(c *gin.Context) {
	year, ok := requireYear(c)
	if !ok {
		return
	}
	rows, err := h.Stats.Latest(c.Request.Context(), year, 5)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"data": rows})
}

// Dates GET /api/income/dates. With ?month= it lists days, otherwise
// month/day pairs.
func (h *IncomeHandler) Dates(c *gin.Context) {
	year, ok := requireYear(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	if month := queryInt(c, "month", 0); month > 0 {
		days, err := h.Stats.Days(ctx, year, month)
		if err != nil {
			respondError(c, h.Log, err)
			return
		}
		util.Success(c, util.Response{"days": days})
		return
	}
	opts, err := h.Stats.MonthDayOptions(ctx, year)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"dates": opts})
}

// SaveBatch POST /api/income/batch
func (h *IncomeHandler) SaveBatch(c *gin.Context) {
	var in service.BatchInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid request body.")
		return
	}
	n, err := h.Incomes.SaveBatch(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"count": n})
}

// Update PUT /api/income/:id
func (h *IncomeHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var in service.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "Invalid form values.")
		return
	}
	in.IncomeID = id

	memberID, err := h.Incomes.Update(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"memberId": memberID})
}

// Delete DELETE /api/income/:id
func (h *IncomeHandler) Delete(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Incomes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, nil)
}
