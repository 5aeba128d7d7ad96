package handler

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"finance-portal/internal/models"
	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet = "Income"
	xlsxMIME    = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeaders = []string{"ID", "Date", "Name", "Type", "Method", "Amount (cents)", "Amount ($)", "Notes", "Created"}

// ExportHandler streams the filtered income list as a spreadsheet.
type ExportHandler struct {
	Stats *service.Stats
	Log   *slog.Logger
}

func NewExportHandler(stats *service.Stats, log *slog.Logger) *ExportHandler {
	return &ExportHandler{Stats: stats, Log: log}
}

// exportFileName builds income_<year>[_m<MM>][_d<DD>][_filtered].<ext>.
func exportFileName(q service.ListQuery, ext string) string {
	name := "income_" + strconv.Itoa(q.Year)
	if q.Month > 0 {
		name += "_m" + util.Pad2(q.Month)
	}
	if q.Day > 0 {
		name += "_d" + util.Pad2(q.Day)
	}
	if q.Query != "" {
		name += "_filtered"
	}
	return name + "." + ext
}

func exportDate(r models.IncomeListRow) string {
	return fmt.Sprintf("%04d-%s-%s", r.Year, util.Pad2(r.Month), util.Pad2(r.Day))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// exportRows resolves the query and loads the rows. Missing year is a
// plain-text 400, as the download is opened directly by the browser.
func (h *ExportHandler) exportRows(c *gin.Context) (service.ListQuery, []models.IncomeListRow, bool) {
	year := queryInt(c, "year", 0)
	if util.ValidateYear(year) != nil {
		c.String(http.StatusBadRequest, "Missing year")
		return service.ListQuery{}, nil, false
	}
	q := listQuery(c, year)
	rows, err := h.Stats.ExportRows(c.Request.Context(), q)
	if err != nil {
		h.Log.ErrorContext(c.Request.Context(), "export rows", "error", err)
		c.String(http.StatusInternalServerError, genericServerError)
		return service.ListQuery{}, nil, false
	}
	return q, rows, true
}

func attachment(c *gin.Context, mime, fileName string) {
	c.Header("Content-Type", mime)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", fileName))
	c.Header("Cache-Control", "no-store")
}

// buildWorkbook writes rows into a single-sheet workbook with a bold,
// frozen header row.
func buildWorkbook(rows []models.IncomeListRow) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	money := "$#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &money})
	if err != nil {
		return nil, err
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return nil, err
	}
	if err := sw.SetPanes(&excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return nil, err
	}
	for i, w := range []float64{8, 12, 20, 16, 16, 14, 14, 30, 12} {
		if err := sw.SetColWidth(i+1, i+1, w); err != nil {
			return nil, err
		}
	}

	header := make([]interface{}, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = excelize.Cell{StyleID: bold, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, err
	}

	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := sw.SetRow(cell, []interface{}{
			r.ID,
			exportDate(r),
			deref(r.Name),
			deref(r.Type),
			deref(r.Method),
			r.Amount,
			excelize.Cell{StyleID: moneyStyle, Value: float64(r.Amount) / 100},
			deref(r.Notes),
			r.CreatedAt.Format("2006-01-02"),
		}); err != nil {
			return nil, err
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, err
	}
	return f, nil
}

// XLSX GET /api/income/export
func (h *ExportHandler) XLSX(c *gin.Context) {
	q, rows, ok := h.exportRows(c)
	if !ok {
		return
	}
	f, err := buildWorkbook(rows)
	if err != nil {
		h.Log.ErrorContext(c.Request.Context(), "build workbook", "error", err)
		c.String(http.StatusInternalServerError, genericServerError)
		return
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		h.Log.ErrorContext(c.Request.Context(), "write workbook", "error", err)
		c.String(http.StatusInternalServerError, genericServerError)
		return
	}
	attachment(c, xlsxMIME, exportFileName(q, "xlsx"))
	c.Data(http.StatusOK, xlsxMIME, buf.Bytes())
}

// CSV GET /api/income/export.csv
func (h *ExportHandler) CSV(c *gin.Context) {
	q, rows, ok := h.exportRows(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	// BOM so spreadsheet apps detect UTF-8
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	w := csv.NewWriter(&buf)
	_ = w.Write(exportHeaders)
	for _, r := range rows {
		_ = w.Write([]string{
			strconv.FormatUint(uint64(r.ID), 10),
			exportDate(r),
			deref(r.Name),
			deref(r.Type),
			deref(r.Method),
			strconv.FormatInt(r.Amount, 10),
			strconv.FormatFloat(float64(r.Amount)/100, 'f', 2, 64),
			deref(r.Notes),
			r.CreatedAt.Format("2006-01-02"),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		h.Log.ErrorContext(c.Request.Context(), "write csv", "error", err)
		c.String(http.StatusInternalServerError, genericServerError)
		return
	}
	attachment(c, "text/csv; charset=utf-8", exportFileName(q, "csv"))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
