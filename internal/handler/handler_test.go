package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"finance-portal/internal/models"
	"finance-portal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestExportFileName(t *testing.T) {
	cases := []struct {
		q    service.ListQuery
		want string
	}{
		{service.ListQuery{Year: 2024}, "income_2024.xlsx"},
		{service.ListQuery{Year: 2024, Month: 3}, "income_2024_m03.xlsx"},
		{service.ListQuery{Year: 2024, Month: 11, Day: 5}, "income_2024_m11_d05.xlsx"},
		{service.ListQuery{Year: 2024, Day: 7, Query: "kim"}, "income_2024_d07_filtered.xlsx"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, exportFileName(tc.q, "xlsx"))
	}
}

func TestRespondError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{&service.ValidationError{Message: "Invalid date values."}, http.StatusBadRequest, "Invalid date values."},
		{fmt.Errorf("wrapped: %w", service.ErrNotFound), http.StatusNotFound, "Not found"},
		{service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{errors.New("sqlite: disk I/O error"), http.StatusInternalServerError, genericServerError},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, log, tc.err)

		assert.Equal(t, tc.status, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, tc.msg, body["error"])
	}
}

func TestBuildWorkbook(t *testing.T) {
	name, typ := "KimMinSu", "Tithe"
	rows := []models.IncomeListRow{
		{ID: 1, Year: 2024, Month: 2, Day: 4, Amount: 123456, Name: &name, Type: &typ, CreatedAt: time.Date(2024, 2, 5, 0, 0, 0, 0, time.UTC)},
	}
	built, err := buildWorkbook(rows)
	require.NoError(t, err)
	var buf bytes.Buffer
	require.NoError(t, built.Write(&buf))
	require.NoError(t, built.Close())

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	header, err := f.GetCellValue(exportSheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)

	date, err := f.GetCellValue(exportSheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-04", date)

	amount, err := f.GetCellValue(exportSheet, "G2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "1234.56", amount)

	panes, err := f.GetPanes(exportSheet)
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}
