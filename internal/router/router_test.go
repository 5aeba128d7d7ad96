package router

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"finance-portal/internal/config"
	"finance-portal/internal/database"
	"finance-portal/internal/middleware"
	"finance-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type testApp struct {
	engine *gin.Engine
	db     *gorm.DB
	cfg    *config.Config
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server:   config.ServerConfig{Mode: gin.TestMode, Port: 8080, Env: "production"},
		Database: config.DatabaseConfig{Driver: config.DriverSQLite, Path: filepath.Join(dir, "app.db")},
		JWT:      config.JWTConfig{Secret: "router-test-secret", ExpireHours: 168},
		Security: config.SecurityConfig{BcryptCost: bcrypt.MinCost, EncryptionKey: "audit-key"},
		Backup:   config.BackupConfig{Dir: filepath.Join(dir, "backups")},
		App:      config.AppSubConfig{OrgName: "Grace Church"},
	}

	db, err := database.Init(cfg.Database)
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })

	hash, err := bcrypt.GenerateFromPassword([]byte("pa55word!"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&models.Admin{
		Email: "admin@grace.org", Name: "Admin", PasswordHash: string(hash), IsActive: true, Role: "admin",
	}).Error)

	clock := func() time.Time { return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC) }
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := SetupRouter(cfg, db, log, clock)
	require.NoError(t, err)
	return &testApp{engine: engine, db: db, cfg: cfg}
}

func (a *testApp) do(method, target, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(t *testing.T) *http.Cookie {
	t.Helper()
	w := a.do(http.MethodPost, "/api/auth/login", `{"email":"admin@grace.org","password":"pa55word!"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	for _, c := range w.Result().Cookies() {
		if c.Name == middleware.SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie")
	return nil
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestGate_RedirectsWithNext(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/income/list", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fincome%2Flist", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/api/stats/monthly?year=2024", "", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?next=%2Fapi%2Fstats%2Fmonthly%3Fyear%3D2024", w.Header().Get("Location"))

	w = app.do(http.MethodGet, "/", "", &http.Cookie{Name: middleware.SessionCookie, Value: "forged"})
	assert.Equal(t, http.StatusFound, w.Code)
}

func TestGate_PublicPaths(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodGet, "/login", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Grace Church")

	w = app.do(http.MethodGet, "/static/app.css", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// allow-listed but unrouted: passes the gate, then 404
	w = app.do(http.MethodGet, "/_next/chunk.js", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLogin(t *testing.T) {
	app := newTestApp(t)

	w := app.do(http.MethodPost, "/api/auth/login", `{"email":"admin@grace.org"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	wrong := app.do(http.MethodPost, "/api/auth/login", `{"email":"admin@grace.org","password":"nope"}`, nil)
	unknown := app.do(http.MethodPost, "/api/auth/login", `{"email":"who@grace.org","password":"pa55word!"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, wrong.Code)
	assert.Equal(t, wrong.Code, unknown.Code)
	assert.Equal(t, wrong.Body.String(), unknown.Body.String())
	assert.Equal(t, "Invalid credentials", decode(t, wrong)["error"])

	cookie := app.login(t)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, "/", cookie.Path)
	assert.Equal(t, 7*24*3600, cookie.MaxAge)
	assert.Equal(t, http.SameSiteLaxMode, cookie.SameSite)

	me := app.do(http.MethodGet, "/api/auth/me", "", cookie)
	require.Equal(t, http.StatusOK, me.Code)
	user := decode(t, me)["user"].(map[string]any)
	assert.Equal(t, "admin@grace.org", user["email"])

	out := app.do(http.MethodPost, "/api/auth/logout", "", cookie)
	require.Equal(t, http.StatusOK, out.Code)
	cleared := out.Result().Cookies()
	require.NotEmpty(t, cleared)
	assert.Equal(t, middleware.SessionCookie, cleared[0].Name)
	assert.True(t, cleared[0].MaxAge < 0)
}

func TestIncomeFlow(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t)

	tithe := models.Category{Name: "Tithe", Range: models.RangeIncomeType}
	cash := models.Category{Name: "Cash", Range: models.RangeIncomeMethod}
	require.NoError(t, app.db.Create(&tithe).Error)
	require.NoError(t, app.db.Create(&cash).Error)

	batch := `{"year":2024,"month":6,"day":2,"entries":[
		{"name":"Kim Min Su","amount":5000,"type":` + itoa(tithe.ID) + `,"method":` + itoa(cash.ID) + `},
		{"name":"","amount":100},
		{"name":"Lee","amount":0}
	]}`
	w := app.do(http.MethodPost, "/api/income/batch", batch, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode(t, w)["count"])

	w = app.do(http.MethodPost, "/api/income/batch", `{"year":2024,"month":6,"day":2,"entries":[]}`, cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No valid entries were provided.", decode(t, w)["error"])

	w = app.do(http.MethodGet, "/api/income?year=2024", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	rows := body["data"].([]any)
	require.Len(t, rows, 1)
	row := rows[0].(map[string]any)
	assert.Equal(t, "KimMinSu", row["name"])
	assert.Equal(t, "Tithe", row["type"])
	id := uint(row["id"].(float64))

	w = app.do(http.MethodGet, "/api/income", "", cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	update := `{"year":2024,"month":7,"day":1,"name":"Park","amount":7000,"typeId":` + itoa(tithe.ID) + `,"methodId":` + itoa(cash.ID) + `}`
	w = app.do(http.MethodPut, "/api/income/"+itoa(id), update, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodGet, "/api/stats/quarterly?year=2024", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	quarters := decode(t, w)["data"].([]any)
	assert.EqualValues(t, 7000, quarters[2].(map[string]any)["totalCents"])

	w = app.do(http.MethodDelete, "/api/income/"+itoa(id), "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	w = app.do(http.MethodDelete, "/api/income/"+itoa(id), "", cookie)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodDelete, "/api/income/abc", "", cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// mutations were audited with the admin attached
	var audits []models.AuditLog
	require.NoError(t, app.db.Find(&audits).Error)
	assert.GreaterOrEqual(t, len(audits), 4)
	for _, a := range audits {
		require.NotNil(t, a.AdminID)
	}
}

func TestExport(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t)

	w := app.do(http.MethodGet, "/api/income/export", "", cookie)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing year", w.Body.String())

	require.NoError(t, app.db.Create(&models.Income{Year: 2024, Month: 3, Day: 9, Amount: 12345}).Error)

	w = app.do(http.MethodGet, "/api/income/export?year=2024&month=3&query=kim", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), `income_2024_m03_filtered.xlsx`)
	assert.True(t, strings.HasPrefix(w.Body.String(), "PK"))

	w = app.do(http.MethodGet, "/api/income/export.csv?year=2024", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), `income_2024.csv`)
	assert.Contains(t, w.Body.String(), "2024-03-09")
	assert.Contains(t, w.Body.String(), "123.45")
}

func TestProfileDeactivate(t *testing.T) {
	app := newTestApp(t)
	cookie := app.login(t)

	w := app.do(http.MethodPost, "/api/profile", `{"name":"Treasurer"}`, cookie)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = app.do(http.MethodPost, "/api/profile/deactivate", "", cookie)
	require.Equal(t, http.StatusOK, w.Code)

	// token still verifies but the account is gone for profile routes and login
	w = app.do(http.MethodPost, "/api/profile", `{"name":"x"}`, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = app.do(http.MethodPost, "/api/auth/login", `{"email":"admin@grace.org","password":"pa55word!"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
