package router

import (
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"finance-portal/internal/config"
	"finance-portal/internal/handler"
	"finance-portal/internal/logger"
	"finance-portal/internal/middleware"
	"finance-portal/internal/service"
	"finance-portal/web"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter builds the gin engine: pages, the session gate, the audit
// trail and every API route. now may be nil to use the wall clock.
func SetupRouter(cfg *config.Config, db *gorm.DB, log *slog.Logger, now service.Clock) (*gin.Engine, error) {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	if now == nil {
		now = time.Now
	}

	ttl := time.Duration(cfg.JWT.ExpireHours) * time.Hour
	auth, err := service.NewSessionAuthority(db, cfg.JWT.Secret, ttl, now, log)
	if err != nil {
		return nil, fmt.Errorf("session authority: %w", err)
	}

	stats := service.NewStats(db, now, log)
	incomes := service.NewIncomeService(db, log)
	members := service.NewMemberService(db, log)
	receipts := service.NewReceiptService(db, now, cfg.App.OrgName, log)
	backups := service.NewBackupService(db, cfg.Security.EncryptionKey, cfg.Backup.Dir, now, log)
	audit := service.NewAuditService(db, cfg.Security.EncryptionKey, log)
	profiles := service.NewProfileService(db, cfg.Security.BcryptCost, log)

	r := gin.New()
	r.Use(logger.GinMiddleware(log), gin.Recovery())

	tmpl, err := template.ParseFS(web.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)
	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static fs: %w", err)
	}

	// everything below is gated; the allow-list decides what stays public
	r.Use(middleware.SessionGate(auth, middleware.DefaultPublicPaths))
	r.StaticFS("/static", http.FS(static))

	page := func(name, title string) gin.HandlerFunc {
		return func(c *gin.Context) {
			c.HTML(http.StatusOK, name, gin.H{
				"title":   title + " - " + cfg.App.OrgName,
				"orgName": cfg.App.OrgName,
				"year":    now().Year(),
			})
		}
	}
	r.GET(middleware.LoginPath, page("login.html", "Sign in"))
	r.GET("/", page("dashboard.html", "Dashboard"))
	r.GET("/income", page("dashboard.html", "Income"))
	r.GET("/income/list", page("dashboard.html", "Income"))

	// ====== API ======
	api := r.Group("/api")
	api.Use(middleware.Audit(audit, log))

	authHandler := handler.NewAuthHandler(auth, cfg.Server.Production(), log)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/me", authHandler.Me)

	statsHandler := handler.NewStatsHandler(stats, log)
	api.GET("/stats/summary", statsHandler.Summary)
	api.GET("/stats/monthly", statsHandler.Monthly)
	api.GET("/stats/quarterly", statsHandler.Quarterly)
	api.GET("/stats/by-type", statsHandler.ByType)
	api.GET("/stats/by-method", statsHandler.ByMethod)
	api.GET("/categories", statsHandler.Categories)

	incomeHandler := handler.NewIncomeHandler(stats, incomes, log)
	exportHandler := handler.NewExportHandler(stats, log)
	api.GET("/income", incomeHandler.List)
	api.GET("/income/latest", incomeHandler.Latest)
	api.GET("/income/dates", incomeHandler.Dates)
	api.GET("/income/export", exportHandler.XLSX)
	api.GET("/income/export.csv", exportHandler.CSV)
	api.POST("/income/batch", incomeHandler.SaveBatch)
	api.PUT("/income/:id", incomeHandler.Update)
	api.DELETE("/income/:id", incomeHandler.Delete)

	memberHandler := handler.NewMemberHandler(members, log)
	api.GET("/members", memberHandler.List)

	receiptHandler := handler.NewReceiptHandler(receipts, log)
	api.GET("/receipts/stats", receiptHandler.Stats)
	api.POST("/receipts/:memberId", receiptHandler.Generate)

	backupHandler := handler.NewBackupHandler(backups, log)
	api.POST("/backups", backupHandler.CreateBackup)
	api.GET("/backups", backupHandler.ListBackups)
	api.GET("/backups/:id/download", backupHandler.DownloadBackup)
	api.POST("/backups/:id/restore", backupHandler.RestoreBackup)
	api.DELETE("/backups/:id", backupHandler.DeleteBackup)

	logHandler := handler.NewLogHandler(audit, log)
	api.GET("/logs", logHandler.ListLogs)

	profileHandler := handler.NewProfileHandler(profiles, authHandler, log)
	profile := api.Group("/profile", middleware.LoadAdmin(db))
	profile.POST("", profileHandler.UpdateProfile)
	profile.POST("/password", profileHandler.ChangePassword)
	profile.POST("/deactivate", profileHandler.Deactivate)

	return r, nil
}
