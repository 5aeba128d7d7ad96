package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"finance-portal/internal/middleware"
	"finance-portal/internal/models"
	"finance-portal/internal/service"
	"finance-portal/internal/util"

	"github.com/gin-gonic/gin"
)

// BackupHandler serves the backup endpoints.
type BackupHandler struct {
	Backups *service.BackupService
	Log     *slog.Logger
}

func NewBackupHandler(backups *service.BackupService, log *slog.Logger) *BackupHandler {
	return &BackupHandler{Backups: backups, Log: log}
}

func backupJSON(b models.Backup) gin.H {
	return gin.H{
		"id":         b.ID,
		"file_name":  b.FileName,
		"size":       b.Size,
		"created_at": b.CreatedAt,
	}
}

// CreateBackup POST /api/backups
func (h *BackupHandler) CreateBackup(c *gin.Context) {
	cred, ok := middleware.CurrentCredential(c)
	if !ok {
		util.Error(c, http.StatusUnauthorized, util.CodeAuth, "Not signed in")
		return
	}
	adminID, err := cred.AdminID()
	if err != nil {
		respondError(c, h.Log, err)
		return
	}

	b, err := h.Backups.Create(c.Request.Context(), adminID)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"backup": backupJSON(b)})
}

// ListBackups GET /api/backups
func (h *BackupHandler) ListBackups(c *gin.Context) {
	list, err := h.Backups.List(c.Request.Context())
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	items := make([]gin.H, 0, len(list))
	for _, b := range list {
		items = append(items, backupJSON(b))
	}
	util.Success(c, util.Response{"items": items})
}

// DownloadBackup GET /api/backups/:id/download
func (h *BackupHandler) DownloadBackup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	b, err := h.Backups.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	c.Header("Content-Type", "application/octet-stream")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", b.FileName))
	c.File(b.FilePath)
}

// DeleteBackup DELETE /api/backups/:id
func (h *BackupHandler) DeleteBackup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.Backups.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, nil)
}

// RestoreBackup POST /api/backups/:id/restore
func (h *BackupHandler) RestoreBackup(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	res, err := h.Backups.Restore(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.Log, err)
		return
	}
	util.Success(c, util.Response{"restored": res})
}
