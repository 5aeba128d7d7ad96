package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"finance-portal/internal/models"
	"finance-portal/internal/util"

	"gorm.io/gorm"
)

const (
	defaultLogPageSize = 20
	maxLogPageSize     = 100
)

// AuditService records and reads the encrypted admin audit trail.
type AuditService struct {
	db         *gorm.DB
	encryptKey string
	log        *slog.Logger
}

func NewAuditService(db *gorm.DB, encryptKey string, log *slog.Logger) *AuditService {
	if log == nil {
		log = slog.Default()
	}
	return &AuditService{db: db, encryptKey: encryptKey, log: log}
}

// AuditEntry is one recorded operation before encryption.
type AuditEntry struct {
	AdminID   uint
	Method    string
	Path      string
	Action    string
	Status    int
	IP        string
	UserAgent string
}

// Record stores e with path and action encrypted.
func (s *AuditService) Record(ctx context.Context, e AuditEntry) error {
	encPath, err := util.EncryptField(s.encryptKey, e.Path)
	if err != nil {
		return fmt.Errorf("encrypt path: %w", err)
	}
	encAction, err := util.EncryptField(s.encryptKey, e.Action)
	if err != nil {
		return fmt.Errorf("encrypt action: %w", err)
	}
	row := models.AuditLog{
		PathEnc:   encPath,
		Method:    e.Method,
		ActionEnc: encAction,
		Status:    e.Status,
		IP:        e.IP,
		UserAgent: e.UserAgent,
	}
	if e.AdminID != 0 {
		id := e.AdminID
		row.AdminID = &id
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.ErrorContext(ctx, "record audit", "error", err)
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

type LogQuery struct {
	Page  int
	Size  int
	Start string // YYYY-MM-DD, inclusive
	End   string // YYYY-MM-DD, inclusive
	Query string
}

type LogItem struct {
	ID        uint      `json:"id"`
	AdminID   *uint     `json:"adminId"`
	Method    string    `json:"method"`
	Path      string    `json:"path"`
	Action    string    `json:"action"`
	Status    int       `json:"status"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"userAgent"`
	CreatedAt time.Time `json:"createdAt"`
}

type LogPage struct {
	Items []LogItem `json:"items"`
	Total int64     `json:"total"`
	Page  int       `json:"page"`
	Size  int       `json:"size"`
}

// List pages through the audit trail, newest first. The keyword filter runs
// after decryption, so it only narrows the current page.
func (s *AuditService) List(ctx context.Context, q LogQuery) (LogPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > maxLogPageSize {
		q.Size = defaultLogPageSize
	}

	base := s.db.WithContext(ctx).Model(&models.AuditLog{})
	if q.Start != "" {
		t, err := time.Parse(time.DateOnly, q.Start)
		if err != nil {
			return LogPage{}, validationf("invalid start date")
		}
		base = base.Where("created_at >= ?", t)
	}
	if q.End != "" {
		t, err := time.Parse(time.DateOnly, q.End)
		if err != nil {
			return LogPage{}, validationf("invalid end date")
		}
		base = base.Where("created_at < ?", t.Add(24*time.Hour))
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		s.log.ErrorContext(ctx, "count audit", "error", err)
		return LogPage{}, fmt.Errorf("count audit: %w", err)
	}

	var rows []models.AuditLog
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(q.Size).
		Offset((q.Page - 1) * q.Size).
		Find(&rows).Error; err != nil {
		s.log.ErrorContext(ctx, "list audit", "error", err)
		return LogPage{}, fmt.Errorf("list audit: %w", err)
	}

	kw := strings.ToLower(strings.TrimSpace(q.Query))
	items := make([]LogItem, 0, len(rows))
	for _, r := range rows {
		it := LogItem{
			ID:        r.ID,
			AdminID:   r.AdminID,
			Method:    r.Method,
			Path:      util.DecryptField(s.encryptKey, r.PathEnc),
			Action:    util.DecryptField(s.encryptKey, r.ActionEnc),
			Status:    r.Status,
			IP:        r.IP,
			UserAgent: r.UserAgent,
			CreatedAt: r.CreatedAt,
		}
		if kw != "" && !strings.Contains(strings.ToLower(it.Path), kw) && !strings.Contains(strings.ToLower(it.Action), kw) {
			continue
		}
		items = append(items, it)
	}
	return LogPage{Items: items, Total: total, Page: q.Page, Size: q.Size}, nil
}
