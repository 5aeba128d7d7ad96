package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"finance-portal/internal/models"
	"finance-portal/internal/util"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BackupService writes and restores encrypted snapshots of the ledger tables.
type BackupService struct {
	db         *gorm.DB
	encryptKey string
	dir        string
	now        Clock
	log        *slog.Logger
}

func NewBackupService(db *gorm.DB, encryptKey, dir string, now Clock, log *slog.Logger) *BackupService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &BackupService{db: db, encryptKey: encryptKey, dir: dir, now: now, log: log}
}

// snapshot is the plaintext layout of a backup file.
type snapshot struct {
	Created    time.Time         `json:"created"`
	Categories []models.Category `json:"categories"`
	Members    []models.Member   `json:"members"`
	Incomes    []models.Income   `json:"incomes"`
}

// RestoreResult reports how many rows a restore wrote.
type RestoreResult struct {
	Categories int `json:"categories"`
	Members    int `json:"members"`
	Incomes    int `json:"incomes"`
}

// Create snapshots categories, members and incomes into a new file.
func (s *BackupService) Create(ctx context.Context, adminID uint) (models.Backup, error) {
	snap := snapshot{Created: s.now()}
	db := s.db.WithContext(ctx)
	if err := db.Order("id ASC").Find(&snap.Categories).Error; err != nil {
		return models.Backup{}, s.fail(ctx, "read categories", err)
	}
	if err := db.Order("id ASC").Find(&snap.Members).Error; err != nil {
		return models.Backup{}, s.fail(ctx, "read members", err)
	}
	if err := db.Order("id ASC").Find(&snap.Incomes).Error; err != nil {
		return models.Backup{}, s.fail(ctx, "read incomes", err)
	}

	raw, err := json.Marshal(&snap)
	if err != nil {
		return models.Backup{}, s.fail(ctx, "encode snapshot", err)
	}
	enc, err := util.EncryptAES(s.encryptKey, raw)
	if err != nil {
		return models.Backup{}, s.fail(ctx, "encrypt snapshot", err)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return models.Backup{}, s.fail(ctx, "create backup dir", err)
	}
	fileName := fmt.Sprintf("backup-%s-%s.bin", snap.Created.Format("20060102"), uuid.NewString())
	filePath := filepath.Join(s.dir, fileName)
	if err := os.WriteFile(filePath, enc, 0o600); err != nil {
		return models.Backup{}, s.fail(ctx, "write backup", err)
	}

	b := models.Backup{
		AdminID:  adminID,
		FileName: fileName,
		FilePath: filePath,
		Size:     int64(len(enc)),
	}
	if err := db.Create(&b).Error; err != nil {
		_ = os.Remove(filePath)
		return models.Backup{}, s.fail(ctx, "record backup", err)
	}
	s.log.InfoContext(ctx, "backup created", "backup_id", b.ID, "incomes", len(snap.Incomes))
	return b, nil
}

// List returns every backup, newest first.
func (s *BackupService) List(ctx context.Context) ([]models.Backup, error) {
	list := make([]models.Backup, 0)
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&list).Error; err != nil {
		return nil, s.fail(ctx, "list backups", err)
	}
	return list, nil
}

// Get loads one backup record.
func (s *BackupService) Get(ctx context.Context, id uint) (models.Backup, error) {
	var b models.Backup
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Backup{}, ErrNotFound
		}
		return models.Backup{}, s.fail(ctx, "load backup", err)
	}
	return b, nil
}

// Delete removes the file first, then the record.
func (s *BackupService) Delete(ctx context.Context, id uint) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := os.Remove(b.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.WarnContext(ctx, "remove backup file", "path", b.FilePath, "error", err)
	}
	if err := s.db.WithContext(ctx).Delete(&b).Error; err != nil {
		return s.fail(ctx, "delete backup", err)
	}
	return nil
}

// Restore replaces categories, members and incomes with the snapshot in
// backup id. Primary keys are kept so receipts stay attached to members.
func (s *BackupService) Restore(ctx context.Context, id uint) (RestoreResult, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return RestoreResult{}, err
	}
	enc, err := os.ReadFile(b.FilePath)
	if err != nil {
		return RestoreResult{}, s.fail(ctx, "read backup", err)
	}
	raw, err := util.DecryptAES(s.encryptKey, enc)
	if err != nil {
		return RestoreResult{}, validationf("backup file cannot be decrypted")
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return RestoreResult{}, validationf("backup file is corrupt")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// receipts cascade with members; keep the ones whose member survives
		var receipts []models.Receipt
		if err := tx.Find(&receipts).Error; err != nil {
			return err
		}

		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.Income{}, &models.Receipt{}, &models.Member{}, &models.Category{}} {
			if err := all.Delete(model).Error; err != nil {
				return err
			}
		}

		if len(snap.Categories) > 0 {
			if err := tx.CreateInBatches(&snap.Categories, 200).Error; err != nil {
				return err
			}
		}
		if len(snap.Members) > 0 {
			if err := tx.CreateInBatches(&snap.Members, 200).Error; err != nil {
				return err
			}
		}
		if len(snap.Incomes) > 0 {
			if err := tx.Omit(clause.Associations).CreateInBatches(&snap.Incomes, 200).Error; err != nil {
				return err
			}
		}

		known := make(map[uint]struct{}, len(snap.Members))
		for _, m := range snap.Members {
			known[m.ID] = struct{}{}
		}
		kept := receipts[:0]
		for _, r := range receipts {
			if _, ok := known[r.MemberID]; ok {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			if err := tx.Omit(clause.Associations).CreateInBatches(&kept, 200).Error; err != nil {
				return err
			}
		}
		return resetSequences(tx, "categories", "members", "incomes", "receipts")
	})
	if err != nil {
		return RestoreResult{}, s.fail(ctx, "restore backup", err)
	}

	res := RestoreResult{
		Categories: len(snap.Categories),
		Members:    len(snap.Members),
		Incomes:    len(snap.Incomes),
	}
	s.log.InfoContext(ctx, "backup restored", "backup_id", id, "incomes", res.Incomes)
	return res, nil
}

// resetSequences moves postgres id sequences past rows inserted with
// explicit keys. sqlite needs nothing.
func resetSequences(tx *gorm.DB, tables ...string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	for _, t := range tables {
		q := fmt.Sprintf(
			"SELECT setval(pg_get_serial_sequence('%[1]s', 'id'), COALESCE((SELECT MAX(id) FROM %[1]s), 0) + 1, false)", t)
		if err := tx.Exec(q).Error; err != nil {
			return fmt.Errorf("reset %s sequence: %w", t, err)
		}
	}
	return nil
}

func (s *BackupService) fail(ctx context.Context, op string, err error) error {
	s.log.ErrorContext(ctx, op, "error", err)
	return fmt.Errorf("%s: %w", op, err)
}
