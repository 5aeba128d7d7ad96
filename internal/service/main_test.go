package service

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"finance-portal/internal/config"
	"finance-portal/internal/database"
	"finance-portal/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var quietLog = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestDB opens a migrated sqlite file under t.TempDir. A file is used
// instead of :memory: so every pooled connection sees the same data.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Init(config.DatabaseConfig{
		Driver: config.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func intPtr(v int) *int { return &v }

func seedCategory(t *testing.T, db *gorm.DB, name string, r models.Range, order *int) models.Category {
	t.Helper()
	c := models.Category{Name: name, Range: r, Order: order}
	require.NoError(t, db.Create(&c).Error)
	return c
}

func seedMember(t *testing.T, db *gorm.DB, name string) models.Member {
	t.Helper()
	m := models.Member{NameFull: name}
	require.NoError(t, db.Create(&m).Error)
	return m
}

type incomeSeed struct {
	year, month, day int
	amount           int64
	typeID, methodID uint
	memberID         uint
}

func seedIncome(t *testing.T, db *gorm.DB, s incomeSeed) models.Income {
	t.Helper()
	inc := models.Income{
		Year:     s.year,
		Month:    s.month,
		Day:      s.day,
		Amount:   s.amount,
		TypeID:   optionalID(s.typeID),
		MethodID: optionalID(s.methodID),
		MemberID: optionalID(s.memberID),
	}
	require.NoError(t, db.Create(&inc).Error)
	return inc
}
