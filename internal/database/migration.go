package database

import (
	"fmt"

	"finance-portal/internal/models"

	"gorm.io/gorm"
)

const incomeListView = `CREATE VIEW income_list AS
SELECT
	i.id         AS id,
	i.year       AS year,
	i.month      AS month,
	i.day        AS day,
	i.quarter    AS quarter,
	i.amount     AS amount,
	i.notes      AS notes,
	i.member_id  AS member_id,
	m.name_full  AS name,
	i.type_id    AS type_id,
	t.name       AS type,
	i.method_id  AS method_id,
	md.name      AS method,
	i.created_at AS created_at
FROM incomes i
LEFT JOIN members m     ON m.id = i.member_id
LEFT JOIN categories t  ON t.id = i.type_id
LEFT JOIN categories md ON md.id = i.method_id`

// AutoMigrate runs database schema migrations for all models and
// (re)creates the income_list view.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Admin{},
		&models.Category{},
		&models.Member{},
		&models.Income{},
		&models.Receipt{},
		&models.AuditLog{},
		&models.Backup{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := db.Exec("DROP VIEW IF EXISTS income_list").Error; err != nil {
		return fmt.Errorf("drop income_list view: %w", err)
	}
	if err := db.Exec(incomeListView).Error; err != nil {
		return fmt.Errorf("create income_list view: %w", err)
	}
	return nil
}
