package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finance-portal/internal/models"
	"finance-portal/internal/util"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var validate = validator.New()

// IncomeService owns every write to the incomes table.
type IncomeService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewIncomeService(db *gorm.DB, log *slog.Logger) *IncomeService {
	if log == nil {
		log = slog.Default()
	}
	return &IncomeService{db: db, log: log}
}

// ---------- batch entry ----------

type BatchEntry struct {
	Name     string `json:"name"`
	Amount   int64  `json:"amount"` // cents
	TypeID   uint   `json:"type"`
	MethodID uint   `json:"method"`
	Note     string `json:"note"`
}

type BatchInput struct {
	Year    int          `json:"year"`
	Month   int          `json:"month"`
	Day     int          `json:"day"`
	Entries []BatchEntry `json:"entries"`
}

func optionalID(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

func optionalText(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// SaveBatch stores every entry with a name and an amount in range under one
// date. Rows that hit the dedup index are skipped by the store; the returned
// count is the number of rows attempted.
func (s *IncomeService) SaveBatch(ctx context.Context, in BatchInput) (int, error) {
	if util.ValidateYear(in.Year) != nil || util.ValidateMonth(in.Month) != nil || util.ValidateDay(in.Day) != nil {
		return 0, validationf("Invalid date values.")
	}

	type keep struct {
		name  string
		entry BatchEntry
	}
	kept := make([]keep, 0, len(in.Entries))
	for _, e := range in.Entries {
		name := util.NormalizeName(e.Name)
		if name == "" || util.ValidateAmountCents(e.Amount) != nil {
			continue
		}
		kept = append(kept, keep{name: name, entry: e})
	}
	if len(kept) == 0 {
		return 0, validationf("No valid entries were provided.")
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		names := make([]string, 0, len(kept))
		for _, k := range kept {
			names = append(names, k.name)
		}
		ids, err := ensureMembers(tx, names)
		if err != nil {
			return err
		}

		rows := make([]models.Income, 0, len(kept))
		for _, k := range kept {
			memberID := ids[k.name]
			rows = append(rows, models.Income{
				Year:     in.Year,
				Month:    in.Month,
				Day:      in.Day,
				Quarter:  models.QuarterOf(in.Month),
				Amount:   k.entry.Amount,
				TypeID:   optionalID(k.entry.TypeID),
				MethodID: optionalID(k.entry.MethodID),
				Notes:    optionalText(k.entry.Note),
				MemberID: &memberID,
			})
		}

		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	})
	if err != nil {
		s.log.ErrorContext(ctx, "batch save", "year", in.Year, "month", in.Month, "day", in.Day, "error", err)
		return 0, fmt.Errorf("batch save: %w", err)
	}

	s.log.InfoContext(ctx, "batch saved", "rows", len(kept), "year", in.Year, "month", in.Month, "day", in.Day)
	return len(kept), nil
}

// ensureMembers makes sure a member exists for every name and returns
// name -> id. Missing members are inserted in one statement; names another
// writer inserted first are picked up by the final read.
func ensureMembers(tx *gorm.DB, names []string) (map[string]uint, error) {
	seen := make(map[string]struct{}, len(names))
	list := make([]string, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; !ok {
			seen[n] = struct{}{}
			list = append(list, n)
		}
	}

	load := func() (map[string]uint, error) {
		var ms []models.Member
		if err := tx.Select("id", "name_full").Where("name_full IN ?", list).Find(&ms).Error; err != nil {
			return nil, fmt.Errorf("load members: %w", err)
		}
		out := make(map[string]uint, len(ms))
		for _, m := range ms {
			out[m.NameFull] = m.ID
		}
		return out, nil
	}

	ids, err := load()
	if err != nil {
		return nil, err
	}
	var missing []models.Member
	for _, n := range list {
		if _, ok := ids[n]; !ok {
			missing = append(missing, models.Member{NameFull: n})
		}
	}
	if len(missing) == 0 {
		return ids, nil
	}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&missing).Error; err != nil {
		return nil, fmt.Errorf("create members: %w", err)
	}
	if ids, err = load(); err != nil {
		return nil, err
	}
	for _, n := range list {
		if _, ok := ids[n]; !ok {
			return nil, fmt.Errorf("%w: member %q missing after insert", ErrConflict, n)
		}
	}
	return ids, nil
}

// ---------- single record ----------

type UpdateInput struct {
	IncomeID uint    `json:"incId" validate:"gt=0"`
	Year     int     `json:"year" validate:"min=1900,max=9999"`
	Month    int     `json:"month" validate:"min=1,max=12"`
	Day      int     `json:"day" validate:"min=1,max=31"`
	Name     string  `json:"name" validate:"required"`
	Amount   int64   `json:"amount" validate:"gt=0"`
	TypeID   uint    `json:"typeId" validate:"gt=0"`
	MethodID uint    `json:"methodId" validate:"gt=0"`
	Note     *string `json:"note"`
}

// Update rewrites one income record and links it to the member named in the
// input, creating that member if needed. Member resolution and the update
// commit together or not at all.
func (s *IncomeService) Update(ctx context.Context, in UpdateInput) (uint, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate.Struct(in); err != nil || util.ValidateAmountCents(in.Amount) != nil {
		return 0, validationf("Invalid form values.")
	}
	name := util.NormalizeName(in.Name)

	var memberID uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		id, err := resolveMemberID(name, findMember(tx), createMember(tx))
		if err != nil {
			return err
		}
		memberID = id

		var inc models.Income
		if err := tx.First(&inc, in.IncomeID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		inc.Year = in.Year
		inc.Month = in.Month
		inc.Day = in.Day
		inc.Amount = in.Amount
		inc.TypeID = optionalID(in.TypeID)
		inc.MethodID = optionalID(in.MethodID)
		inc.Notes = nil
		if in.Note != nil {
			inc.Notes = optionalText(*in.Note)
		}
		inc.MemberID = &memberID

		// BeforeSave recomputes the quarter
		return tx.Omit(clause.Associations).Save(&inc).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, err
		}
		s.log.ErrorContext(ctx, "update income", "income_id", in.IncomeID, "error", err)
		return 0, fmt.Errorf("update income: %w", err)
	}
	return memberID, nil
}

// Delete removes one income record.
func (s *IncomeService) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return validationf("invalid id")
	}
	res := s.db.WithContext(ctx).Delete(&models.Income{}, id)
	if res.Error != nil {
		s.log.ErrorContext(ctx, "delete income", "income_id", id, "error", res.Error)
		return fmt.Errorf("delete income: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
