package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"finance-portal/internal/models"
	"finance-portal/internal/util"

	"gorm.io/gorm"
)

// MembersPerPage is the member directory page size.
const MembersPerPage = 24

// resolveMemberID finds the member id for a normalised name, creating the
// member when absent. A create that loses a race (duplicate key) is resolved
// by reading again; if that read still finds nothing the conflict is
// returned instead of retrying.
func resolveMemberID(
	name string,
	find func(name string) (uint, bool, error),
	create func(name string) (uint, error),
) (uint, error) {
	id, ok, err := find(name)
	if err != nil {
		return 0, fmt.Errorf("find member: %w", err)
	}
	if ok {
		return id, nil
	}

	id, createErr := create(name)
	if createErr == nil {
		return id, nil
	}
	if !errors.Is(createErr, gorm.ErrDuplicatedKey) {
		return 0, fmt.Errorf("create member: %w", createErr)
	}

	id, ok, err = find(name)
	if err != nil {
		return 0, fmt.Errorf("find member after conflict: %w", err)
	}
	if !ok {
		return 0, fmt.Errorf("%w: member %q: %v", ErrConflict, name, createErr)
	}
	return id, nil
}

// findMember looks a member up by normalised name inside tx.
func findMember(tx *gorm.DB) func(string) (uint, bool, error) {
	return func(name string) (uint, bool, error) {
		var m models.Member
		err := tx.Select("id").Where("name_full = ?", name).Take(&m).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		if err != nil {
			return 0, false, err
		}
		return m.ID, true, nil
	}
}

// createMember inserts inside a savepoint so a duplicate-key failure leaves
// the surrounding transaction usable for the re-read.
func createMember(tx *gorm.DB) func(string) (uint, error) {
	return func(name string) (uint, error) {
		m := models.Member{NameFull: name}
		err := tx.Transaction(func(sp *gorm.DB) error {
			return sp.Create(&m).Error
		})
		if err != nil {
			return 0, err
		}
		return m.ID, nil
	}
}

// MemberService serves the donor directory.
type MemberService struct {
	db  *gorm.DB
	log *slog.Logger
}

func NewMemberService(db *gorm.DB, log *slog.Logger) *MemberService {
	if log == nil {
		log = slog.Default()
	}
	return &MemberService{db: db, log: log}
}

type MemberPage struct {
	Rows       []models.Member `json:"data"`
	Pagination Pagination      `json:"pagination"`
}

// FilteredMembers pages through members matching query on name, email or
// address (case-insensitive), newest first.
func (s *MemberService) FilteredMembers(ctx context.Context, query string, page int) (MemberPage, error) {
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * MembersPerPage

	base := s.db.WithContext(ctx).Model(&models.Member{})
	if q := strings.TrimSpace(query); q != "" {
		like := containsPattern(q)
		base = base.Where(
			containsClause(base, "name_full")+" OR "+
				containsClause(base, "COALESCE(email, '')")+" OR "+
				containsClause(base, "COALESCE(address, '')"),
			like, like, like,
		)
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		s.log.ErrorContext(ctx, "count members", "error", err)
		return MemberPage{}, fmt.Errorf("count members: %w", err)
	}

	rows := make([]models.Member, 0, MembersPerPage)
	if err := base.Session(&gorm.Session{}).
		Order("created_at DESC, id DESC").
		Limit(MembersPerPage).
		Offset(offset).
		Find(&rows).Error; err != nil {
		s.log.ErrorContext(ctx, "list members", "error", err)
		return MemberPage{}, fmt.Errorf("list members: %w", err)
	}

	return MemberPage{Rows: rows, Pagination: newPagination(page, MembersPerPage, total)}, nil
}

// Resolve returns the member id for a raw donor name, creating it if needed.
func (s *MemberService) Resolve(ctx context.Context, rawName string) (uint, error) {
	name := util.NormalizeName(rawName)
	if name == "" {
		return 0, validationf("name is required")
	}
	var id uint
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		id, err = resolveMemberID(name, findMember(tx), createMember(tx))
		return err
	})
	return id, err
}
