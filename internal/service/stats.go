package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"finance-portal/internal/models"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// ItemsPerPage is the income list page size.
const ItemsPerPage = 30

// missingOrder is the sort key for categories without a configured order.
const missingOrder = math.MaxInt32

// Stats is the read model behind the dashboard and the income list. Every
// call recomputes from the store; nothing is cached.
type Stats struct {
	db  *gorm.DB
	now Clock
	log *slog.Logger
}

func NewStats(db *gorm.DB, now Clock, log *slog.Logger) *Stats {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Stats{db: db, now: now, log: log}
}

type CategorySum struct {
	CategoryID   uint   `json:"categoryId"`
	CategoryName string `json:"categoryName"`
	Order        *int   `json:"order"`
	Sum          int64  `json:"sum"`
}

type CategoryTotals struct {
	Total      int64         `json:"total"`
	ByCategory []CategorySum `json:"byCategory"`
}

type KPI struct {
	YearTotalCents  int64 `json:"yearTotalCents"`
	MonthTotalCents int64 `json:"monthTotalCents"`
	DonationCount   int64 `json:"donationCount"`
	UniqueDonors    int64 `json:"uniqueDonors"`
}

type MonthlyTotal struct {
	Month      int   `json:"month"`
	TotalCents int64 `json:"totalCents"`
}

type QuarterlyTotal struct {
	Quarter    int   `json:"quarter"`
	TotalCents int64 `json:"totalCents"`
}

type BreakdownRow struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	TotalCents int64  `json:"totalCents"`
}

type Pagination struct {
	CurrentPage int   `json:"currentPage"`
	PageSize    int   `json:"pageSize"`
	TotalItems  int64 `json:"totalItems"`
	TotalPages  int   `json:"totalPages"`
}

func newPagination(page, size int, total int64) Pagination {
	return Pagination{
		CurrentPage: page,
		PageSize:    size,
		TotalItems:  total,
		TotalPages:  int((total + int64(size) - 1) / int64(size)),
	}
}

type IncomePage struct {
	Rows       []models.IncomeListRow `json:"data"`
	Pagination Pagination             `json:"pagination"`
}

// ListQuery filters the income list. Month, Day and Query are optional
// (zero / empty means no filter).
type ListQuery struct {
	Query string
	Page  int
	Year  int
	Month int
	Day   int
}

type MonthDay struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

type groupSum struct {
	Grp   int
	Total int64
}

// sortKey puts categories without an order after all ordered ones.
func sortKey(order *int) int {
	if order == nil {
		return missingOrder
	}
	return *order
}

// SortCategories orders by configured order, missing order last, then id.
func SortCategories(cats []models.Category) {
	sort.SliceStable(cats, func(i, j int) bool {
		ki, kj := sortKey(cats[i].Order), sortKey(cats[j].Order)
		if ki != kj {
			return ki < kj
		}
		return cats[i].ID < cats[j].ID
	})
}

// Categories returns the selection list for one range.
func (s *Stats) Categories(ctx context.Context, r models.Range) ([]models.Category, error) {
	var cats []models.Category
	if err := s.db.WithContext(ctx).Where("ctg_range = ?", r).Find(&cats).Error; err != nil {
		s.log.ErrorContext(ctx, "load categories", "range", r, "error", err)
		return nil, fmt.Errorf("load categories: %w", err)
	}
	for i := range cats {
		cats[i].Name = strings.TrimSpace(cats[i].Name)
	}
	SortCategories(cats)
	return cats, nil
}

// TotalsByCategory sums the year's income per income-type category. Every
// income-type category appears, with 0 when it has no records.
func (s *Stats) TotalsByCategory(ctx context.Context, year int) (CategoryTotals, error) {
	cats, err := s.Categories(ctx, models.RangeIncomeType)
	if err != nil {
		return CategoryTotals{}, err
	}

	sums, err := s.sumBy(ctx, "type_id", year)
	if err != nil {
		return CategoryTotals{}, err
	}

	out := CategoryTotals{ByCategory: make([]CategorySum, 0, len(cats))}
	for _, c := range cats {
		sum := sums[int(c.ID)]
		out.ByCategory = append(out.ByCategory, CategorySum{
			CategoryID:   c.ID,
			CategoryName: c.Name,
			Order:        c.Order,
			Sum:          sum,
		})
		out.Total += sum
	}
	return out, nil
}

// KPIs computes the headline numbers for year. The current month comes from
// the injected clock. The four aggregates run concurrently.
func (s *Stats) KPIs(ctx context.Context, year int) (KPI, error) {
	month := int(s.now().Month())
	var k KPI

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Income{}).
			Where("year = ?", year).
			Select("CAST(COALESCE(SUM(amount), 0) AS BIGINT)").Scan(&k.YearTotalCents).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Income{}).
			Where("year = ? AND month = ?", year, month).
			Select("CAST(COALESCE(SUM(amount), 0) AS BIGINT)").Scan(&k.MonthTotalCents).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Income{}).
			Where("year = ?", year).Count(&k.DonationCount).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Income{}).
			Where("year = ? AND member_id IS NOT NULL", year).
			Distinct("member_id").Count(&k.UniqueDonors).Error
	})

	if err := g.Wait(); err != nil {
		s.log.ErrorContext(ctx, "compute kpis", "year", year, "error", err)
		return KPI{}, fmt.Errorf("compute kpis: %w", err)
	}
	return k, nil
}

// sumBy groups the year's income by column and returns key -> sum.
// Rows with a NULL key are skipped.
func (s *Stats) sumBy(ctx context.Context, column string, year int) (map[int]int64, error) {
	var rows []groupSum
	err := s.db.WithContext(ctx).Model(&models.Income{}).
		Select(column+" AS grp, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total").
		Where("year = ? AND "+column+" IS NOT NULL", year).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		s.log.ErrorContext(ctx, "group income", "column", column, "year", year, "error", err)
		return nil, fmt.Errorf("group income by %s: %w", column, err)
	}

	out := make(map[int]int64, len(rows))
	for _, r := range rows {
		out[r.Grp] = r.Total
	}
	return out, nil
}

// MonthlyTotals returns 12 entries, months 1..12, zero-filled.
func (s *Stats) MonthlyTotals(ctx context.Context, year int) ([]MonthlyTotal, error) {
	sums, err := s.sumBy(ctx, "month", year)
	if err != nil {
		return nil, err
	}
	out := make([]MonthlyTotal, 12)
	for i := range out {
		out[i] = MonthlyTotal{Month: i + 1, TotalCents: sums[i+1]}
	}
	return out, nil
}

// QuarterlyTotals returns 4 entries, quarters 1..4, zero-filled.
func (s *Stats) QuarterlyTotals(ctx context.Context, year int) ([]QuarterlyTotal, error) {
	sums, err := s.sumBy(ctx, "quarter", year)
	if err != nil {
		return nil, err
	}
	out := make([]QuarterlyTotal, 4)
	for i := range out {
		out[i] = QuarterlyTotal{Quarter: i + 1, TotalCents: sums[i+1]}
	}
	return out, nil
}

// BreakdownByType sums by income-type category.
func (s *Stats) BreakdownByType(ctx context.Context, year int) ([]BreakdownRow, error) {
	return s.breakdown(ctx, "type_id", models.RangeIncomeType, year)
}

// BreakdownByMethod sums by income-method category.
func (s *Stats) BreakdownByMethod(ctx context.Context, year int) ([]BreakdownRow, error) {
	return s.breakdown(ctx, "method_id", models.RangeIncomeMethod, year)
}

// breakdown lists only categories of range r that have records in year,
// ordered by category order (missing last).
func (s *Stats) breakdown(ctx context.Context, column string, r models.Range, year int) ([]BreakdownRow, error) {
	sums, err := s.sumBy(ctx, column, year)
	if err != nil {
		return nil, err
	}
	if len(sums) == 0 {
		return []BreakdownRow{}, nil
	}

	ids := make([]int, 0, len(sums))
	for id := range sums {
		ids = append(ids, id)
	}

	var cats []models.Category
	if err := s.db.WithContext(ctx).
		Where("id IN ? AND ctg_range = ?", ids, r).
		Find(&cats).Error; err != nil {
		s.log.ErrorContext(ctx, "load breakdown categories", "range", r, "error", err)
		return nil, fmt.Errorf("load categories: %w", err)
	}
	SortCategories(cats)

	out := make([]BreakdownRow, 0, len(cats))
	for _, c := range cats {
		out = append(out, BreakdownRow{ID: c.ID, Name: c.Name, TotalCents: sums[int(c.ID)]})
	}
	return out, nil
}

// listScope applies the shared income_list filters.
func listScope(q ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("year = ?", q.Year)
		if q.Month > 0 {
			db = db.Where("month = ?", q.Month)
		}
		if q.Day > 0 {
			db = db.Where("day = ?", q.Day)
		}
		if term := strings.TrimSpace(q.Query); term != "" {
			db = db.Where(containsClause(db, "name"), containsPattern(term))
		}
		return db
	}
}

// FilteredList pages through income_list for a year, newest date first.
func (s *Stats) FilteredList(ctx context.Context, q ListQuery) (IncomePage, error) {
	if q.Year == 0 {
		return IncomePage{}, validationf("year is required")
	}
	page := q.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * ItemsPerPage

	base := s.db.WithContext(ctx).Model(&models.IncomeListRow{}).Scopes(listScope(q))

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		s.log.ErrorContext(ctx, "count income list", "error", err)
		return IncomePage{}, fmt.Errorf("count income: %w", err)
	}

	rows := make([]models.IncomeListRow, 0, ItemsPerPage)
	if err := base.Session(&gorm.Session{}).
		Order("year DESC, month DESC, day DESC").
		Limit(ItemsPerPage).
		Offset(offset).
		Find(&rows).Error; err != nil {
		s.log.ErrorContext(ctx, "list income", "error", err)
		return IncomePage{}, fmt.Errorf("list income: %w", err)
	}

	return IncomePage{
		Rows:       rows,
		Pagination: newPagination(page, ItemsPerPage, total),
	}, nil
}

// ExportRows returns every row matching q, ordered for the spreadsheet
// export (creation time breaks ties).
func (s *Stats) ExportRows(ctx context.Context, q ListQuery) ([]models.IncomeListRow, error) {
	var rows []models.IncomeListRow
	if err := s.db.WithContext(ctx).Model(&models.IncomeListRow{}).
		Scopes(listScope(q)).
		Order("year DESC, month DESC, day DESC, created_at DESC").
		Find(&rows).Error; err != nil {
		s.log.ErrorContext(ctx, "export income", "error", err)
		return nil, fmt.Errorf("export income: %w", err)
	}
	return rows, nil
}

// Latest returns the n most recent records of a year.
func (s *Stats) Latest(ctx context.Context, year, n int) ([]models.IncomeListRow, error) {
	if n <= 0 {
		n = 5
	}
	var rows []models.IncomeListRow
	if err := s.db.WithContext(ctx).
		Where("year = ?", year).
		Order("month DESC, day DESC, created_at DESC").
		Limit(n).
		Find(&rows).Error; err != nil {
		s.log.ErrorContext(ctx, "latest income", "error", err)
		return nil, fmt.Errorf("latest income: %w", err)
	}
	return rows, nil
}

// MonthDayOptions lists the distinct dates of a year that have records.
func (s *Stats) MonthDayOptions(ctx context.Context, year int) ([]MonthDay, error) {
	var rows []MonthDay
	if err := s.db.WithContext(ctx).Model(&models.Income{}).
		Distinct("month", "day").
		Where("year = ?", year).
		Order("month ASC, day ASC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("month/day options: %w", err)
	}
	return rows, nil
}

// Days lists the distinct days of a month that have records.
func (s *Stats) Days(ctx context.Context, year, month int) ([]int, error) {
	var days []int
	if err := s.db.WithContext(ctx).Model(&models.Income{}).
		Distinct("day").
		Where("year = ? AND month = ?", year, month).
		Order("day ASC").
		Pluck("day", &days).Error; err != nil {
		return nil, fmt.Errorf("days: %w", err)
	}
	return days, nil
}
