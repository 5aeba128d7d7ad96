package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finance-portal/internal/models"
	"finance-portal/internal/util"

	"github.com/go-pdf/fpdf"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReceiptService issues yearly donation receipts as PDF documents.
type ReceiptService struct {
	db      *gorm.DB
	now     Clock
	orgName string
	log     *slog.Logger
}

func NewReceiptService(db *gorm.DB, now Clock, orgName string, log *slog.Logger) *ReceiptService {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = slog.Default()
	}
	return &ReceiptService{db: db, now: now, orgName: orgName, log: log}
}

// DefaultTaxYear is the year receipts are usually issued for: the previous
// calendar year.
func (s *ReceiptService) DefaultTaxYear() int {
	return s.now().Year() - 1
}

type ReceiptStats struct {
	TaxYear           int   `json:"taxYear"`
	TotalMembers      int64 `json:"totalMembers"`
	GeneratedCount    int64 `json:"generatedCount"`
	NotGeneratedCount int64 `json:"notGeneratedCount"`
}

// Stats counts donors with income in year and how many of them already
// have a receipt.
func (s *ReceiptService) Stats(ctx context.Context, year int) (ReceiptStats, error) {
	st := ReceiptStats{TaxYear: year}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Income{}).
			Where("year = ? AND member_id IS NOT NULL", year).
			Distinct("member_id").Count(&st.TotalMembers).Error
	})
	g.Go(func() error {
		return s.db.WithContext(gctx).Model(&models.Receipt{}).
			Where("year = ?", year).Count(&st.GeneratedCount).Error
	})
	if err := g.Wait(); err != nil {
		s.log.ErrorContext(ctx, "receipt stats", "year", year, "error", err)
		return ReceiptStats{}, fmt.Errorf("receipt stats: %w", err)
	}

	st.NotGeneratedCount = st.TotalMembers - st.GeneratedCount
	if st.NotGeneratedCount < 0 {
		st.NotGeneratedCount = 0
	}
	return st, nil
}

type receiptLine struct {
	Month int
	Total int64
}

// Generate renders the receipt for one member and year and records it.
// Re-generating keeps the original serial.
func (s *ReceiptService) Generate(ctx context.Context, memberID uint, year int) (models.Receipt, []byte, error) {
	if memberID == 0 || util.ValidateYear(year) != nil {
		return models.Receipt{}, nil, validationf("invalid member or year")
	}

	var member models.Member
	if err := s.db.WithContext(ctx).First(&member, memberID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Receipt{}, nil, ErrNotFound
		}
		return models.Receipt{}, nil, fmt.Errorf("load member: %w", err)
	}

	var lines []receiptLine
	if err := s.db.WithContext(ctx).Model(&models.Income{}).
		Select("month, CAST(COALESCE(SUM(amount), 0) AS BIGINT) AS total").
		Where("member_id = ? AND year = ?", memberID, year).
		Group("month").Order("month ASC").
		Scan(&lines).Error; err != nil {
		s.log.ErrorContext(ctx, "receipt lines", "member_id", memberID, "error", err)
		return models.Receipt{}, nil, fmt.Errorf("receipt lines: %w", err)
	}

	var total int64
	for _, l := range lines {
		total += l.Total
	}
	if total == 0 {
		return models.Receipt{}, nil, validationf("no donations recorded for %d", year)
	}

	rec := models.Receipt{
		MemberID:   memberID,
		Year:       year,
		Serial:     uuid.NewString(),
		TotalCents: total,
		IssuedAt:   s.now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "member_id"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_cents", "issued_at"}),
	}).Omit(clause.Associations).Create(&rec).Error
	if err != nil {
		s.log.ErrorContext(ctx, "save receipt", "member_id", memberID, "error", err)
		return models.Receipt{}, nil, fmt.Errorf("save receipt: %w", err)
	}
	// re-read to pick up the serial kept by the upsert
	var saved models.Receipt
	if err := s.db.WithContext(ctx).
		Where("member_id = ? AND year = ?", memberID, year).
		Take(&saved).Error; err != nil {
		return models.Receipt{}, nil, fmt.Errorf("reload receipt: %w", err)
	}
	rec = saved

	pdf, err := s.render(member, rec, lines)
	if err != nil {
		s.log.ErrorContext(ctx, "render receipt", "member_id", memberID, "error", err)
		return models.Receipt{}, nil, fmt.Errorf("render receipt: %w", err)
	}
	return rec, pdf, nil
}

func (s *ReceiptService) render(m models.Member, rec models.Receipt, lines []receiptLine) ([]byte, error) {
	doc := fpdf.New("P", "mm", "Letter", "")
	doc.SetTitle(fmt.Sprintf("Donation receipt %d", rec.Year), true)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 18)
	doc.CellFormat(0, 12, s.orgName, "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 12)
	doc.CellFormat(0, 8, fmt.Sprintf("Official donation receipt for %d", rec.Year), "", 1, "C", false, 0, "")
	doc.Ln(6)

	doc.SetFont("Helvetica", "", 10)
	doc.CellFormat(40, 7, "Serial", "", 0, "L", false, 0, "")
	doc.CellFormat(0, 7, rec.Serial, "", 1, "L", false, 0, "")
	doc.CellFormat(40, 7, "Issued", "", 0, "L", false, 0, "")
	doc.CellFormat(0, 7, rec.IssuedAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	doc.CellFormat(40, 7, "Donor", "", 0, "L", false, 0, "")
	doc.CellFormat(0, 7, donorName(m), "", 1, "L", false, 0, "")
	if m.Address != nil {
		doc.CellFormat(40, 7, "Address", "", 0, "L", false, 0, "")
		doc.CellFormat(0, 7, addressLine(m), "", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(60, 8, "Month", "1", 0, "L", false, 0, "")
	doc.CellFormat(60, 8, "Amount", "1", 1, "R", false, 0, "")
	doc.SetFont("Helvetica", "", 10)
	for _, l := range lines {
		doc.CellFormat(60, 7, time.Month(l.Month).String(), "1", 0, "L", false, 0, "")
		doc.CellFormat(60, 7, util.FormatCents(l.Total), "1", 1, "R", false, 0, "")
	}
	doc.SetFont("Helvetica", "B", 10)
	doc.CellFormat(60, 8, "Total", "1", 0, "L", false, 0, "")
	doc.CellFormat(60, 8, util.FormatCents(rec.TotalCents), "1", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func donorName(m models.Member) string {
	if m.NameFirst != nil && m.NameLast != nil {
		return fmt.Sprintf("%s %s (%s)", *m.NameFirst, *m.NameLast, m.NameFull)
	}
	return m.NameFull
}

func addressLine(m models.Member) string {
	line := *m.Address
	if m.City != nil {
		line += ", " + *m.City
	}
	if m.Postal != nil {
		line += " " + *m.Postal
	}
	return line
}
