package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/vaccine-tracker/internal/entity"
)

const (
	SheetVaccines        = "Vaccines"
	SheetRecommendations = "Recommendations"
)

// Source is what the export needs from the processor.
type Source interface {
	History(ctx context.Context, ownerID uuid.UUID, from, to *time.Time, now time.Time) ([]entity.VaccineView, error)
	Recommendations(ctx context.Context, ownerID uuid.UUID, age *int, now time.Time) ([]entity.Recommendation, error)
}

// Service produces XLSX bytes for a subject's vaccination history.
type Service struct {
	src    Source
	logger *slog.Logger
}

func NewService(src Source, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{src: src, logger: logger}
}

// Request selects what to export. From/To bound the Vaccines sheet (inclusive);
// only From means From..Now. Recommendations always use the full history.
type Request struct {
	OwnerID uuid.UUID
	From    *time.Time
	To      *time.Time
	Age     *int
	// SkipRecommendations leaves the second sheet out, e.g. when no age is known.
	SkipRecommendations bool
	Now                 time.Time
}

// ExportVaccinesXLSX returns a workbook with a Vaccines sheet (status computed
// at req.Now) and, unless skipped, a Recommendations sheet.
func (s *Service) ExportVaccinesXLSX(ctx context.Context, req Request) ([]byte, error) {
	start := time.Now()
	now := req.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	from, to := dateOnly(req.From), dateOnly(req.To)
	if from != nil && to == nil {
		to = dateOnly(&now)
	}

	views, err := s.src.History(ctx, req.OwnerID, from, to, now)
	if err != nil {
		return nil, fmt.Errorf("query vaccines: %w", err)
	}
	var recs []entity.Recommendation
	if !req.SkipRecommendations {
		if recs, err = s.src.Recommendations(ctx, req.OwnerID, req.Age, now); err != nil {
			return nil, fmt.Errorf("recommendations: %w", err)
		}
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", "error", err)
		}
	}()

	// rename the default sheet instead of leaving an empty "Sheet1"
	if err := f.SetSheetName(f.GetSheetName(0), SheetVaccines); err != nil {
		return nil, err
	}
	if err := writeVaccines(f, views); err != nil {
		return nil, err
	}
	if !req.SkipRecommendations {
		if _, err := f.NewSheet(SheetRecommendations); err != nil {
			return nil, err
		}
		if err := writeRecommendations(f, recs); err != nil {
			return nil, err
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("vaccines exported",
		"owner_id", req.OwnerID.String(),
		"rows", len(views),
		"recommendations", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeVaccines(f *excelize.File, views []entity.VaccineView) error {
	headers := []string{"Vaccine", "Date", "Provider", "Batch Number", "Next Due", "Status", "Source"}
	if err := writeHeader(f, SheetVaccines, headers); err != nil {
		return err
	}
	for i, v := range views {
		r := v.Record
		row := []any{
			r.Name,
			r.Date.Format("2006-01-02"),
			strOrEmpty(r.Provider),
			strOrEmpty(r.BatchNumber),
			dateOrEmpty(r.NextDueDate),
			string(v.Status),
			strOrEmpty(r.SourceRef),
		}
		if err := writeRow(f, SheetVaccines, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetVaccines, "A", "A", 28) // name
	_ = f.SetColWidth(SheetVaccines, "B", "B", 12) // date
	_ = f.SetColWidth(SheetVaccines, "C", "D", 22)
	_ = f.SetColWidth(SheetVaccines, "E", "F", 12)
	_ = f.SetColWidth(SheetVaccines, "G", "G", 60) // path
	return nil
}

func writeRecommendations(f *excelize.File, recs []entity.Recommendation) error {
	headers := []string{"Vaccine", "Description", "Due Date", "Importance"}
	if err := writeHeader(f, SheetRecommendations, headers); err != nil {
		return err
	}
	for i, r := range recs {
		row := []any{r.Name, truncate(r.Description, 140), r.DueDate.Format("2006-01-02"), string(r.Importance)}
		if err := writeRow(f, SheetRecommendations, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(SheetRecommendations, "A", "A", 22)
	_ = f.SetColWidth(SheetRecommendations, "B", "B", 48)
	_ = f.SetColWidth(SheetRecommendations, "C", "D", 12)
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	row := make([]any, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	return writeRow(f, sheet, 1, row)
}

func writeRow(f *excelize.File, sheet string, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func dateOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 1 {
		return s[:n]
	}
	return s[:n-1] + "…"
}
