package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/MrJamesThe3rd/haulbook/internal/payroll"
	"github.com/MrJamesThe3rd/haulbook/internal/session"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType is the MIME type served for the format.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}

	return "text/csv; charset=utf-8"
}

var header = []string{
	"Driver", "Driver ID", "Period Start", "Period End", "Run Count",
	"Total Weight (kg)", "Payable", "Status", "Paid Amount",
}

const sheetName = "Payroll"

// Request selects the payroll rows to export.
type Request struct {
	Period payroll.Period
	Status payroll.Status // empty for every status
	Format Format
}

// Filename is the default name for the export file.
func (r Request) Filename() string {
	name := fmt.Sprintf("payroll_%s_%s", r.Period.Start.Format("20060102"), r.Period.End.Format("20060102"))
	if r.Status != "" {
		name += "_" + strings.ToLower(string(r.Status))
	}

	return name + "." + string(r.Format)
}

// Service exports the payroll overview table.
type Service struct {
	payroll *payroll.Service
}

func NewService(payrollSvc *payroll.Service) *Service {
	return &Service{payroll: payrollSvc}
}

// Rows loads the overview for the request and applies the status filter.
func (s *Service) Rows(ctx context.Context, sess *session.Session, req Request) ([]payroll.Row, error) {
	rows, err := s.payroll.Overview(ctx, sess, req.Period)
	if err != nil {
		return nil, err
	}

	return payroll.FilterByStatus(rows, req.Status), nil
}

// Export writes the filtered rows to w and returns how many were written.
func (s *Service) Export(ctx context.Context, sess *session.Session, req Request, w io.Writer) (int, error) {
	rows, err := s.Rows(ctx, sess, req)
	if err != nil {
		return 0, err
	}

	if err := Write(w, req.Format, rows); err != nil {
		return 0, err
	}

	return len(rows), nil
}

// ExportToDir writes the export into dir under its default file name.
func (s *Service) ExportToDir(ctx context.Context, sess *session.Session, req Request, dir string) (string, []payroll.Row, error) {
	rows, err := s.Rows(ctx, sess, req)
	if err != nil {
		return "", nil, err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(dir, req.Filename())

	f, err := os.Create(path)
	if err != nil {
		return "", nil, fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := Write(f, req.Format, rows); err != nil {
		return "", nil, err
	}

	return path, rows, nil
}

func Write(w io.Writer, format Format, rows []payroll.Row) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, rows)
	case FormatXLSX:
		return WriteXLSX(w, rows)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

func record(r payroll.Row) []string {
	return []string{
		r.DriverName,
		strconv.FormatInt(r.DriverID, 10),
		r.Period.Start.Format(time.DateOnly),
		r.Period.End.Format(time.DateOnly),
		strconv.Itoa(r.TripCount),
		strconv.FormatFloat(r.TotalWeightKg, 'f', 2, 64),
		strconv.FormatFloat(r.Payable, 'f', 2, 64),
		string(r.Status),
		strconv.FormatFloat(r.PaidAmount, 'f', 2, 64),
	}
}

// WriteCSV writes comma-joined lines without quoting. A driver name
// containing a comma shifts that row's columns.
func WriteCSV(w io.Writer, rows []payroll.Row) error {
	var sb strings.Builder

	sb.WriteString(strings.Join(header, ","))
	sb.WriteString("\n")

	for _, r := range rows {
		sb.WriteString(strings.Join(record(r), ","))
		sb.WriteString("\n")
	}

	if _, err := io.WriteString(w, sb.String()); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	return nil
}

// WriteXLSX writes the same columns as WriteCSV into a single sheet with
// numeric cells for the figures.
func WriteXLSX(w io.Writer, rows []payroll.Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}

		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for i, r := range rows {
		values := []any{
			r.DriverName,
			r.DriverID,
			r.Period.Start.Format(time.DateOnly),
			r.Period.End.Format(time.DateOnly),
			r.TripCount,
			r.TotalWeightKg,
			r.Payable,
			string(r.Status),
			r.PaidAmount,
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}

		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing xlsx: %w", err)
	}

	return nil
}

// Summary renders the rows as a plain-text digest for sending to accounts.
func Summary(rows []payroll.Row) string {
	var sb strings.Builder

	for _, r := range rows {
		sb.WriteString(fmt.Sprintf("* %s | %s | %.2f kg | %.2f payable | %.2f paid | %s\n",
			r.DriverName, r.Period, r.TotalWeightKg, r.Payable, r.PaidAmount, r.Status))
	}

	return sb.String()
}
