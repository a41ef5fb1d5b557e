package weighticket

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/MrJamesThe3rd/haulbook/internal/encoding"
)

var ErrUnknownFormat = errors.New("no matching weigh-bridge format found: expected a receipt column and a net or gross/tare weight")

// Ticket is one weighing printed by the weigh-bridge.
type Ticket struct {
	ReceiptNo   string
	NetWeightKg float64
	WeighedAt   time.Time // zero when the export has no date column
	Line        int
}

// Parser reads weigh-bridge CSV exports. The delimiter, the text encoding and
// the column layout are detected from the file itself.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]Ticket, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	raw, err := io.ReadAll(utf8r)
	if err != nil {
		return nil, fmt.Errorf("read tickets: %w", err)
	}

	if strings.TrimSpace(string(raw)) == "" {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(string(raw)))
	reader.Comma = sniffDelimiter(string(raw))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := readRecords(reader)
	if err != nil {
		return nil, err
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, ErrUnknownFormat
	}

	return parseRows(profile, cols, rows[headerIdx+1:])
}

// record is a CSV row with the file line it started on.
type record struct {
	fields []string
	line   int
}

func readRecords(r *csv.Reader) ([]record, error) {
	var out []record

	for {
		fields, err := r.Read()
		if err == io.EOF {
			return out, nil
		}

		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}

		line, _ := r.FieldPos(0)
		out = append(out, record{fields: fields, line: line})
	}
}

// sniffDelimiter picks ';' or ',' by which occurs more often on the first
// line that contains either.
func sniffDelimiter(content string) rune {
	for _, line := range strings.Split(content, "\n") {
		semi := strings.Count(line, ";")
		comma := strings.Count(line, ",")

		if semi == 0 && comma == 0 {
			continue
		}

		if semi >= comma {
			return ';'
		}

		return ','
	}

	return ';'
}

type colIndex map[string]int

func detectProfile(rows []record) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row.fields {
			name := strings.ToLower(strings.TrimSpace(cell))
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows extracts tickets. Rows without a receipt number are footers or
// blank lines and are skipped; a receipt with an unreadable weight is an error.
func parseRows(p *Profile, cols colIndex, rows []record) ([]Ticket, error) {
	receiptIdx := cols[p.ReceiptCol]

	dateIdx := -1
	if idx, ok := cols[p.DateCol]; ok {
		dateIdx = idx
	}

	var tickets []Ticket

	for _, rec := range rows {
		row := rec.fields

		receipt := cellValue(row, receiptIdx)
		if receipt == "" {
			continue
		}

		weight, err := p.netWeight(cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d (%s): %w", rec.line, receipt, err)
		}

		tickets = append(tickets, Ticket{
			ReceiptNo:   receipt,
			NetWeightKg: weight,
			WeighedAt:   parseDate(cellValue(row, dateIdx)),
			Line:        rec.line,
		})
	}

	return tickets, nil
}

func (p *Profile) netWeight(cols colIndex, row []string) (float64, error) {
	switch p.WeightMode {
	case weightGrossTare:
		gross, err := parseWeight(cellValue(row, cols[p.GrossCol]))
		if err != nil {
			return 0, fmt.Errorf("gross weight: %w", err)
		}

		tare, err := parseWeight(cellValue(row, cols[p.TareCol]))
		if err != nil {
			return 0, fmt.Errorf("tare weight: %w", err)
		}

		net := gross.Sub(tare)
		if net.IsNegative() {
			return 0, fmt.Errorf("tare %s exceeds gross %s", tare, gross)
		}

		return net.InexactFloat64(), nil
	default:
		net, err := parseWeight(cellValue(row, cols[p.NetCol]))
		if err != nil {
			return 0, fmt.Errorf("net weight: %w", err)
		}

		if net.IsNegative() {
			return 0, fmt.Errorf("negative net weight %s", net)
		}

		return net.InexactFloat64(), nil
	}
}

var dateLayouts = []string{"02-01-2006", "02/01/2006", time.DateOnly, "02-01-2006 15:04", "2006-01-02 15:04:05"}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return time.Time{}
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
