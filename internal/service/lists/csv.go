package lists

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/fractionalops/claire-backend/internal/domain"
)

// previewCap bounds how many rows of an upload are kept as the redacted
// preview. The full file is counted but never stored.
const previewCap = 100

// Column synonyms accepted in upload headers. Solution architects export
// from several CRMs, so headers are matched loosely: case-insensitive
// substring against the known synonyms, first match wins per column.
var (
	accountColumns  = []string{"account", "company", "organization"}
	prospectColumns = []string{"name", "prospect", "contact", "first"}
	titleColumns    = []string{"title", "role", "position"}
)

// ParseResult is the outcome of parsing an uploaded list file.
type ParseResult struct {
	Preview      []domain.ListPreviewRow
	TotalRecords int
}

// ParseCSV reads an uploaded list, maps columns by header synonyms, and
// returns a capped redacted preview plus the full record count. A file
// with a header but no recognizable columns still parses; the preview
// rows are simply empty.
func ParseCSV(r io.Reader) (*ParseResult, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	accountIdx := findColumn(header, accountColumns)
	prospectIdx := findColumn(header, prospectColumns)
	titleIdx := findColumn(header, titleColumns)

	result := &ParseResult{}
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", result.TotalRecords+2, err)
		}
		if blankRow(record) {
			continue
		}
		result.TotalRecords++
		if len(result.Preview) < previewCap {
			result.Preview = append(result.Preview, domain.ListPreviewRow{
				AccountName:  field(record, accountIdx),
				ProspectName: field(record, prospectIdx),
				JobTitle:     field(record, titleIdx),
			})
		}
	}
	if result.TotalRecords == 0 {
		return nil, fmt.Errorf("no data rows")
	}
	return result, nil
}

func findColumn(header []string, synonyms []string) int {
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		for _, syn := range synonyms {
			if strings.Contains(h, syn) {
				return i
			}
		}
	}
	return -1
}

func field(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func blankRow(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
