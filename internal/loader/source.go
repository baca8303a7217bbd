package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/utils"
)

// Source produces the full event table for one origin.
type Source interface {
	// ID identifies the underlying data, e.g. a file path or table name.
	ID() string
	Origin() models.Origin
	Load(ctx context.Context) ([]models.OrderEvent, error)
}

// Accepted header names per column, compared case-insensitively.
var (
	categoryColumns  = []string{"ProductType", "product_type", "category"}
	dateColumns      = []string{"OrderDate", "order_date", "timestamp"}
	foodGroupColumns = []string{"FoodCattegory", "FoodCategory", "food_category", "food_group"}
)

// CSVSource reads an order export with a header row.
type CSVSource struct {
	path   string
	origin models.Origin
}

// NewCSVSource constructs a CSV source for origin.
func NewCSVSource(path string, origin models.Origin) *CSVSource {
	return &CSVSource{path: path, origin: origin}
}

// ID returns the file path.
func (s *CSVSource) ID() string { return s.path }

// Origin returns the population the file belongs to.
func (s *CSVSource) Origin() models.Origin { return s.origin }

// Load opens and parses the file.
func (s *CSVSource) Load(ctx context.Context) ([]models.OrderEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s orders file %s: %w", s.origin, s.path, err)
	}
	defer file.Close()

	events, err := ParseCSV(file, s.origin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return events, nil
}

// ParseCSV reads order events from r. Order dates are truncated to days.
func ParseCSV(r io.Reader, origin models.Origin) ([]models.OrderEvent, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read orders CSV: %w", err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("orders CSV must have a header row")
	}

	header := records[0]
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	categoryIdx := columnIndex(header, categoryColumns)
	dateIdx := columnIndex(header, dateColumns)
	groupIdx := columnIndex(header, foodGroupColumns)
	if categoryIdx < 0 || dateIdx < 0 {
		return nil, fmt.Errorf("orders CSV header must include %s and %s, got %v", categoryColumns[0], dateColumns[0], header)
	}

	events := make([]models.OrderEvent, 0, len(records)-1)
	for i, record := range records[1:] {
		row := i + 2
		if isBlank(record) {
			continue
		}
		category := field(record, categoryIdx)
		if category == "" {
			return nil, fmt.Errorf("orders CSV row %d: empty %s", row, header[categoryIdx])
		}
		ts, err := utils.ParseDate(field(record, dateIdx))
		if err != nil {
			return nil, fmt.Errorf("orders CSV row %d: %w", row, err)
		}
		events = append(events, models.OrderEvent{
			Category:  category,
			Timestamp: ts,
			Origin:    origin,
			FoodGroup: field(record, groupIdx),
		})
	}
	return events, nil
}

func columnIndex(header []string, names []string) int {
	for i, h := range header {
		h = strings.TrimSpace(h)
		for _, name := range names {
			if strings.EqualFold(h, name) {
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

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
