package loader

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/happytummy/demand-signal/internal/models"
	"github.com/happytummy/demand-signal/internal/utils"
)

// Database holds the GORM connection used by table sources.
type Database struct {
	db *gorm.DB
}

// Connect opens a Postgres connection with GORM.
func Connect(dsn string) (*Database, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &Database{db: db}, nil
}

// Close closes the database connection.
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Source returns a table source for origin.
func (d *Database) Source(table string, origin models.Origin) *TableSource {
	return &TableSource{db: d.db, table: table, origin: origin}
}

// orderRow mirrors the columns read from an orders table.
type orderRow struct {
	ProductType  string
	OrderDate    time.Time
	FoodCategory *string
}

// TableSource reads one origin's orders from a Postgres table.
type TableSource struct {
	db     *gorm.DB
	table  string
	origin models.Origin
}

// ID returns the table name.
func (s *TableSource) ID() string { return s.table }

// Origin returns the population the table belongs to.
func (s *TableSource) Origin() models.Origin { return s.origin }

// Load selects every order row, oldest first.
func (s *TableSource) Load(ctx context.Context) ([]models.OrderEvent, error) {
	var rows []orderRow
	err := s.db.WithContext(ctx).
		Table(s.table).
		Select("product_type", "order_date", "food_category").
		Order("order_date ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	return rowsToEvents(rows, s.origin), nil
}

func rowsToEvents(rows []orderRow, origin models.Origin) []models.OrderEvent {
	events := make([]models.OrderEvent, 0, len(rows))
	for _, row := range rows {
		category := strings.TrimSpace(row.ProductType)
		if category == "" || row.OrderDate.IsZero() {
			continue
		}
		ev := models.OrderEvent{
			Category:  category,
			Timestamp: utils.TruncateDay(row.OrderDate),
			Origin:    origin,
		}
		if row.FoodCategory != nil {
			ev.FoodGroup = strings.TrimSpace(*row.FoodCategory)
		}
		events = append(events, ev)
	}
	return events
}
