package engine

import (
	"sort"
	"time"

	"github.com/happytummy/demand-signal/internal/models"
)

// Aggregate reduces events to per-date counts for one category. Timestamps are
// grouped by exact value; callers normalise them to calendar days beforehand.
func Aggregate(events []models.OrderEvent, category string) (models.DailySeries, error) {
	type bucket struct {
		date  time.Time
		count int
	}

	buckets := make(map[int64]*bucket)
	for _, ev := range events {
		if ev.Category != category {
			continue
		}
		key := ev.Timestamp.UnixNano()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{date: ev.Timestamp}
			buckets[key] = b
		}
		b.count++
	}

	if len(buckets) == 0 {
		return models.DailySeries{}, &EmptyCategoryError{Category: category}
	}

	points := make([]models.DailyCount, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, models.DailyCount{Date: b.date, Count: b.count})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

	return models.DailySeries{Category: category, Points: points}, nil
}
