package engine

import (
	"sort"
	"time"

	"github.com/happytummy/demand-signal/internal/models"
)

// MonthlyBreakdown counts a category's events by calendar month short name
// ("Jan", "Feb", ...) and origin. Events from the same month of different
// years share a key.
func MonthlyBreakdown(events []models.OrderEvent, category string) map[models.MonthOrigin]int {
	out := make(map[models.MonthOrigin]int)
	for _, ev := range events {
		if ev.Category != category {
			continue
		}
		key := models.MonthOrigin{Month: monthName(ev.Timestamp.Month()), Origin: ev.Origin}
		out[key]++
	}
	return out
}

// MonthlyRows renders a breakdown in calendar order, requester before supplier.
func MonthlyRows(breakdown map[models.MonthOrigin]int) []models.MonthlyCount {
	rows := make([]models.MonthlyCount, 0, len(breakdown))
	for key, count := range breakdown {
		rows = append(rows, models.MonthlyCount{Month: key.Month, Origin: key.Origin, Count: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		mi, mj := monthIndex(rows[i].Month), monthIndex(rows[j].Month)
		if mi != mj {
			return mi < mj
		}
		return originRank(rows[i].Origin) < originRank(rows[j].Origin)
	})
	return rows
}

func monthName(m time.Month) string {
	return m.String()[:3]
}

func monthIndex(name string) int {
	for m := time.January; m <= time.December; m++ {
		if monthName(m) == name {
			return int(m)
		}
	}
	return 13
}

func originRank(o models.Origin) int {
	switch o {
	case models.OriginRequester:
		return 0
	case models.OriginSupplier:
		return 1
	default:
		return 2
	}
}
