package summary

import (
	"sort"
	"strings"

	"github.com/happytummy/demand-signal/internal/models"
)

// UnknownGroup labels events without a food group.
const UnknownGroup = "unknown"

// Summarize describes each origin's order mix: the topN categories by order
// count and the percent share of every food group. Requesters come first.
// Origins without events are omitted.
func Summarize(events []models.OrderEvent, topN int) []models.PopulationSummary {
	stats := make(map[models.Origin]*originAggregate)
	for _, ev := range events {
		agg := ensureAggregate(stats, ev.Origin)
		agg.total++
		agg.products[ev.Category]++
		group := strings.TrimSpace(ev.FoodGroup)
		if group == "" {
			group = UnknownGroup
		}
		agg.groups[group]++
	}

	out := make([]models.PopulationSummary, 0, len(stats))
	for _, origin := range []models.Origin{models.OriginRequester, models.OriginSupplier} {
		agg, ok := stats[origin]
		if !ok {
			continue
		}
		out = append(out, models.PopulationSummary{
			Origin:      origin,
			TotalOrders: agg.total,
			TopProducts: agg.topProducts(topN),
			FoodGroups:  agg.groupShares(),
		})
	}
	return out
}

type originAggregate struct {
	total    int
	products map[string]int
	groups   map[string]int
}

func ensureAggregate(m map[models.Origin]*originAggregate, origin models.Origin) *originAggregate {
	agg, ok := m[origin]
	if !ok {
		agg = &originAggregate{
			products: make(map[string]int),
			groups:   make(map[string]int),
		}
		m[origin] = agg
	}
	return agg
}

func (agg *originAggregate) topProducts(limit int) []models.ProductCount {
	products := make([]models.ProductCount, 0, len(agg.products))
	for category, count := range agg.products {
		products = append(products, models.ProductCount{Category: category, Count: count})
	}
	sort.Slice(products, func(i, j int) bool {
		if products[i].Count != products[j].Count {
			return products[i].Count > products[j].Count
		}
		return products[i].Category < products[j].Category
	})
	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}
	return products
}

func (agg *originAggregate) groupShares() []models.GroupShare {
	shares := make([]models.GroupShare, 0, len(agg.groups))
	for group, count := range agg.groups {
		shares = append(shares, models.GroupShare{
			FoodGroup: group,
			Percent:   100 * float64(count) / float64(agg.total),
		})
	}
	sort.Slice(shares, func(i, j int) bool {
		ci, cj := agg.groups[shares[i].FoodGroup], agg.groups[shares[j].FoodGroup]
		if ci != cj {
			return ci > cj
		}
		return shares[i].FoodGroup < shares[j].FoodGroup
	})
	return shares
}
