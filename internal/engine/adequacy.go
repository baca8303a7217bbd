package engine

import "github.com/happytummy/demand-signal/internal/models"

// Classify labels supply adequacy from full-range order counts.
//
// With ratio = (supplier - requester) / requester the bands are
// ratio > 0.5 surplus, 0 <= ratio <= 0.5 balanced, ratio < 0 critical.
// Boundaries are compared in integers so 10/15 lands on balanced exactly.
func Classify(requesterCount, supplierCount int) (models.AdequacyLabel, error) {
	if requesterCount <= 0 {
		return "", &ZeroDemandError{RequesterCount: requesterCount, SupplierCount: supplierCount}
	}
	diff := int64(supplierCount) - int64(requesterCount)
	switch {
	case 2*diff > int64(requesterCount):
		return models.AdequacySurplus, nil
	case diff >= 0:
		return models.AdequacyBalanced, nil
	default:
		return models.AdequacyCritical, nil
	}
}

// Ratio returns (supplier - requester) / requester, or false when undefined.
func Ratio(requesterCount, supplierCount int) (float64, bool) {
	if requesterCount <= 0 {
		return 0, false
	}
	return float64(supplierCount-requesterCount) / float64(requesterCount), true
}

// ClassifyCounts is Classify over an OriginCounts pair, naming the category
// in any error.
func ClassifyCounts(category string, counts models.OriginCounts) (models.AdequacyLabel, error) {
	label, err := Classify(counts.Requester, counts.Supplier)
	if err != nil {
		if zd, ok := err.(*ZeroDemandError); ok {
			zd.Category = category
		}
		return "", err
	}
	return label, nil
}

// CountByCategoryAndOrigin totals the category's events per origin. Both
// origins must have at least one event.
func CountByCategoryAndOrigin(events []models.OrderEvent, category string) (models.OriginCounts, error) {
	var counts models.OriginCounts
	for _, ev := range events {
		if ev.Category != category {
			continue
		}
		switch ev.Origin {
		case models.OriginRequester:
			counts.Requester++
		case models.OriginSupplier:
			counts.Supplier++
		}
	}
	if counts.Requester == 0 {
		return counts, &CategoryNotFoundError{Category: category, Origin: string(models.OriginRequester)}
	}
	if counts.Supplier == 0 {
		return counts, &CategoryNotFoundError{Category: category, Origin: string(models.OriginSupplier)}
	}
	return counts, nil
}
