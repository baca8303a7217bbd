package models

// AdequacyLabel summarises whether supply meets demand for a category.
type AdequacyLabel string

const (
	AdequacySurplus  AdequacyLabel = "surplus"
	AdequacyBalanced AdequacyLabel = "balanced"
	AdequacyCritical AdequacyLabel = "critical"
)

// OriginCounts holds full-range event counts for one category.
type OriginCounts struct {
	Requester int
	Supplier  int
}

// MonthOrigin keys the monthly breakdown.
type MonthOrigin struct {
	Month  string
	Origin Origin
}

// MonthlyCount is a rendered row of the monthly breakdown.
type MonthlyCount struct {
	Month  string
	Origin Origin
	Count  int
}

// Assessment is the full adequacy answer for one category.
type Assessment struct {
	Category string
	Counts   OriginCounts
	Ratio    float64
	Label    AdequacyLabel
	Advisory string
	Monthly  []MonthlyCount
}
