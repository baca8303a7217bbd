package models

// ProductCount is an order count for one product category.
type ProductCount struct {
	Category string
	Count    int
}

// GroupShare is the share of a population's orders belonging to a food group.
type GroupShare struct {
	FoodGroup string
	Percent   float64
}

// PopulationSummary describes one origin's order mix.
type PopulationSummary struct {
	Origin      Origin
	TotalOrders int
	TopProducts []ProductCount
	FoodGroups  []GroupShare
}
