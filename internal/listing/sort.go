package listing

import "sort"

// SortKey names one of the supported result orders
type SortKey string

const (
	SortNone           SortKey = ""
	SortTotalPriceAsc  SortKey = "totalPriceAsc"
	SortTotalPriceDesc SortKey = "totalPriceDesc"
	SortNewest         SortKey = "newest"
	SortOldest         SortKey = "oldest"
)

// Valid reports whether k is a known sort key
func (k SortKey) Valid() bool {
	switch k {
	case SortNone, SortTotalPriceAsc, SortTotalPriceDesc, SortNewest, SortOldest:
		return true
	}
	return false
}

// SortListings orders listings in place. Ties keep their current relative order.
func SortListings(listings []Listing, key SortKey) {
	var less func(a, b Listing) bool
	switch key {
	case SortTotalPriceAsc:
		less = func(a, b Listing) bool { return a.Total() < b.Total() }
	case SortTotalPriceDesc:
		less = func(a, b Listing) bool { return a.Total() > b.Total() }
	case SortNewest:
		less = func(a, b Listing) bool { return a.ListedAt.After(b.ListedAt) }
	case SortOldest:
		less = func(a, b Listing) bool { return a.ListedAt.Before(b.ListedAt) }
	default:
		return
	}

	sort.SliceStable(listings, func(i, j int) bool {
		return less(listings[i], listings[j])
	})
}
