package listing

import "strings"

// KeywordFilter matches titles against required and excluded substrings.
// Keywords are expected lower-cased.
type KeywordFilter struct {
	Required []string
	Excluded []string
}

// Match reports whether title contains every required keyword and no excluded one
func (f KeywordFilter) Match(title string) bool {
	lower := strings.ToLower(title)

	for _, kw := range f.Excluded {
		if strings.Contains(lower, kw) {
			return false
		}
	}
	for _, kw := range f.Required {
		if !strings.Contains(lower, kw) {
			return false
		}
	}
	return true
}

// PriceRange bounds the total price; nil bounds are unconstrained
type PriceRange struct {
	Min *float64
	Max *float64
}

// Contains reports whether total lies within the bounds, endpoints included
func (r PriceRange) Contains(total float64) bool {
	if r.Min != nil && total < *r.Min {
		return false
	}
	if r.Max != nil && total > *r.Max {
		return false
	}
	return true
}
