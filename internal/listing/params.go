package listing

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"ebaymonitor/server/helpers"
	"ebaymonitor/server/pkg/errors"
)

// KeywordSeparator joins keywords in the positive/negative keyword parameters
const KeywordSeparator = ","

// Params are the raw inbound request parameters; every field is optional
type Params struct {
	SearchQuery      string
	PositiveKeywords string
	NegativeKeywords string
	MinTotalPrice    string
	MaxTotalPrice    string
	DateFrom         string
	DateTo           string
	SalesTaxRateUSD  string
	Sort             string
}

// Criteria is the validated filter bundle for one search run
type Criteria struct {
	SearchQuery string
	Keywords    KeywordFilter
	Price       PriceRange
	Dates       DateRange
	TaxRate     float64
	Sort        SortKey
}

// ParseParams validates p. Any malformed value is an input error and no
// partial Criteria is returned.
func ParseParams(p Params, now time.Time, loc *time.Location) (Criteria, error) {
	c := Criteria{
		SearchQuery: strings.TrimSpace(p.SearchQuery),
		Keywords: KeywordFilter{
			Required: helpers.SplitList(p.PositiveKeywords, KeywordSeparator),
			Excluded: helpers.SplitList(p.NegativeKeywords, KeywordSeparator),
		},
	}

	var err error
	if c.Price.Min, err = parseAmount("minTotalPrice", p.MinTotalPrice); err != nil {
		return Criteria{}, err
	}
	if c.Price.Max, err = parseAmount("maxTotalPrice", p.MaxTotalPrice); err != nil {
		return Criteria{}, err
	}

	rate, err := parseAmount("salesTaxRateUsd", p.SalesTaxRateUSD)
	if err != nil {
		return Criteria{}, err
	}
	if rate != nil {
		c.TaxRate = *rate
	}

	if c.Dates, err = NewDateRange(p.DateFrom, p.DateTo, now, loc); err != nil {
		return Criteria{}, err
	}

	c.Sort = SortKey(strings.TrimSpace(p.Sort))
	if !c.Sort.Valid() {
		return Criteria{}, errors.NewInput("sort", fmt.Sprintf("unknown sort key %q", p.Sort), nil)
	}

	return c, nil
}

// parseAmount parses an optional non-negative number; empty yields nil
func parseAmount(param, s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, errors.NewInput(param, fmt.Sprintf("not a number: %q", s), err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return nil, errors.NewInput(param, fmt.Sprintf("must be a non-negative number: %q", s), nil)
	}
	return &v, nil
}

// Apply prices raw with the criteria's tax rate and runs every filter on it
func (c Criteria) Apply(raw RawListing) (Listing, bool) {
	l := Price(raw, c.TaxRate)
	return l, c.Accept(l)
}

// Accept runs the date, keyword and price filters in order
func (c Criteria) Accept(l Listing) bool {
	if !c.Dates.Contains(l.ListedAt) {
		return false
	}
	if !c.Keywords.Match(l.Title) {
		return false
	}
	return c.Price.Contains(l.Total())
}
