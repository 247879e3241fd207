package listing

import (
	"math"
	"time"
)

// Listing is one marketplace listing that survived extraction and filtering
type Listing struct {
	ID               string    `json:"id"`
	URLLink          string    `json:"urlLink"`
	Title            string    `json:"title"`
	IsNewListing     bool      `json:"isNewListing"`
	ImageURL         string    `json:"imageUrl"`
	Condition        string    `json:"condition"`
	ItemPriceUSD     float64   `json:"itemPriceUsd"`
	ShippingPriceUSD float64   `json:"shippingPriceUsd"`
	SalesTaxUSD      float64   `json:"salesTaxUsd"`
	TotalPriceUSD    float64   `json:"totalPriceUsd"`
	ListedAt         time.Time `json:"listedAt"`

	// item + shipping + tax before truncation
	exactTotal float64
}

// Total returns the total used for filtering and ordering.
func (l Listing) Total() float64 {
	if l.exactTotal != 0 {
		return l.exactTotal
	}
	return l.TotalPriceUSD
}

// RawListing is what the extractor reads from a fragment, before tax is applied
type RawListing struct {
	ID           string
	URLLink      string
	Title        string
	IsNewListing bool
	ImageURL     string
	Condition    string
	ItemPrice    float64
	ShippingCost float64
	ListedAt     time.Time
}

// Price computes sales tax and the total for raw and returns the finished listing.
// Each amount is truncated to cents independently, so the stored total may differ
// from the sum of the stored components by up to 0.02.
func Price(raw RawListing, taxRate float64) Listing {
	tax := raw.ItemPrice * taxRate
	total := raw.ItemPrice + raw.ShippingCost + tax

	return Listing{
		ID:               raw.ID,
		URLLink:          raw.URLLink,
		Title:            raw.Title,
		IsNewListing:     raw.IsNewListing,
		ImageURL:         raw.ImageURL,
		Condition:        raw.Condition,
		ItemPriceUSD:     Truncate2(raw.ItemPrice),
		ShippingPriceUSD: Truncate2(raw.ShippingCost),
		SalesTaxUSD:      Truncate2(tax),
		TotalPriceUSD:    Truncate2(total),
		ListedAt:         raw.ListedAt,
		exactTotal:       total,
	}
}

// Truncate2 drops everything past the second fractional digit of a non-negative amount.
func Truncate2(v float64) float64 {
	// 199.99*100 is 19998.999... in binary floating point
	return math.Floor(v*100+1e-6) / 100
}
