package listing

import (
	"fmt"
	"strings"
	"time"
)

const (
	// NewListingMarker is prefixed to titles of freshly posted listings
	NewListingMarker = "New Listing"

	// DefaultCondition is used when a fragment carries no condition label
	DefaultCondition = "NA"

	// ListingDateLayout is the compact listing date format, e.g. "Oct-15 14:30"
	ListingDateLayout = "Jan-2 15:04"
)

// Fragment gives access to the fields of one listing entry in the source page.
// Lookups report false when the underlying node is absent.
type Fragment interface {
	ID() string
	Title() (string, bool)
	Condition() (string, bool)
	ItemPrice() (string, bool)
	Shipping() (string, bool)
	ListingDate() (string, bool)
	URL() string
	ImageURL() string
}

// SkipReason says why a fragment produced no listing
type SkipReason string

const (
	SkipMissingID       SkipReason = "missing identifier"
	SkipMissingField    SkipReason = "missing required field"
	SkipUnparsablePrice SkipReason = "unparsable item price"
	SkipUnparsableDate  SkipReason = "unparsable listing date"
)

// SkipError is returned by Extract for fragments that must be dropped
type SkipError struct {
	Reason SkipReason
	ID     string
	Detail string
}

func (e *SkipError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("skip %q: %s", e.ID, e.Reason)
	}
	return fmt.Sprintf("skip %q: %s: %s", e.ID, e.Reason, e.Detail)
}

func skip(reason SkipReason, id, detail string) (RawListing, error) {
	return RawListing{}, &SkipError{Reason: reason, ID: id, Detail: detail}
}

// Extract reads a raw listing out of a fragment or returns a *SkipError.
// Listing dates carry no year; the year of now (in loc) is assumed.
func Extract(f Fragment, now time.Time, loc *time.Location) (RawListing, error) {
	id := strings.TrimSpace(f.ID())
	if id == "" {
		return skip(SkipMissingID, "", "")
	}

	title, ok := f.Title()
	if !ok {
		return skip(SkipMissingField, id, "title")
	}
	isNew := strings.Contains(title, NewListingMarker)
	if isNew {
		title = strings.Replace(title, NewListingMarker, "", 1)
	}
	title = strings.TrimSpace(title)

	condition, ok := f.Condition()
	if !ok || strings.TrimSpace(condition) == "" {
		condition = DefaultCondition
	}

	priceText, ok := f.ItemPrice()
	if !ok {
		return skip(SkipMissingField, id, "item price")
	}
	itemPrice, ok := ParsePrice(priceText)
	if !ok {
		return skip(SkipUnparsablePrice, id, priceText)
	}

	// Absent or unparsable shipping means free shipping
	var shipping float64
	if shippingText, ok := f.Shipping(); ok {
		if amount, ok := ParsePrice(shippingText); ok {
			shipping = amount
		}
	}

	dateText, ok := f.ListingDate()
	if !ok {
		return skip(SkipMissingField, id, "listing date")
	}
	listedAt, err := ParseListingDate(dateText, now, loc)
	if err != nil {
		return skip(SkipUnparsableDate, id, dateText)
	}

	return RawListing{
		ID:           id,
		URLLink:      f.URL(),
		Title:        title,
		IsNewListing: isNew,
		ImageURL:     f.ImageURL(),
		Condition:    strings.TrimSpace(condition),
		ItemPrice:    itemPrice,
		ShippingCost: shipping,
		ListedAt:     listedAt,
	}, nil
}

// ParseListingDate parses a ListingDateLayout string in the year of now.
func ParseListingDate(text string, now time.Time, loc *time.Location) (time.Time, error) {
	parsed, err := time.ParseInLocation(ListingDateLayout, strings.TrimSpace(text), loc)
	if err != nil {
		return time.Time{}, err
	}

	year := now.In(loc).Year()
	t := time.Date(year, parsed.Month(), parsed.Day(), parsed.Hour(), parsed.Minute(), 0, 0, loc)
	if t.Day() != parsed.Day() {
		return time.Time{}, fmt.Errorf("%s does not exist in %d", parsed.Format("Jan-2"), year)
	}
	return t, nil
}
