package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ebaymonitor/server/helpers"
	"ebaymonitor/server/internal/listing"
)

// selectionFragment exposes one listing <li> through listing.Fragment.
// All knowledge of the source markup stays in Selectors and here.
type selectionFragment struct {
	s         *goquery.Selection
	selectors Selectors
}

var _ listing.Fragment = selectionFragment{}

func newFragment(s *goquery.Selection, selectors Selectors) selectionFragment {
	return selectionFragment{s: s, selectors: selectors}
}

func (f selectionFragment) text(selector string) (string, bool) {
	sel := f.s.Find(selector).First()
	if sel.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(sel.Text()), true
}

func (f selectionFragment) ID() string {
	return strings.TrimSpace(f.s.AttrOr("id", ""))
}

func (f selectionFragment) Title() (string, bool) {
	return f.text(f.selectors.Title)
}

func (f selectionFragment) Condition() (string, bool) {
	return f.text(f.selectors.Condition)
}

func (f selectionFragment) ItemPrice() (string, bool) {
	return f.text(f.selectors.ItemPrice)
}

func (f selectionFragment) Shipping() (string, bool) {
	return f.text(f.selectors.Shipping)
}

func (f selectionFragment) ListingDate() (string, bool) {
	return f.text(f.selectors.ListingDate)
}

// URL returns the item link without its tracking query string
func (f selectionFragment) URL() string {
	href := strings.TrimSpace(f.s.Find(f.selectors.Link).First().AttrOr("href", ""))
	link, _ := helpers.GetSplitPart(href, "?", 0)
	return link
}

// ImageURL prefers src and falls back to the lazy-load attribute
func (f selectionFragment) ImageURL() string {
	img := f.s.Find(f.selectors.Image).First()
	if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" && !strings.HasPrefix(src, "data:") {
		return src
	}
	return strings.TrimSpace(img.AttrOr("data-src", ""))
}
