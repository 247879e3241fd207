package crawler

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebaymonitor/server/internal/listing"
	"ebaymonitor/server/pkg/errors"
)

// searchPage mimics the eBay search results markup
const searchPage = `<!DOCTYPE html>
<html><body>
<ul class="srp-results">
  <li class="s-item s-item__pl-on-bottom" id="">
    <div class="s-item__title"><span role="heading">Shop on eBay</span></div>
  </li>
  <li class="s-item s-item__pl-on-bottom" id="item1a">
    <div class="s-item__image"><img src="https://i.ebayimg.com/1.jpg"></div>
    <a class="s-item__link" href="https://www.ebay.com/itm/111?hash=abc&amp;_trkparms=x">link</a>
    <div class="s-item__title"><span role="heading"><span class="LIGHT_HIGHLIGHT">New Listing</span>Radeon RX 6700XT 12GB</span></div>
    <div class="s-item__subtitle"><span class="SECONDARY_INFO">Pre-Owned</span></div>
    <div class="s-item__details">
      <div class="s-item__detail s-item__detail--primary"><span class="s-item__price">$199.99</span></div>
      <span class="s-item__detail s-item__detail--secondary"><span class="s-item__dynamic s-item__listingDate"><span>Jun-9 14:30</span></span></span>
    </div>
  </li>
  <li class="s-item" id="item2b">
    <div class="s-item__image"><img src="data:image/gif;base64,R0lGOD" data-src="https://i.ebayimg.com/2.jpg"></div>
    <a class="s-item__link" href="https://www.ebay.com/itm/222">link</a>
    <div class="s-item__title"><span role="heading">Sapphire RX 6700XT Pulse</span></div>
    <div class="s-item__details">
      <div class="s-item__detail"><span class="s-item__price">$150.00 to $180.00</span></div>
      <div class="s-item__detail"><span class="s-item__shipping s-item__logisticsCost">+$20.50 shipping</span></div>
      <span class="s-item__detail"><span class="s-item__listingDate">Jun-10 08:05</span></span>
    </div>
  </li>
  <li class="s-item" id="item3c">
    <a class="s-item__link" href="https://www.ebay.com/itm/333">link</a>
    <div class="s-item__title"><span role="heading">MSI RX580 8GB</span></div>
    <div class="s-item__subtitle"><span class="SECONDARY_INFO">Parts Only</span></div>
    <div class="s-item__details">
      <div class="s-item__detail"><span class="s-item__price">$49.99</span></div>
      <div class="s-item__detail"><span class="s-item__shipping">Free shipping</span></div>
      <span class="s-item__detail"><span class="s-item__listingDate">Jun-8 23:58</span></span>
    </div>
  </li>
  <li class="s-item" id="item4d">
    <div class="s-item__title"><span role="heading">Broken price RX 6700XT</span></div>
    <div class="s-item__details">
      <div class="s-item__detail"><span class="s-item__price">See price</span></div>
      <span class="s-item__detail"><span class="s-item__listingDate">Jun-9 10:00</span></span>
    </div>
  </li>
  <li class="s-item" id="item5e">
    <div class="s-item__title"><span role="heading">Bad date RX 6700XT</span></div>
    <div class="s-item__details">
      <div class="s-item__detail"><span class="s-item__price">$10.00</span></div>
      <span class="s-item__detail"><span class="s-item__listingDate">Yesterday</span></span>
    </div>
  </li>
</ul>
</body></html>`

var searchNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func newTestCrawler(fetcher Fetcher) *SearchCrawler {
	c := NewSearchCrawler(CrawlerConfig{
		SearchURL: "https://www.ebay.com/sch/i.html",
		Workers:   4,
		Location:  time.UTC,
	}, fetcher, nil)
	c.now = func() time.Time { return searchNow }
	return c
}

func ids(listings []listing.Listing) []string {
	out := make([]string, 0, len(listings))
	for _, l := range listings {
		out = append(out, l.ID)
	}
	return out
}

func TestSelectionFragment(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(searchPage))
	require.NoError(t, err)

	items := doc.Find(EbaySelectors.Fragment)
	require.Equal(t, 6, items.Length())

	f := newFragment(items.Eq(1), EbaySelectors)
	assert.Equal(t, "item1a", f.ID())
	title, ok := f.Title()
	assert.True(t, ok)
	assert.Equal(t, "New ListingRadeon RX 6700XT 12GB", title)
	condition, ok := f.Condition()
	assert.True(t, ok)
	assert.Equal(t, "Pre-Owned", condition)
	_, ok = f.Shipping()
	assert.False(t, ok)
	date, ok := f.ListingDate()
	assert.True(t, ok)
	assert.Equal(t, "Jun-9 14:30", date)
	assert.Equal(t, "https://www.ebay.com/itm/111", f.URL())
	assert.Equal(t, "https://i.ebayimg.com/1.jpg", f.ImageURL())

	f = newFragment(items.Eq(2), EbaySelectors)
	assert.Equal(t, "https://i.ebayimg.com/2.jpg", f.ImageURL())
	_, ok = f.Condition()
	assert.False(t, ok)

	f = newFragment(items.Eq(0), EbaySelectors)
	assert.Equal(t, "", f.ID())
	assert.Equal(t, "", f.URL())
	assert.Equal(t, "", f.ImageURL())
}

func TestSearchURLFor(t *testing.T) {
	c := newTestCrawler(&stubFetcher{})

	raw, err := c.SearchURLFor("rx 6700xt")
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "www.ebay.com", u.Host)
	assert.Equal(t, "/sch/i.html", u.Path)
	q := u.Query()
	assert.Equal(t, "rx 6700xt", q.Get("_nkw"))
	assert.Equal(t, "10", q.Get("_sop"))
	assert.Equal(t, "1", q.Get("LH_BIN"))
	assert.Equal(t, "240", q.Get("_ipg"))
	assert.Equal(t, "R40", q.Get("_from"))
}

func TestSearch(t *testing.T) {
	fetcher := &stubFetcher{body: searchPage}
	c := newTestCrawler(fetcher)

	listings, err := c.Search(context.Background(), listing.Params{
		SearchQuery:     "6700xt",
		SalesTaxRateUSD: "0.08",
	})
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.calls)
	assert.Contains(t, fetcher.urls[0], "_nkw=6700xt")

	// extraction order preserved, bad fragments dropped
	assert.Equal(t, []string{"item1a", "item2b", "item3c"}, ids(listings))

	first := listings[0]
	assert.Equal(t, "Radeon RX 6700XT 12GB", first.Title)
	assert.True(t, first.IsNewListing)
	assert.Equal(t, "Pre-Owned", first.Condition)
	assert.Equal(t, 199.99, first.ItemPriceUSD)
	assert.Equal(t, 0.0, first.ShippingPriceUSD)
	assert.Equal(t, 15.99, first.SalesTaxUSD)
	assert.Equal(t, 215.98, first.TotalPriceUSD)
	assert.Equal(t, time.Date(2024, 6, 9, 14, 30, 0, 0, time.UTC), first.ListedAt)
	assert.Equal(t, "https://www.ebay.com/itm/111", first.URLLink)

	second := listings[1]
	assert.Equal(t, "NA", second.Condition)
	assert.Equal(t, 150.0, second.ItemPriceUSD)
	assert.Equal(t, 20.5, second.ShippingPriceUSD)
	assert.Equal(t, 12.0, second.SalesTaxUSD)
	assert.Equal(t, 182.5, second.TotalPriceUSD)

	third := listings[2]
	assert.Equal(t, 0.0, third.ShippingPriceUSD)
	assert.Equal(t, "Parts Only", third.Condition)
}

func TestSearchFiltersAndSorts(t *testing.T) {
	c := newTestCrawler(&stubFetcher{body: searchPage})

	listings, err := c.Search(context.Background(), listing.Params{
		PositiveKeywords: "6700xt",
		NegativeKeywords: "rx580",
		Sort:             "totalPriceAsc",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"item2b", "item1a"}, ids(listings))

	listings, err = c.Search(context.Background(), listing.Params{Sort: "totalPriceDesc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item1a", "item2b", "item3c"}, ids(listings))

	listings, err = c.Search(context.Background(), listing.Params{Sort: "oldest"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item3c", "item1a", "item2b"}, ids(listings))

	listings, err = c.Search(context.Background(), listing.Params{Sort: "newest"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item2b", "item1a", "item3c"}, ids(listings))
}

func TestSearchPriceAndDateFilters(t *testing.T) {
	c := newTestCrawler(&stubFetcher{body: searchPage})

	listings, err := c.Search(context.Background(), listing.Params{MinTotalPrice: "50"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item1a", "item2b"}, ids(listings))

	listings, err = c.Search(context.Background(), listing.Params{MaxTotalPrice: "190"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item2b", "item3c"}, ids(listings))

	listings, err = c.Search(context.Background(), listing.Params{DateFrom: "2024-06-09", DateTo: "2024-06-09"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item1a"}, ids(listings))

	// "to" of today covers the whole day
	listings, err = c.Search(context.Background(), listing.Params{DateFrom: "2024-06-09", DateTo: "2024-06-10"})
	require.NoError(t, err)
	assert.Equal(t, []string{"item1a", "item2b"}, ids(listings))
}

func TestSearchInputErrorSkipsFetch(t *testing.T) {
	fetcher := &stubFetcher{body: searchPage}
	c := newTestCrawler(fetcher)

	_, err := c.Search(context.Background(), listing.Params{MinTotalPrice: "cheap"})
	require.Error(t, err)
	assert.True(t, errors.IsInput(err))

	_, err = c.Search(context.Background(), listing.Params{DateTo: "2024/06/01"})
	require.Error(t, err)
	assert.True(t, errors.IsInput(err))

	assert.Equal(t, 0, fetcher.calls)
}

func TestSearchFetchFailureYieldsEmpty(t *testing.T) {
	c := newTestCrawler(&stubFetcher{err: errors.NewNetwork("ebay", "connection refused", nil)})

	listings, err := c.Search(context.Background(), listing.Params{SearchQuery: "6700xt"})
	require.NoError(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
}

func TestSearchBlockedYieldsEmpty(t *testing.T) {
	mockCache := NewMockCacheService()
	fetcher := &stubFetcher{err: errors.NewRateLimit("ebay", "")}
	c := NewSearchCrawler(CrawlerConfig{
		SearchURL: "https://www.ebay.com/sch/i.html",
		BlockTime: time.Minute,
		Location:  time.UTC,
	}, fetcher, mockCache)

	for i := 0; i < 3; i++ {
		listings, err := c.Search(context.Background(), listing.Params{})
		require.NoError(t, err)
		assert.Empty(t, listings)
	}
	assert.Equal(t, 1, fetcher.calls)
}

func TestSearchNoFragments(t *testing.T) {
	c := newTestCrawler(&stubFetcher{body: "<html><body>No results</body></html>"})

	listings, err := c.Search(context.Background(), listing.Params{})
	require.NoError(t, err)
	assert.NotNil(t, listings)
	assert.Empty(t, listings)
}

func TestNewRunIDMonotonic(t *testing.T) {
	prev := newRunID(searchNow)
	for i := 0; i < 100; i++ {
		id := newRunID(searchNow)
		assert.Len(t, id, 26)
		assert.Greater(t, id, prev)
		prev = id
	}
}
