package crawler

import (
	"context"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ebaymonitor/server/internal/listing"
)

// Fetcher retrieves a page body as UTF-8
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.Reader, error)
}

// ProcessorFunc turns one fragment into a listing, reporting false to drop it
type ProcessorFunc func(*goquery.Selection) (listing.Listing, bool)

// Selectors contains CSS selectors for the nodes of one listing fragment
type Selectors struct {
	Fragment    string
	Title       string
	Condition   string
	ItemPrice   string
	Shipping    string
	ListingDate string
	Link        string
	Image       string
}

// EbaySelectors matches the markup of the eBay search results page
var EbaySelectors = Selectors{
	Fragment:    `li[class*="s-item"]`,
	Title:       `div[class*="s-item__title"] > span[role*="heading"]`,
	Condition:   `div[class*="s-item__subtitle"] > span[class*="SECONDARY_INFO"]`,
	ItemPrice:   `div[class*="s-item__detail"] > span[class*="s-item__price"]`,
	Shipping:    `div[class*="s-item__detail"] > span[class*="s-item__shipping"]`,
	ListingDate: `span[class*="s-item__detail"] span[class*="s-item__listingDate"]`,
	Link:        `a[class*="s-item__link"]`,
	Image:       `div[class*="s-item__image"] img`,
}

// CrawlerConfig contains configuration for a crawler
type CrawlerConfig struct {
	SearchURL    string
	Provider     string
	BlockTime    time.Duration
	PageCacheTTL time.Duration
	Workers      int
	Location     *time.Location
	Selectors    Selectors
}

// Stage is a step of one search run
type Stage string

const (
	StageFetching   Stage = "fetching"
	StageExtracting Stage = "extracting"
	StageSorting    Stage = "sorting"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)
