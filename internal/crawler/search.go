package crawler

import (
	"context"
	stderrors "errors"
	"math/rand"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/oklog/ulid/v2"

	"ebaymonitor/server/internal/listing"
	"ebaymonitor/server/logger"
	"ebaymonitor/server/pkg/errors"
	"ebaymonitor/server/services/cache"
)

// ResultsPerPage is the page size requested from the marketplace
const ResultsPerPage = "240"

// SearchCrawler runs the fetch, extract, filter and sort pipeline against
// one marketplace search results page
type SearchCrawler struct {
	BaseCrawler
	SearchURL string
	Selectors Selectors
	Location  *time.Location

	now func() time.Time
}

// NewSearchCrawler creates a search crawler.
// The fetcher is shared across runs; cacheSvc may be nil.
func NewSearchCrawler(config CrawlerConfig, fetcher Fetcher, cacheSvc cache.CacheService) *SearchCrawler {
	loc := config.Location
	if loc == nil {
		loc = time.Local
	}
	provider := config.Provider
	if provider == "" {
		provider = "ebay"
	}
	selectors := config.Selectors
	if selectors.Fragment == "" {
		selectors = EbaySelectors
	}

	return &SearchCrawler{
		BaseCrawler: BaseCrawler{
			Provider:     provider,
			Fetcher:      fetcher,
			CacheSvc:     cacheSvc,
			BlockTime:    config.BlockTime,
			PageCacheTTL: config.PageCacheTTL,
			Workers:      config.Workers,
		},
		SearchURL: config.SearchURL,
		Selectors: selectors,
		Location:  loc,
		now:       time.Now,
	}
}

// SearchURLFor builds the upstream URL: newest first, fixed-price only, one full page
func (c *SearchCrawler) SearchURLFor(query string) (string, error) {
	u, err := url.Parse(c.SearchURL)
	if err != nil {
		return "", errors.NewConfiguration("invalid search URL", err)
	}

	q := u.Query()
	q.Set("_from", "R40")
	q.Set("_nkw", query)
	q.Set("_sacat", "0")
	q.Set("_sop", "10")
	q.Set("rt", "nc")
	q.Set("LH_BIN", "1")
	q.Set("_ipg", ResultsPerPage)
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// Search runs one pipeline. Malformed params are returned as input errors before any
// network access. Upstream failures are logged and produce an empty result.
func (c *SearchCrawler) Search(ctx context.Context, params listing.Params) ([]listing.Listing, error) {
	now := c.now()

	criteria, err := listing.ParseParams(params, now, c.Location)
	if err != nil {
		return nil, err
	}

	searchURL, err := c.SearchURLFor(criteria.SearchQuery)
	if err != nil {
		return nil, err
	}

	log := logger.ForRun(newRunID(now), criteria.SearchQuery)
	log.Debug().Str("stage", string(StageFetching)).Str("url", searchURL).Msg("Fetching search page")

	body, err := c.fetchWithCache(ctx, searchURL, log)
	if err != nil {
		log.Warn().Err(err).Str("stage", string(StageFailed)).Msg("Upstream fetch failed, returning no listings")
		return []listing.Listing{}, nil
	}

	doc, err := c.createDocument(body)
	if err != nil {
		log.Warn().Err(err).Str("stage", string(StageFailed)).Msg("Upstream page unreadable, returning no listings")
		return []listing.Listing{}, nil
	}

	fragments := doc.Find(c.Selectors.Fragment)
	log.Debug().Str("stage", string(StageExtracting)).Int("fragments", fragments.Length()).Msg("Extracting listings")

	var skipped, rejected atomic.Int64
	listings := c.processFragments(fragments, func(s *goquery.Selection) (listing.Listing, bool) {
		raw, err := listing.Extract(newFragment(s, c.Selectors), now, c.Location)
		if err != nil {
			var skipErr *listing.SkipError
			if stderrors.As(err, &skipErr) && skipErr.Reason == listing.SkipMissingID {
				log.Debug().Msg("Ignoring fragment without identifier")
				return listing.Listing{}, false
			}
			skipped.Add(1)
			log.Warn().Err(err).Msg("Skipping listing")
			return listing.Listing{}, false
		}

		l, ok := criteria.Apply(raw)
		if !ok {
			rejected.Add(1)
		}
		return l, ok
	})

	log.Debug().Str("stage", string(StageSorting)).Str("sort", string(criteria.Sort)).Msg("Sorting listings")
	listing.SortListings(listings, criteria.Sort)

	log.Info().
		Str("stage", string(StageDone)).
		Int("fragments", fragments.Length()).
		Int64("skipped", skipped.Load()).
		Int64("filtered_out", rejected.Load()).
		Int("listings", len(listings)).
		Msg("Search completed")

	return listings, nil
}

// runIDEntropy is shared by all runs so ids minted in the same millisecond stay ordered
var runIDEntropy = &ulid.LockedMonotonicReader{
	MonotonicReader: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
}

func newRunID(now time.Time) string {
	return ulid.MustNew(ulid.Timestamp(now), runIDEntropy).String()
}
