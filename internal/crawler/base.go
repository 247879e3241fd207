package crawler

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"ebaymonitor/server/internal/listing"
	"ebaymonitor/server/logger"
	"ebaymonitor/server/pkg/errors"
	"ebaymonitor/server/services/cache"
)

// BaseCrawler provides fetching, caching and fragment processing shared by crawlers
type BaseCrawler struct {
	Provider     string
	Fetcher      Fetcher
	CacheSvc     cache.CacheService
	BlockTime    time.Duration
	PageCacheTTL time.Duration
	Workers      int
}

func (c *BaseCrawler) blockKey() string {
	return cache.Key("block", c.Provider)
}

// fetchWithCache fetches a URL, honouring an upstream rate-limit block and the page cache
func (c *BaseCrawler) fetchWithCache(ctx context.Context, url string, log *logger.Logger) (io.Reader, error) {
	if c.CacheSvc != nil {
		if _, err := c.CacheSvc.Get(c.blockKey()); err == nil {
			return nil, errors.NewRateLimit(c.Provider, "block marker present")
		}

		if c.PageCacheTTL > 0 {
			if stored, err := c.CacheSvc.Get(cache.Key("page", url)); err == nil {
				page, err := decompressPage(stored)
				if err == nil {
					log.Debug().Int("bytes", len(page)).Msg("Serving page from cache")
					return bytes.NewReader(page), nil
				}
				log.Warn().Err(err).Msg("Discarding unreadable cached page")
			}
		}
	}

	body, err := c.Fetcher.Fetch(ctx, url)
	if err != nil {
		if c.CacheSvc != nil && c.BlockTime > 0 && errors.IsType(err, errors.ErrorTypeRateLimit) {
			if setErr := c.CacheSvc.Set(c.blockKey(), []byte(time.Now().Format(time.RFC3339)), c.BlockTime); setErr != nil {
				log.Warn().Err(setErr).Msg("Failed to store rate limit block")
			}
		}
		return nil, err
	}

	if c.CacheSvc == nil || c.PageCacheTTL <= 0 {
		return body, nil
	}

	page, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.NewNetwork(c.Provider, "failed to read page", err)
	}
	if err := c.storePage(url, page); err != nil {
		log.Warn().Err(err).Int("bytes", len(page)).Msg("Failed to cache page")
	}
	return bytes.NewReader(page), nil
}

// storePage gzips the page before caching it. A full results page is
// larger than memcached's default 1 MB item limit; compressed it fits.
func (c *BaseCrawler) storePage(url string, page []byte) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(page); err != nil {
		return errors.NewCache(c.Provider, "failed to compress page", err)
	}
	if err := zw.Close(); err != nil {
		return errors.NewCache(c.Provider, "failed to compress page", err)
	}
	return c.CacheSvc.Set(cache.Key("page", url), buf.Bytes(), c.PageCacheTTL)
}

func decompressPage(stored []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(stored))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

// createDocument creates a goquery document from a reader
func (c *BaseCrawler) createDocument(reader io.Reader) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, errors.NewParsing(c.Provider, "HTML parse error", err)
	}
	return doc, nil
}

// processFragments runs processor over every selection on a bounded pool of goroutines.
// Survivors are returned in document order regardless of completion order.
func (c *BaseCrawler) processFragments(selections *goquery.Selection, processor ProcessorFunc) []listing.Listing {
	n := selections.Length()
	results := make([]listing.Listing, n)
	kept := make([]bool, n)

	workers := c.Workers
	if workers <= 0 {
		workers = 1
	}
	semaphore := make(chan struct{}, workers)

	var wg sync.WaitGroup
	selections.Each(func(i int, s *goquery.Selection) {
		wg.Add(1)
		go func(i int, s *goquery.Selection) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[i], kept[i] = processor(s)
		}(i, s)
	})
	wg.Wait()

	listings := make([]listing.Listing, 0, n)
	for i := range results {
		if kept[i] {
			listings = append(listings, results[i])
		}
	}
	return listings
}
