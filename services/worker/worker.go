package worker

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"ebaymonitor/server/config"
	"ebaymonitor/server/internal/listing"
	"ebaymonitor/server/logger"
	"ebaymonitor/server/services/cache"
	"ebaymonitor/server/services/publisher"
)

// Searcher runs one search pipeline
type Searcher interface {
	Search(ctx context.Context, params listing.Params) ([]listing.Listing, error)
}

// Notification is the message published for each newly seen listing
type Notification struct {
	Search  string          `json:"search"`
	Listing listing.Listing `json:"listing"`
}

// Worker periodically runs saved searches and publishes listings it has not seen before
type Worker struct {
	ctx       context.Context
	searcher  Searcher
	searches  []config.SavedSearch
	publisher publisher.Publisher
	seen      cache.CacheService
	seenTTL   time.Duration
	interval  time.Duration
	log       *logger.Logger
}

// NewWorker creates a new worker. seen may be nil, in which case every
// listing of every run is published.
func NewWorker(
	ctx context.Context,
	searcher Searcher,
	searches []config.SavedSearch,
	pub publisher.Publisher,
	seen cache.CacheService,
	seenTTL time.Duration,
	interval time.Duration,
) *Worker {
	return &Worker{
		ctx:       ctx,
		searcher:  searcher,
		searches:  searches,
		publisher: pub,
		seen:      seen,
		seenTTL:   seenTTL,
		interval:  interval,
		log:       logger.ForComponent("worker"),
	}
}

// Start runs the saved searches every interval until the context is cancelled
func (w *Worker) Start() error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		published := w.RunOnce()
		w.log.Info().
			Dur("elapsed", time.Since(start)).
			Int("published", published).
			Msg("Watch cycle finished")

		select {
		case <-w.ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce runs every saved search in parallel, then trims the streams.
// It returns the number of listings published.
func (w *Worker) RunOnce() int {
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for _, s := range w.searches {
		wg.Add(1)
		go func(s config.SavedSearch) {
			defer wg.Done()
			n := w.searchAndPublish(s)
			mu.Lock()
			total += n
			mu.Unlock()
		}(s)
	}
	wg.Wait()

	if err := w.publisher.TrimStreams(w.ctx); err != nil {
		w.log.Error().Err(err).Msg("Stream trimming failed")
	}
	return total
}

// searchAndPublish runs one saved search and publishes unseen listings
func (w *Worker) searchAndPublish(s config.SavedSearch) int {
	log := w.log.WithField("search", s.Name)

	listings, err := w.searcher.Search(w.ctx, ParamsFor(s))
	if err != nil {
		log.Error().Err(err).Msg("Saved search rejected")
		return 0
	}

	published := 0
	for _, l := range listings {
		if !w.markSeen(s.Name, l.ID, log) {
			continue
		}

		data, err := json.Marshal(Notification{Search: s.Name, Listing: l})
		if err != nil {
			log.Error().Err(err).Str("listing_id", l.ID).Msg("Failed to marshal listing")
			w.forget(s.Name, l.ID, log)
			continue
		}

		if err := w.publisher.Publish(w.ctx, s.Name, data); err != nil {
			log.Error().Err(err).Str("listing_id", l.ID).Msg("Failed to publish listing")
			w.forget(s.Name, l.ID, log)
			continue
		}
		published++
	}

	if published > 0 {
		log.Debug().Int("published", published).Int("listings", len(listings)).Msg("Published new listings")
	}
	return published
}

// markSeen reports whether the listing is new for this search.
// Cache failures count as new so nothing is silently dropped.
func (w *Worker) markSeen(search, id string, log *logger.Logger) bool {
	if w.seen == nil {
		return true
	}

	stored, err := w.seen.SetIfAbsent(cache.Key("seen", search, id), []byte("1"), w.seenTTL)
	if err != nil {
		log.Warn().Err(err).Str("listing_id", id).Msg("Seen marker unavailable")
		return true
	}
	return stored
}

// forget drops the seen marker so the next cycle retries the listing
func (w *Worker) forget(search, id string, log *logger.Logger) {
	if w.seen == nil {
		return
	}
	if err := w.seen.Delete(cache.Key("seen", search, id)); err != nil {
		log.Warn().Err(err).Str("listing_id", id).Msg("Failed to clear seen marker")
	}
}

// ParamsFor converts a saved search into pipeline parameters
func ParamsFor(s config.SavedSearch) listing.Params {
	return listing.Params{
		SearchQuery:      s.SearchQuery,
		PositiveKeywords: s.PositiveKeywords,
		NegativeKeywords: s.NegativeKeywords,
		MinTotalPrice:    s.MinTotalPrice,
		MaxTotalPrice:    s.MaxTotalPrice,
		DateFrom:         s.DateFrom,
		DateTo:           s.DateTo,
		SalesTaxRateUSD:  s.SalesTaxRateUSD,
		Sort:             s.Sort,
	}
}
