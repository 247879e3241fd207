package internal

import (
	"ebaymonitor/server/helpers"
	"ebaymonitor/server/logger"
	"ebaymonitor/server/services/cache"
	"ebaymonitor/server/services/publisher"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Fetcher   *helpers.Fetcher
	Cache     cache.CacheService
	Publisher publisher.Publisher
}

// Cleanup releases the services that hold connections
func (d *Dependencies) Cleanup() {
	if d.Publisher != nil {
		if err := d.Publisher.Close(); err != nil {
			logger.LogError("publisher", err, "Failed to close publisher")
		}
	}
}
