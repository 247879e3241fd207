package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// SavedSearch is one entry of the watch list
type SavedSearch struct {
	Name             string `yaml:"name"`
	SearchQuery      string `yaml:"search_query"`
	PositiveKeywords string `yaml:"positive_keywords"`
	NegativeKeywords string `yaml:"negative_keywords"`
	MinTotalPrice    string `yaml:"min_total_price"`
	MaxTotalPrice    string `yaml:"max_total_price"`
	DateFrom         string `yaml:"date_from"`
	DateTo           string `yaml:"date_to"`
	SalesTaxRateUSD  string `yaml:"sales_tax_rate_usd"`
	Sort             string `yaml:"sort"`
}

// WatchList is the file format read from WATCH_FILE
type WatchList struct {
	Searches []SavedSearch `yaml:"searches"`
}

// LoadWatchList reads and validates a watch list file
func LoadWatchList(path string) (*WatchList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watch list: %w", err)
	}

	var list WatchList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse watch list: %w", err)
	}

	if len(list.Searches) == 0 {
		return nil, fmt.Errorf("watch list %s has no searches", path)
	}

	seen := make(map[string]bool, len(list.Searches))
	for i, s := range list.Searches {
		if s.Name == "" {
			return nil, fmt.Errorf("watch list entry %d has no name", i)
		}
		if seen[s.Name] {
			return nil, fmt.Errorf("duplicate watch list entry %q", s.Name)
		}
		seen[s.Name] = true
	}

	return &list, nil
}
