package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"ebaymonitor/server/internal/listing"
	"ebaymonitor/server/logger"
	"ebaymonitor/server/pkg/errors"
)

// Searcher runs one search pipeline
type Searcher interface {
	Search(ctx context.Context, params listing.Params) ([]listing.Listing, error)
}

// ListingsHandler serves search results over HTTP
type ListingsHandler struct {
	searcher Searcher
	log      *logger.Logger
}

// NewListingsHandler creates a handler backed by searcher
func NewListingsHandler(searcher Searcher) *ListingsHandler {
	return &ListingsHandler{
		searcher: searcher,
		log:      logger.ForComponent("api"),
	}
}

// NewRouter wires the routes and middleware
func NewRouter(h *ListingsHandler, allowedOrigin string) *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(h.log))
	r.Use(cors(allowedOrigin))

	r.HandleFunc("/EbayListings", h.HandleListings).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/listings", h.HandleListings).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/healthz", h.HandleHealth).Methods(http.MethodGet)
	return r
}

// ParamsFromRequest reads the search parameters from the query string
func ParamsFromRequest(r *http.Request) listing.Params {
	q := r.URL.Query()
	return listing.Params{
		SearchQuery:      q.Get("searchQuery"),
		PositiveKeywords: q.Get("positiveKeywords"),
		NegativeKeywords: q.Get("negativeKeywords"),
		MinTotalPrice:    q.Get("minTotalPrice"),
		MaxTotalPrice:    q.Get("maxTotalPrice"),
		DateFrom:         q.Get("dateFrom"),
		DateTo:           q.Get("dateTo"),
		SalesTaxRateUSD:  q.Get("salesTaxRateUsd"),
		Sort:             q.Get("sort"),
	}
}

// HandleListings runs one search and writes the listings as a JSON array
func (h *ListingsHandler) HandleListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.searcher.Search(r.Context(), ParamsFromRequest(r))
	if err != nil {
		if errors.IsInput(err) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("Search failed")
		h.writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if listings == nil {
		listings = []listing.Listing{}
	}
	h.writeJSON(w, http.StatusOK, listings)
}

// HandleHealth reports liveness
func (h *ListingsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *ListingsHandler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}

// writeJSON writes v with status. The header is already sent when encoding
// fails, so the failure can only be logged.
func (h *ListingsHandler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Warn().Err(err).Int("status", status).Msg("Failed to write response")
	}
}
