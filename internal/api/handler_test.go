package api

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ebaymonitor/server/internal/listing"
	"ebaymonitor/server/logger"
	"ebaymonitor/server/pkg/errors"
)

type fakeSearcher struct {
	listings []listing.Listing
	err      error
	params   listing.Params
	calls    int
}

func (f *fakeSearcher) Search(ctx context.Context, params listing.Params) ([]listing.Listing, error) {
	f.calls++
	f.params = params
	return f.listings, f.err
}

func serve(t *testing.T, searcher Searcher, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewListingsHandler(searcher), "https://app.example.com")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHandleListings(t *testing.T) {
	searcher := &fakeSearcher{listings: []listing.Listing{
		listing.Price(listing.RawListing{
			ID:        "item1a",
			Title:     "RX 6700XT",
			Condition: "Pre-Owned",
			ItemPrice: 199.99,
			ListedAt:  time.Date(2024, 6, 9, 14, 30, 0, 0, time.UTC),
		}, 0.08),
	}}

	rec := serve(t, searcher, http.MethodGet,
		"/EbayListings?searchQuery=6700xt&positiveKeywords=12gb,pulse&negativeKeywords=broken"+
			"&minTotalPrice=100&maxTotalPrice=300&dateFrom=2024-06-01&dateTo=2024-06-10"+
			"&salesTaxRateUsd=0.08&sort=newest")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, listing.Params{
		SearchQuery:      "6700xt",
		PositiveKeywords: "12gb,pulse",
		NegativeKeywords: "broken",
		MinTotalPrice:    "100",
		MaxTotalPrice:    "300",
		DateFrom:         "2024-06-01",
		DateTo:           "2024-06-10",
		SalesTaxRateUSD:  "0.08",
		Sort:             "newest",
	}, searcher.params)

	var body []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "item1a", body[0]["id"])
	assert.Equal(t, "Pre-Owned", body[0]["condition"])
	assert.Equal(t, 199.99, body[0]["itemPriceUsd"])
	assert.Equal(t, 15.99, body[0]["salesTaxUsd"])
	assert.Equal(t, 215.98, body[0]["totalPriceUsd"])
	assert.Equal(t, "2024-06-09T14:30:00Z", body[0]["listedAt"])
}

func TestHandleListingsEmptyIsArray(t *testing.T) {
	rec := serve(t, &fakeSearcher{}, http.MethodGet, "/api/listings")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestHandleListingsInputError(t *testing.T) {
	searcher := &fakeSearcher{err: errors.NewInput("minTotalPrice", "not a number", nil)}
	rec := serve(t, searcher, http.MethodGet, "/EbayListings?minTotalPrice=cheap")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body["error"], "minTotalPrice")
}

func TestHandleListingsInternalError(t *testing.T) {
	rec := serve(t, &fakeSearcher{err: stderrors.New("boom")}, http.MethodGet, "/EbayListings")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal error"}`, rec.Body.String())
}

func TestPreflight(t *testing.T) {
	searcher := &fakeSearcher{}
	rec := serve(t, searcher, http.MethodOptions, "/EbayListings")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "GET, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, 0, searcher.calls)
}

func TestMethodNotAllowed(t *testing.T) {
	rec := serve(t, &fakeSearcher{}, http.MethodPost, "/EbayListings")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeSearcher{}, http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

// brokenWriter accepts headers but fails every body write
type brokenWriter struct {
	header http.Header
	status int
}

func (b *brokenWriter) Header() http.Header {
	return b.header
}

func (b *brokenWriter) Write(p []byte) (int, error) {
	return 0, stderrors.New("client went away")
}

func (b *brokenWriter) WriteHeader(code int) {
	b.status = code
}

func TestWriteFailureIsLogged(t *testing.T) {
	var buf bytes.Buffer
	h := NewListingsHandler(&fakeSearcher{})
	h.log = logger.New(&buf)

	w := &brokenWriter{header: http.Header{}}
	h.HandleListings(w, httptest.NewRequest(http.MethodGet, "/EbayListings", nil))

	assert.Equal(t, http.StatusOK, w.status)
	assert.Contains(t, buf.String(), "Failed to write response")
	assert.Contains(t, buf.String(), "client went away")
}
