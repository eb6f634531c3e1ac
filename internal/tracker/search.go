package tracker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/client"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

// ErrEmptyQuery is the local validation failure for a blank search.
var ErrEmptyQuery = errors.New("please enter a search term")

// Searcher runs searches and keeps the latest result set. Results are never
// written into the Store.
type Searcher struct {
	inflight
	api OrderAPI
	log zerolog.Logger

	mu      sync.RWMutex
	results *model.SearchResults
	query   string
}

// NewSearcher constructs a Searcher.
func NewSearcher(api OrderAPI, log zerolog.Logger) *Searcher {
	return &Searcher{api: api, log: log.With().Str("component", "searcher").Logger()}
}

// Search issues one search request. Blank queries are refused before any
// request. On failure the previous result set stays in place.
func (s *Searcher) Search(ctx context.Context, query string) (model.SearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return model.SearchResults{}, ErrEmptyQuery
	}
	if !s.acquire() {
		return model.SearchResults{}, ErrInFlight
	}
	defer s.release()

	res, err := s.api.SearchOrders(ctx, query)
	if err != nil {
		s.log.Warn().Err(err).Str("query", query).Msg("search failed")
		return model.SearchResults{}, fmt.Errorf("search orders: %w", err)
	}
	s.log.Debug().Str("query", query).Int("count", res.Count).Msg("search completed")

	s.mu.Lock()
	cp := res.Clone()
	s.results = &cp
	s.query = query
	s.mu.Unlock()
	return res.Clone(), nil
}

// Results returns the latest successful result set and its query.
func (s *Searcher) Results() (model.SearchResults, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.results == nil {
		return model.SearchResults{}, "", false
	}
	return s.results.Clone(), s.query, true
}

// Selector loads a search result as the active order. Several selections
// may be pending at once; the Store's policy decides which one sticks.
type Selector struct {
	api   OrderAPI
	store *Store
	log   zerolog.Logger
}

// NewSelector constructs a Selector.
func NewSelector(api OrderAPI, store *Store, log zerolog.Logger) *Selector {
	return &Selector{api: api, store: store, log: log.With().Str("component", "selector").Logger()}
}

// Select fetches orderID and replaces the active order with it. A failed
// fetch installs a synthetic failed record.
func (s *Selector) Select(ctx context.Context, orderID string) error {
	if strings.TrimSpace(orderID) == "" {
		return fmt.Errorf("select order: order id is required")
	}
	ticket := s.store.Begin(ActionSelect, orderID)
	s.log.Debug().Uint64("seq", ticket.Seq).Str("order_id", orderID).Msg("selecting order")

	rec, err := s.api.GetOrder(ctx, orderID)
	if err != nil {
		s.log.Error().Err(err).Uint64("seq", ticket.Seq).Str("order_id", orderID).Msg("selection failed")
		if werr := s.store.SelectReplace(ticket, model.FailedRecord(client.Description(err))); werr != nil && !errors.Is(werr, ErrStale) {
			return werr
		}
		return fmt.Errorf("select order %s: %w", orderID, err)
	}
	return s.store.SelectReplace(ticket, rec)
}
