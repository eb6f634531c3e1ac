// Package tracker holds the order lifecycle core: the active order store and
// the components that submit, refresh, search, select, and export orders.
//
// Every request-issuing component takes a ticket from the Store before its
// request goes out and writes its result with that ticket. Under the default
// PolicyLatestIssued a response is dropped when a newer request was issued
// after it, so an old refresh can never overwrite a newer selection.
package tracker

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

// OrderAPI is the HTTP contract the tracker depends on.
type OrderAPI interface {
	CreateOrder(ctx context.Context, req model.CreateOrderRequest) (model.OrderRecord, error)
	GetOrder(ctx context.Context, orderID string) (model.OrderRecord, error)
	SearchOrders(ctx context.Context, query string) (model.SearchResults, error)
	DownloadURL(orderID string) string
}

// ErrInFlight is returned when a component is invoked while its previous
// request is still outstanding.
var ErrInFlight = errors.New("tracker: request already in flight")

// inflight allows one outstanding request per component.
type inflight struct {
	busy atomic.Bool
}

func (f *inflight) acquire() bool { return f.busy.CompareAndSwap(false, true) }
func (f *inflight) release()      { f.busy.Store(false) }
func (f *inflight) Busy() bool    { return f.busy.Load() }

// Tracker wires the store and its components around one API.
type Tracker struct {
	Store     *Store
	Submitter *Submitter
	Refresher *Refresher
	Searcher  *Searcher
	Selector  *Selector
	Exporter  *Exporter
}

type options struct {
	policy  Policy
	log     zerolog.Logger
	initial *model.OrderRecord
}

// Option configures New.
type Option func(*options)

// WithPolicy selects the arbitration policy.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithLogger sets the logger used by every component.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithInitial seeds the store with a previously tracked record.
func WithInitial(rec model.OrderRecord) Option {
	return func(o *options) {
		cp := rec.Clone()
		o.initial = &cp
	}
}

// New builds a Tracker.
func New(api OrderAPI, opts ...Option) *Tracker {
	o := options{policy: PolicyLatestIssued, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	store := NewStore(o.policy, o.log.With().Str("component", "store").Logger())
	if o.initial != nil {
		store.Restore(*o.initial)
	}
	return &Tracker{
		Store:     store,
		Submitter: NewSubmitter(api, store, o.log),
		Refresher: NewRefresher(api, store, o.log),
		Searcher:  NewSearcher(api, o.log),
		Selector:  NewSelector(api, store, o.log),
		Exporter:  NewExporter(api, store),
	}
}
