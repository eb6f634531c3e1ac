package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/client"
)

// Refresher re-fetches the active order on demand.
type Refresher struct {
	inflight
	api   OrderAPI
	store *Store
	log   zerolog.Logger
}

// NewRefresher constructs a Refresher.
func NewRefresher(api OrderAPI, store *Store, log zerolog.Logger) *Refresher {
	return &Refresher{api: api, store: store, log: log.With().Str("component", "refresher").Logger()}
}

// Refresh issues one status request for the active order. Without an active
// order id it does nothing and returns ErrNoActiveOrder. A failed request
// keeps the last known record and only attaches the error message.
func (r *Refresher) Refresh(ctx context.Context) error {
	orderID := r.store.Snapshot().OrderID()
	if orderID == "" {
		return ErrNoActiveOrder
	}
	if !r.acquire() {
		return ErrInFlight
	}
	defer r.release()

	ticket := r.store.Begin(ActionRefresh, orderID)
	r.log.Debug().Uint64("seq", ticket.Seq).Str("order_id", orderID).Msg("refreshing order")

	rec, err := r.api.GetOrder(ctx, orderID)
	if err != nil {
		r.log.Warn().Err(err).Uint64("seq", ticket.Seq).Str("order_id", orderID).Msg("refresh failed")
		if werr := r.store.RefreshFailed(ticket, client.Description(err)); werr != nil && !errors.Is(werr, ErrStale) {
			return werr
		}
		return fmt.Errorf("refresh order %s: %w", orderID, err)
	}
	return r.store.RefreshReplace(ticket, rec)
}
