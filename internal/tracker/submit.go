package tracker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/client"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/intake"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

// Submitter creates orders from form input.
type Submitter struct {
	inflight
	api   OrderAPI
	store *Store
	log   zerolog.Logger
}

// NewSubmitter constructs a Submitter.
func NewSubmitter(api OrderAPI, store *Store, log zerolog.Logger) *Submitter {
	return &Submitter{api: api, store: store, log: log.With().Str("component", "submitter").Logger()}
}

// Submit issues exactly one creation request. On success the response
// becomes the active order; on failure a synthetic failed record does. The
// request error, if any, is returned after the store is updated.
func (s *Submitter) Submit(ctx context.Context, form intake.Form) error {
	if !s.acquire() {
		return ErrInFlight
	}
	defer s.release()

	ticket := s.store.Begin(ActionSubmit, "")
	s.log.Info().Uint64("seq", ticket.Seq).Str("medication", form.MedicationName).Msg("submitting order")

	rec, err := s.api.CreateOrder(ctx, form.Request())
	if err != nil {
		s.log.Error().Err(err).Uint64("seq", ticket.Seq).Msg("submission failed")
		if werr := s.store.SubmitReplace(ticket, model.FailedRecord(client.Description(err))); werr != nil && !errors.Is(werr, ErrStale) {
			return werr
		}
		return fmt.Errorf("submit order: %w", err)
	}
	s.log.Info().Uint64("seq", ticket.Seq).Str("order_id", rec.OrderID).Str("status", string(rec.Status)).Msg("order created")
	return s.store.SubmitReplace(ticket, rec)
}
