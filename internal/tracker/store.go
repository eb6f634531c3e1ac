package tracker

import (
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

// State is the coarse state of the Store. The active record's own status
// subdivides StateTracking.
type State int

const (
	StateEmpty State = iota
	StateTracking
)

func (s State) String() string {
	if s == StateTracking {
		return "tracking"
	}
	return "empty"
}

// Policy decides what happens when completions land out of issue order.
type Policy int

const (
	// PolicyLatestIssued applies a completion only when its ticket is the
	// newest one issued; older completions are discarded.
	PolicyLatestIssued Policy = iota
	// PolicyLastWriteWins applies every completion in arrival order.
	PolicyLastWriteWins
)

func (p Policy) String() string {
	if p == PolicyLastWriteWins {
		return "last-write-wins"
	}
	return "latest-issued"
}

// Action names the request that produced a write.
type Action string

const (
	ActionSubmit  Action = "submit"
	ActionRefresh Action = "refresh"
	ActionSelect  Action = "select"
)

// Ticket is handed out when a request is issued and presented again when its
// response is written.
type Ticket struct {
	Seq     uint64
	Action  Action
	OrderID string
}

// Snapshot is an immutable view of the Store.
type Snapshot struct {
	State    State
	Record   *model.OrderRecord
	Revision uint64
	Issued   uint64
	Applied  Ticket
}

// OrderID returns the active order id, or "".
func (s Snapshot) OrderID() string {
	if s.Record == nil {
		return ""
	}
	return s.Record.OrderID
}

var (
	ErrStale         = errors.New("tracker: response superseded by a newer request")
	ErrNoActiveOrder = errors.New("tracker: no active order")
)

type writeKind int

const (
	writeSubmitReplace writeKind = iota
	writeRefreshReplace
	writeRefreshFailed
	writeSelectReplace
)

func (k writeKind) String() string {
	switch k {
	case writeSubmitReplace:
		return "submit-replace"
	case writeRefreshReplace:
		return "refresh-replace"
	case writeRefreshFailed:
		return "refresh-failed"
	default:
		return "select-replace"
	}
}

// write is the closed set of mutations the Store accepts.
type write struct {
	kind    writeKind
	ticket  Ticket
	record  model.OrderRecord
	message string
}

// reduce computes the next record from the previous one.
func (w write) reduce(prev *model.OrderRecord) (model.OrderRecord, error) {
	switch w.kind {
	case writeRefreshFailed:
		if prev == nil {
			return model.OrderRecord{}, ErrNoActiveOrder
		}
		next := prev.Clone()
		next.Error = &model.OrderError{Message: w.message, Transient: true}
		return next, nil
	default:
		return w.record.Clone(), nil
	}
}

// Store holds the single active order. Writes go through the four replace
// operations only; reads return copies.
type Store struct {
	mu        sync.Mutex
	policy    Policy
	log       zerolog.Logger
	record    *model.OrderRecord
	issued    uint64
	revision  uint64
	applied   Ticket
	observers map[int]func(Snapshot)
	nextObs   int
}

// NewStore returns an empty store.
func NewStore(policy Policy, log zerolog.Logger) *Store {
	return &Store{
		policy:    policy,
		log:       log,
		observers: make(map[int]func(Snapshot)),
	}
}

// Policy returns the arbitration policy.
func (s *Store) Policy() Policy {
	return s.policy
}

// Restore seeds an empty store with a record saved by an earlier session. It
// does nothing once the store is tracking.
func (s *Store) Restore(rec model.OrderRecord) bool {
	s.mu.Lock()
	if s.record != nil {
		s.mu.Unlock()
		return false
	}
	cp := rec.Clone()
	s.record = &cp
	s.revision++
	snap := s.snapshotLocked()
	obs := s.observerList()
	s.mu.Unlock()
	notify(obs, snap)
	return true
}

// Begin issues a ticket with the next sequence number.
func (s *Store) Begin(action Action, orderID string) Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	return Ticket{Seq: s.issued, Action: action, OrderID: orderID}
}

// SubmitReplace installs the result of a submission.
func (s *Store) SubmitReplace(t Ticket, rec model.OrderRecord) error {
	return s.apply(write{kind: writeSubmitReplace, ticket: t, record: rec})
}

// RefreshReplace installs a refreshed record.
func (s *Store) RefreshReplace(t Ticket, rec model.OrderRecord) error {
	return s.apply(write{kind: writeRefreshReplace, ticket: t, record: rec})
}

// RefreshFailed attaches a transient error note to the active record and
// leaves everything else, status included, untouched.
func (s *Store) RefreshFailed(t Ticket, msg string) error {
	return s.apply(write{kind: writeRefreshFailed, ticket: t, message: msg})
}

// SelectReplace installs the record of a selected search result.
func (s *Store) SelectReplace(t Ticket, rec model.OrderRecord) error {
	return s.apply(write{kind: writeSelectReplace, ticket: t, record: rec})
}

func (s *Store) apply(w write) error {
	s.mu.Lock()
	if s.policy == PolicyLatestIssued && w.ticket.Seq < s.issued {
		issued := s.issued
		s.mu.Unlock()
		s.log.Warn().
			Str("write", w.kind.String()).
			Uint64("seq", w.ticket.Seq).
			Uint64("issued", issued).
			Str("order_id", w.ticket.OrderID).
			Msg("discarding stale response")
		return ErrStale
	}
	next, err := w.reduce(s.record)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prevID := ""
	if s.record != nil {
		prevID = s.record.OrderID
	}
	s.record = &next
	s.revision++
	s.applied = w.ticket
	snap := s.snapshotLocked()
	obs := s.observerList()
	s.mu.Unlock()

	ev := s.log.Debug()
	if prevID != "" && next.OrderID != "" && prevID != next.OrderID && w.kind == writeRefreshReplace {
		// A refresh answered for a different order than the one it replaced.
		ev = s.log.Warn()
	}
	ev.Str("write", w.kind.String()).
		Uint64("seq", w.ticket.Seq).
		Str("order_id", next.OrderID).
		Str("previous_order_id", prevID).
		Str("status", string(next.Status)).
		Msg("active order updated")
	notify(obs, snap)
	return nil
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Active returns a copy of the active record.
func (s *Store) Active() (model.OrderRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return model.OrderRecord{}, false
	}
	return s.record.Clone(), true
}

// Subscribe registers fn to receive a snapshot after every applied write. It
// is called on the goroutine that completed the write. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.observers, id)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Revision: s.revision,
		Issued:   s.issued,
		Applied:  s.applied,
	}
	if s.record != nil {
		cp := s.record.Clone()
		snap.Record = &cp
		snap.State = StateTracking
	}
	return snap
}

func (s *Store) observerList() []func(Snapshot) {
	out := make([]func(Snapshot), 0, len(s.observers))
	for _, fn := range s.observers {
		out = append(out, fn)
	}
	return out
}

func notify(obs []func(Snapshot), snap Snapshot) {
	for _, fn := range obs {
		fn(snap)
	}
}
