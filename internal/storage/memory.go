// Package storage keeps the stub server's orders in memory. A RWMutex guards
// the map so detail polling and search can read concurrently while the
// processing pool advances orders.
package storage

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

var (
	// ErrNotFound is returned for unknown order ids.
	ErrNotFound = errors.New("order not found")
)

// SearchLimit caps the number of orders returned by Search.
const SearchLimit = 20

// Order is the stub server's view of one care plan order.
type Order struct {
	ID             string
	Patient        model.PatientInput
	Provider       model.ProviderInput
	Medication     model.MedicationInput
	PatientRecords string
	Status         model.Status
	ErrorMessage   string
	CarePlan       *model.CarePlan
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    *time.Time
}

// PatientName joins first and last name the way the detail view shows it.
func (o Order) PatientName() string {
	return o.Patient.FirstName + " " + o.Patient.LastName
}

func (o Order) clone() Order {
	out := o
	out.Medication.AdditionalDiagnoses = append([]string(nil), o.Medication.AdditionalDiagnoses...)
	out.Medication.MedicationHistory = append([]string(nil), o.Medication.MedicationHistory...)
	if o.CarePlan != nil {
		plan := *o.CarePlan
		out.CarePlan = &plan
	}
	if o.CompletedAt != nil {
		at := *o.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

// MemoryStore is an in-memory order table.
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string]*Order
	now    func() time.Time
}

// NewMemoryStore constructs a MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders: make(map[string]*Order),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Save inserts or replaces an order, stamping its timestamps.
func (m *MemoryStore) Save(order *Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	order.UpdatedAt = now
	stored := order.clone()
	m.orders[order.ID] = &stored
}

// UpdateStatus moves an order to status. errMsg is kept only for failed orders.
func (m *MemoryStore) UpdateStatus(id string, status model.Status, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	rec.Status = status
	rec.ErrorMessage = ""
	if status == model.StatusFailed {
		rec.ErrorMessage = errMsg
	}
	rec.UpdatedAt = m.now()
	return nil
}

// Complete attaches the generated plan and marks the order completed.
func (m *MemoryStore) Complete(id string, plan model.CarePlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.orders[id]
	if !ok {
		return ErrNotFound
	}
	now := m.now()
	if plan.GeneratedAt == nil {
		plan.GeneratedAt = &now
	}
	rec.CarePlan = &plan
	rec.Status = model.StatusCompleted
	rec.ErrorMessage = ""
	rec.UpdatedAt = now
	rec.CompletedAt = &now
	return nil
}

// Get returns a copy of the order.
func (m *MemoryStore) Get(id string) (*Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec.clone()
	return &out, nil
}

// Search matches query case-insensitively against the order id, medication
// name, MRN, and patient first or last name. Results are newest first and
// capped at SearchLimit.
func (m *MemoryStore) Search(query string) []Order {
	q := strings.ToLower(strings.TrimSpace(query))
	m.mu.RLock()
	matches := make([]Order, 0)
	for _, rec := range m.orders {
		if matchesQuery(rec, q) {
			matches = append(matches, rec.clone())
		}
	}
	m.mu.RUnlock()
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	if len(matches) > SearchLimit {
		matches = matches[:SearchLimit]
	}
	return matches
}

func matchesQuery(rec *Order, q string) bool {
	for _, field := range []string{
		rec.ID,
		rec.Medication.Name,
		rec.Patient.MRN,
		rec.Patient.FirstName,
		rec.Patient.LastName,
	} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
