package storage

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

func fixedClock(start time.Time) func() time.Time {
	at := start
	return func() time.Time {
		at = at.Add(time.Second)
		return at
	}
}

func newOrder(id, first, last, mrn, med string) *Order {
	return &Order{
		ID:         id,
		Patient:    model.PatientInput{FirstName: first, LastName: last, MRN: mrn},
		Medication: model.MedicationInput{Name: med},
		Status:     model.StatusPending,
	}
}

func TestSaveAndGetReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	o := newOrder("abc123", "Jane", "Doe", "123456", "Pyridostigmine")
	o.Medication.AdditionalDiagnoses = []string{"I10"}
	store.Save(o)

	got, err := store.Get("abc123")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
	got.Medication.AdditionalDiagnoses[0] = "changed"

	again, err := store.Get("abc123")
	require.NoError(t, err)
	assert.Equal(t, []string{"I10"}, again.Medication.AdditionalDiagnoses)

	_, err = store.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateStatusAndComplete(t *testing.T) {
	store := NewMemoryStore()
	store.Save(newOrder("a", "Jane", "Doe", "123456", "X"))

	require.NoError(t, store.UpdateStatus("a", model.StatusFailed, "llm unavailable"))
	got, _ := store.Get("a")
	assert.Equal(t, "llm unavailable", got.ErrorMessage)

	require.NoError(t, store.Complete("a", model.CarePlan{Content: "plan", LLMModel: "stub"}))
	got, _ = store.Get("a")
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Empty(t, got.ErrorMessage)
	require.NotNil(t, got.CarePlan)
	assert.NotNil(t, got.CarePlan.GeneratedAt)
	assert.NotNil(t, got.CompletedAt)

	assert.ErrorIs(t, store.UpdateStatus("missing", model.StatusProcessing, ""), ErrNotFound)
	assert.ErrorIs(t, store.Complete("missing", model.CarePlan{}), ErrNotFound)
}

func TestSearch(t *testing.T) {
	store := NewMemoryStore()
	store.now = fixedClock(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	store.Save(newOrder("abc123", "Jane", "Doe", "123456", "Pyridostigmine"))
	store.Save(newOrder("def456", "John", "Smith", "654321", "IVIG"))
	store.Save(newOrder("xyz999", "Mary", "Doering", "111222", "Rituximab"))

	cases := []struct {
		query string
		want  []string
	}{
		{"doe", []string{"xyz999", "abc123"}},
		{"PYRIDO", []string{"abc123"}},
		{"6543", []string{"def456"}},
		{"xyz", []string{"xyz999"}},
		{"nothing", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			ids := []string{}
			for _, o := range store.Search(tc.query) {
				ids = append(ids, o.ID)
			}
			assert.Equal(t, tc.want, ids)
		})
	}
}

func TestSearchIsCapped(t *testing.T) {
	store := NewMemoryStore()
	for i := 0; i < SearchLimit+5; i++ {
		store.Save(newOrder(fmt.Sprintf("id%02d", i), "Jane", "Doe", "123456", "X"))
	}
	assert.Len(t, store.Search("jane"), SearchLimit)
}
