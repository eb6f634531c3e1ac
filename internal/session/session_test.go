package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	require.NoError(t, err)
	assert.Nil(t, s.Order)
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careplan", "session.yaml")
	rec := model.OrderRecord{
		OrderID:    "abc123",
		Status:     model.StatusCompleted,
		Patient:    &model.Patient{Name: "Jane Doe", MRN: "123456"},
		Medication: &model.Medication{Name: "Pyridostigmine", AdditionalDiagnoses: []string{"I10", ""}},
		CarePlan:   &model.CarePlan{Content: "Plan text"},
		Error:      &model.OrderError{Message: "get order: connection refused", Transient: true},
	}
	require.NoError(t, Save(path, Session{APIURL: "http://localhost:8000", Order: &rec, LastQuery: "doe"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "order_id: abc123")

	got, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, got.Order)
	assert.Equal(t, rec, *got.Order)
	assert.Equal(t, "doe", got.LastQuery)
	assert.Equal(t, "http://localhost:8000", got.APIURL)
	assert.False(t, got.SavedAt.IsZero())
}

func TestLoadRejectsNewerVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 99\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, Save(path, Session{}))
	require.NoError(t, Clear(path))
	require.NoError(t, Clear(path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
