// Package model contains the order shapes shared by the client, the tracker,
// and the stub server.
package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// Status is the processing state reported by the server. The four known
// values form a closed set; anything else is kept verbatim so it can still be
// shown to the user.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Known reports whether s is one of the four lifecycle states.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether the server will not advance the order any further.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Label is the human readable status line. Unrecognized values are shown
// upper-cased.
func (s Status) Label() string {
	switch s {
	case StatusPending:
		return "PENDING - Queued for processing"
	case StatusProcessing:
		return "PROCESSING - Generating Care Plan..."
	case StatusCompleted:
		return "COMPLETED"
	case StatusFailed:
		return "FAILED"
	case "":
		return "UNKNOWN"
	}
	return strings.ToUpper(string(s))
}

// Patient identifies the subject of an order. The detail endpoint returns a
// combined Name instead of the split first/last fields.
type Patient struct {
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Name      string `json:"name,omitempty"`
	DOB       string `json:"dob,omitempty"`
	MRN       string `json:"mrn,omitempty"`
}

// DisplayName prefers the server supplied name.
func (p Patient) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}

// Provider is the ordering clinician.
type Provider struct {
	Name string `json:"name,omitempty"`
	NPI  string `json:"npi,omitempty"`
}

// Medication describes what the care plan is for.
type Medication struct {
	Name                string   `json:"name"`
	PrimaryDiagnosis    string   `json:"primary_diagnosis,omitempty"`
	AdditionalDiagnoses []string `json:"additional_diagnoses,omitempty"`
	MedicationHistory   []string `json:"medication_history,omitempty"`
}

// UnmarshalJSON accepts either the full object or the bare medication name
// that detail and search responses use.
func (m *Medication) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*m = Medication{Name: name}
		return nil
	}
	type plain Medication
	var out plain
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return err
	}
	*m = Medication(out)
	return nil
}

// CarePlan is the generated artifact of a completed order.
type CarePlan struct {
	Content     string     `json:"content"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	LLMModel    string     `json:"llm_model,omitempty"`
	DownloadURL string     `json:"download_url,omitempty"`
}

// OrderError carries the failure description of an order. Transient marks a
// client-side read failure attached to an otherwise intact record; it is never
// sent or received over the wire.
type OrderError struct {
	Message      string `json:"message"`
	RetryAllowed bool   `json:"retry_allowed,omitempty"`
	Transient    bool   `json:"-"`
}

// OrderRecord is one tracked care plan generation job.
type OrderRecord struct {
	OrderID        string      `json:"order_id,omitempty"`
	Status         Status      `json:"status"`
	Patient        *Patient    `json:"patient,omitempty"`
	Provider       *Provider   `json:"provider,omitempty"`
	Medication     *Medication `json:"medication,omitempty"`
	PatientRecords string      `json:"patient_records,omitempty"`
	CarePlan       *CarePlan   `json:"care_plan,omitempty"`
	Error          *OrderError `json:"error,omitempty"`
	Message        string      `json:"message,omitempty"`
	CreatedAt      *time.Time  `json:"created_at,omitempty"`
	UpdatedAt      *time.Time  `json:"updated_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty"`
}

// FailedRecord builds the synthetic record used when no usable order exists
// after a failed request.
func FailedRecord(msg string) OrderRecord {
	return OrderRecord{
		Status: StatusFailed,
		Error:  &OrderError{Message: msg},
	}
}

// HasCarePlan reports whether generated content is present.
func (r OrderRecord) HasCarePlan() bool {
	return r.Status == StatusCompleted && r.CarePlan != nil
}

// Clone returns a deep copy so callers cannot mutate shared state.
func (r OrderRecord) Clone() OrderRecord {
	out := r
	if r.Patient != nil {
		p := *r.Patient
		out.Patient = &p
	}
	if r.Provider != nil {
		p := *r.Provider
		out.Provider = &p
	}
	if r.Medication != nil {
		m := *r.Medication
		m.AdditionalDiagnoses = cloneStrings(r.Medication.AdditionalDiagnoses)
		m.MedicationHistory = cloneStrings(r.Medication.MedicationHistory)
		out.Medication = &m
	}
	if r.CarePlan != nil {
		c := *r.CarePlan
		c.GeneratedAt = cloneTime(r.CarePlan.GeneratedAt)
		out.CarePlan = &c
	}
	if r.Error != nil {
		e := *r.Error
		out.Error = &e
	}
	out.CreatedAt = cloneTime(r.CreatedAt)
	out.UpdatedAt = cloneTime(r.UpdatedAt)
	out.CompletedAt = cloneTime(r.CompletedAt)
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
