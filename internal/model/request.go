package model

import "time"

// PatientInput is the patient block of a creation request.
type PatientInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	DOB       string `json:"dob"`
	MRN       string `json:"mrn"`
}

// ProviderInput is the provider block of a creation request.
type ProviderInput struct {
	Name string `json:"name"`
	NPI  string `json:"npi"`
}

// MedicationInput always encodes both lists, empty ones as [].
type MedicationInput struct {
	Name                string   `json:"name"`
	PrimaryDiagnosis    string   `json:"primary_diagnosis"`
	AdditionalDiagnoses []string `json:"additional_diagnoses"`
	MedicationHistory   []string `json:"medication_history"`
}

// CreateOrderRequest is the body of POST /api/orders/.
type CreateOrderRequest struct {
	Patient        PatientInput    `json:"patient"`
	Provider       ProviderInput   `json:"provider"`
	Medication     MedicationInput `json:"medication"`
	PatientRecords string          `json:"patient_records"`
}

// SearchRequest is the body of POST /api/orders/search/.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResultSummary is the projection of an order returned by search. It
// never carries the care plan or error.
type SearchResultSummary struct {
	OrderID     string     `json:"order_id"`
	PatientName string     `json:"patient_name"`
	PatientMRN  string     `json:"patient_mrn"`
	Medication  string     `json:"medication"`
	Status      Status     `json:"status"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// SearchResults is one search response.
type SearchResults struct {
	Count  int                   `json:"count"`
	Orders []SearchResultSummary `json:"orders"`
}

// Clone copies the result slice.
func (s SearchResults) Clone() SearchResults {
	out := SearchResults{Count: s.Count}
	if s.Orders != nil {
		out.Orders = make([]SearchResultSummary, len(s.Orders))
		copy(out.Orders, s.Orders)
	}
	return out
}
