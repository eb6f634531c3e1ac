// Package intake turns raw order form fields into the creation payload.
package intake

import (
	"fmt"
	"os"
	"strings"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
	pdfutil "github.com/ridgelee/AI-Agent---Care-Plan/internal/pdf"
)

// Form holds the order form exactly as entered. The two list fields are
// comma separated free text.
type Form struct {
	PatientFirstName    string
	PatientLastName     string
	PatientDOB          string
	PatientMRN          string
	ProviderName        string
	ProviderNPI         string
	MedicationName      string
	PrimaryDiagnosis    string
	AdditionalDiagnoses string
	MedicationHistory   string
	PatientRecords      string
}

// SplitList splits comma separated text. An empty source yields an empty
// list; otherwise every segment is kept, trimmed, including empty ones.
func SplitList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// Request builds the creation payload. No field is validated here.
func (f Form) Request() model.CreateOrderRequest {
	return model.CreateOrderRequest{
		Patient: model.PatientInput{
			FirstName: f.PatientFirstName,
			LastName:  f.PatientLastName,
			DOB:       f.PatientDOB,
			MRN:       f.PatientMRN,
		},
		Provider: model.ProviderInput{
			Name: f.ProviderName,
			NPI:  f.ProviderNPI,
		},
		Medication: model.MedicationInput{
			Name:                f.MedicationName,
			PrimaryDiagnosis:    f.PrimaryDiagnosis,
			AdditionalDiagnoses: SplitList(f.AdditionalDiagnoses),
			MedicationHistory:   SplitList(f.MedicationHistory),
		},
		PatientRecords: f.PatientRecords,
	}
}

// Missing lists the required fields left blank. Callers decide whether to
// block on it; the submission itself never does.
func (f Form) Missing() []string {
	required := []struct {
		name  string
		value string
	}{
		{"patient first name", f.PatientFirstName},
		{"patient last name", f.PatientLastName},
		{"patient dob", f.PatientDOB},
		{"patient mrn", f.PatientMRN},
		{"provider name", f.ProviderName},
		{"provider npi", f.ProviderNPI},
		{"medication name", f.MedicationName},
		{"primary diagnosis", f.PrimaryDiagnosis},
	}
	var missing []string
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			missing = append(missing, r.name)
		}
	}
	return missing
}

// ReadPatientRecords loads patient records from a text or PDF file.
func ReadPatientRecords(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read patient records: %w", err)
	}
	if pdfutil.IsPDF(data) {
		text, err := pdfutil.ExtractText(data)
		if err != nil {
			return "", fmt.Errorf("extract patient records: %w", err)
		}
		return text, nil
	}
	return string(data), nil
}
