package server

import (
	"fmt"
	"mime"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/processing"
	"github.com/ridgelee/AI-Agent---Care-Plan/internal/storage"
)

var (
	npiPattern   = regexp.MustCompile(`^\d{10}$`)
	mrnPattern   = regexp.MustCompile(`^\d{6}$`)
	icd10Pattern = regexp.MustCompile(`^[A-Za-z]\d{2}(\.\d{1,4})?$`)
)

func newOrderID() string {
	return uuid.NewString()
}

type createdResponse struct {
	OrderID   string       `json:"order_id"`
	Status    model.Status `json:"status"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"created_at"`
}

type patientView struct {
	Name string `json:"name"`
	MRN  string `json:"mrn"`
}

type carePlanView struct {
	Content     string     `json:"content"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	LLMModel    string     `json:"llm_model"`
	DownloadURL string     `json:"download_url"`
}

type errorView struct {
	Message      string `json:"message"`
	RetryAllowed bool   `json:"retry_allowed"`
}

// detailResponse mirrors the production detail view: the patient is a
// combined name and the medication a bare string.
type detailResponse struct {
	OrderID     string        `json:"order_id"`
	Status      model.Status  `json:"status"`
	Patient     patientView   `json:"patient"`
	Medication  string        `json:"medication"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	Message     string        `json:"message,omitempty"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	CarePlan    *carePlanView `json:"care_plan,omitempty"`
	Error       *errorView    `json:"error,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req model.CreateOrderRequest
	if apiErr := decodeBody(w, r, &req); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	if errs := validateCreate(req); len(errs) > 0 {
		respondError(w, validationFailed(errs))
		return
	}
	order := &storage.Order{
		ID:             s.newID(),
		Patient:        req.Patient,
		Provider:       req.Provider,
		Medication:     req.Medication,
		PatientRecords: req.PatientRecords,
		Status:         model.StatusPending,
	}
	s.store.Save(order)
	s.processor.Submit(processing.Job{OrderID: order.ID})
	hlog.FromRequest(r).Info().Str("order_id", order.ID).Str("medication", order.Medication.Name).Msg("order created")
	respondJSON(w, http.StatusCreated, createdResponse{
		OrderID:   order.ID,
		Status:    model.StatusPending,
		Message:   "Order received. Care Plan generation queued.",
		CreatedAt: order.CreatedAt,
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	order, err := s.store.Get(id)
	if err != nil {
		respondError(w, orderNotFound(id))
		return
	}
	respondJSON(w, http.StatusOK, detailView(*order))
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")
	order, err := s.store.Get(id)
	if err != nil {
		respondError(w, orderNotFound(id))
		return
	}
	if order.Status != model.StatusCompleted || order.CarePlan == nil {
		respondError(w, &apiError{
			Type:    typeValidation,
			Code:    "CAREPLAN_NOT_READY",
			Message: "Care plan not ready yet",
			Detail:  map[string]string{"order_id": id, "current_status": string(order.Status)},
			status:  http.StatusBadRequest,
		})
		return
	}
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": downloadFilename(*order)})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(order.CarePlan.Content)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(order.CarePlan.Content))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req model.SearchRequest
	if apiErr := decodeBody(w, r, &req); apiErr != nil {
		respondError(w, apiErr)
		return
	}
	orders := s.store.Search(req.Query)
	out := model.SearchResults{Count: len(orders), Orders: make([]model.SearchResultSummary, 0, len(orders))}
	for _, o := range orders {
		created := o.CreatedAt
		out.Orders = append(out.Orders, model.SearchResultSummary{
			OrderID:     o.ID,
			PatientName: o.PatientName(),
			PatientMRN:  o.Patient.MRN,
			Medication:  o.Medication.Name,
			Status:      o.Status,
			CreatedAt:   &created,
		})
	}
	respondJSON(w, http.StatusOK, out)
}

func detailView(o storage.Order) detailResponse {
	out := detailResponse{
		OrderID:    o.ID,
		Status:     o.Status,
		Patient:    patientView{Name: o.PatientName(), MRN: o.Patient.MRN},
		Medication: o.Medication.Name,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	switch o.Status {
	case model.StatusPending:
		out.Message = "Order is queued for processing"
	case model.StatusProcessing:
		out.Message = "Care Plan is being generated, please wait..."
	case model.StatusCompleted:
		out.Message = "Care Plan generated successfully"
		out.CompletedAt = o.CompletedAt
		if o.CarePlan != nil {
			out.CarePlan = &carePlanView{
				Content:     o.CarePlan.Content,
				GeneratedAt: o.CarePlan.GeneratedAt,
				LLMModel:    o.CarePlan.LLMModel,
				DownloadURL: "/api/orders/" + o.ID + "/download",
			}
		}
	case model.StatusFailed:
		out.Message = "Care Plan generation failed"
		out.Error = &errorView{Message: o.ErrorMessage, RetryAllowed: true}
	}
	return out
}

// downloadFilename is careplan_{mrn}_{medication}_{yyyymmdd}.txt.
func downloadFilename(o storage.Order) string {
	return fmt.Sprintf("careplan_%s_%s_%s.txt", o.Patient.MRN, o.Medication.Name, o.CreatedAt.Format("20060102"))
}

func validateCreate(req model.CreateOrderRequest) []fieldError {
	var errs []fieldError
	required := []struct{ field, value string }{
		{"patient.first_name", req.Patient.FirstName},
		{"patient.last_name", req.Patient.LastName},
		{"provider.name", req.Provider.Name},
		{"medication.name", req.Medication.Name},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			errs = append(errs, fieldError{Field: f.field, Message: "This field is required."})
		}
	}
	if !npiPattern.MatchString(req.Provider.NPI) {
		errs = append(errs, fieldError{Field: "provider.npi", Message: "NPI must be exactly 10 digits."})
	}
	if !mrnPattern.MatchString(req.Patient.MRN) {
		errs = append(errs, fieldError{Field: "patient.mrn", Message: "MRN must be exactly 6 digits."})
	}
	if dx := req.Medication.PrimaryDiagnosis; dx != "" && !icd10Pattern.MatchString(dx) {
		errs = append(errs, fieldError{
			Field:   "medication.primary_diagnosis",
			Message: "Primary diagnosis must be valid ICD-10 format (e.g. G70.00, E11.9).",
		})
	}
	for i, code := range req.Medication.AdditionalDiagnoses {
		if code != "" && !icd10Pattern.MatchString(code) {
			errs = append(errs, fieldError{
				Field:   fmt.Sprintf("medication.additional_diagnoses[%d]", i),
				Message: fmt.Sprintf("Invalid ICD-10 code: %q.", code),
			})
		}
	}
	return errs
}
