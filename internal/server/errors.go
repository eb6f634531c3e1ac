package server

import "net/http"

const (
	typeError      = "error"
	typeValidation = "validation_error"
	typeBlock      = "block"
)

// apiError is the envelope every non-2xx response carries.
type apiError struct {
	Type    string      `json:"type"`
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Detail  interface{} `json:"detail,omitempty"`
	status  int
}

// fieldError names one rejected request field.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func validationFailed(errs []fieldError) *apiError {
	return &apiError{
		Type:    typeValidation,
		Code:    "VALIDATION_ERROR",
		Message: "Request validation failed.",
		Detail:  map[string]interface{}{"errors": errs},
		status:  http.StatusBadRequest,
	}
}

func orderNotFound(id string) *apiError {
	return &apiError{
		Type:    typeBlock,
		Code:    "ORDER_NOT_FOUND",
		Message: "Order not found",
		Detail:  map[string]string{"order_id": id},
		status:  http.StatusNotFound,
	}
}

func respondError(w http.ResponseWriter, e *apiError) {
	respondJSON(w, e.status, e)
}
