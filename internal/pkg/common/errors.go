package common

import (
	"errors"
	"net/http"
)

// ErrorResponse is the JSON error shape returned by the API.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// CustomError carries an error code and the HTTP status it maps to.
type CustomError struct {
	Code    string
	Message string
	Err     error
	Status  int
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// NewError creates a new CustomError.
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError is a client-input error detected before any backend call.
type ValidationError struct {
	Code    string
	message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError creates a new validation error with a stable code.
func NewValidationError(code, message string) error {
	return &ValidationError{
		Code:    code,
		message: message,
	}
}

// IsValidationError reports whether err is a validation error.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// Predefined error codes.
const (
	// Client errors (4xx)
	ErrCodeInvalidRequest   = "INVALID_REQUEST"   // 400
	ErrCodeMissingContent   = "MISSING_CONTENT"   // 400
	ErrCodeMissingAllergens = "MISSING_ALLERGENS" // 400
	ErrCodeInvalidImage     = "INVALID_IMAGE"     // 400
	ErrCodeTooManyRequests  = "TOO_MANY_REQUESTS" // 429

	// Server errors (5xx)
	ErrCodeInternalError = "INTERNAL_ERROR" // 500
	ErrCodeOllamaError   = "OLLAMA_ERROR"   // 502
)

// Predefined errors.
var (
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "formato de requisição inválido", http.StatusBadRequest, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "requisições demais, tente novamente em instantes", http.StatusTooManyRequests, nil)
	ErrInternalError   = NewError(ErrCodeInternalError, "erro interno do servidor", http.StatusInternalServerError, nil)

	// Validation errors, checked before any call to the inference backend.
	ErrMissingContent   = NewValidationError(ErrCodeMissingContent, "Informe ingredientsText ou envie imageBase64.")
	ErrMissingAllergens = NewValidationError(ErrCodeMissingAllergens, "Selecione pelo menos 1 alergia (allergens).")

	// Cache errors are soft: a miss or a full cache never fails a check.
	ErrCacheMiss = NewError("CACHE_MISS", "cache não encontrado", http.StatusServiceUnavailable, nil)
	ErrCacheFull = NewError("CACHE_FULL", "cache cheio", http.StatusServiceUnavailable, nil)
)
