package clients

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"enclave-sdk/internal/dto"
)

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Method     string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s %s: status %d (%s): %s", e.Method, e.Endpoint, e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Endpoint, e.StatusCode, e.Message)
}

func (e *APIError) IsConflict() bool     { return e.StatusCode == http.StatusConflict }
func (e *APIError) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }
func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }

func newAPIError(req request, status int, body []byte) *APIError {
	e := &APIError{StatusCode: status, Method: req.method, Endpoint: req.endpoint}
	var eb dto.ErrorBody
	if json.Unmarshal(body, &eb) == nil && (eb.Error != "" || eb.Message != "") {
		e.Code = eb.Code
		e.Message = eb.Text()
		return e
	}
	e.Message = strings.TrimSpace(string(body))
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// DecodeError is a 2xx response whose body did not match the expected shape.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to unmarshal response from %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
