package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// APIError is a structured error response from the schemafence API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("schemafence: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("schemafence: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func errStatus(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports whether the error is a 404. The server answers 404
// both for missing orgs and for orgs the principal is not a member of.
func IsNotFound(err error) bool { return errStatus(err) == http.StatusNotFound }

// IsForbidden reports whether the error is a 403: insufficient role or a
// failed second factor.
func IsForbidden(err error) bool { return errStatus(err) == http.StatusForbidden }

// IsConflict reports whether the error is a 409: duplicate slug, last
// owner or a tenant in the wrong lifecycle state.
func IsConflict(err error) bool { return errStatus(err) == http.StatusConflict }

// IsRateLimited reports whether the error is a 429.
func IsRateLimited(err error) bool { return errStatus(err) == http.StatusTooManyRequests }

// parseAPIError decodes a JSON error body, falling back to the raw text
// when the server did not produce the envelope.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
