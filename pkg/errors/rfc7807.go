package errors

import (
	"encoding/json"
	"net/http"
)

// Problem type URIs
const (
	TypeValidationError  = "https://api.accounts.local/problems/validation-error"
	TypeUnauthorized     = "https://api.accounts.local/problems/unauthorized"
	TypeForbidden        = "https://api.accounts.local/problems/forbidden"
	TypeNotFound         = "https://api.accounts.local/problems/not-found"
	TypeMethodNotAllowed = "https://api.accounts.local/problems/method-not-allowed"
	TypeConflict         = "https://api.accounts.local/problems/conflict"
	TypeRateLimit        = "https://api.accounts.local/problems/rate-limit"
	TypeUnavailable      = "https://api.accounts.local/problems/unavailable"
	TypeInternalError    = "https://api.accounts.local/problems/internal-error"
)

// Problem titles
const (
	TitleValidationError  = "Validation Error"
	TitleUnauthorized     = "Unauthorized"
	TitleForbidden        = "Forbidden"
	TitleNotFound         = "Not Found"
	TitleMethodNotAllowed = "Method Not Allowed"
	TitleConflict         = "Conflict"
	TitleRateLimit        = "Rate Limit Exceeded"
	TitleUnavailable      = "Service Unavailable"
	TitleInternalError    = "Internal Server Error"
)

// ValidationError represents a validation error for RFC 7807
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string                 `json:"type"`
	Title    string                 `json:"title"`
	Status   int                    `json:"status"`
	Detail   string                 `json:"detail,omitempty"`
	Instance string                 `json:"instance,omitempty"`
	TraceID  string                 `json:"trace_id,omitempty"`
	Errors   []ValidationError      `json:"errors,omitempty"`
	Extra    map[string]interface{} `json:"-"`
}

// Error implements the error interface
func (p *ProblemDetails) Error() string {
	return p.Detail
}

// WithTraceID adds a trace ID to the problem details
func (p *ProblemDetails) WithTraceID(traceID string) *ProblemDetails {
	p.TraceID = traceID
	return p
}

// WithExtra adds extra fields to the problem details (they will be serialized at the top level)
func (p *ProblemDetails) WithExtra(key string, value interface{}) *ProblemDetails {
	if p.Extra == nil {
		p.Extra = make(map[string]interface{})
	}
	p.Extra[key] = value
	return p
}

// MarshalJSON implements custom JSON marshaling to include extra fields at the top level
func (p *ProblemDetails) MarshalJSON() ([]byte, error) {
	result := make(map[string]interface{})
	result["type"] = p.Type
	result["title"] = p.Title
	result["status"] = p.Status
	if p.Detail != "" {
		result["detail"] = p.Detail
	}
	if p.Instance != "" {
		result["instance"] = p.Instance
	}
	if p.TraceID != "" {
		result["trace_id"] = p.TraceID
	}
	if len(p.Errors) > 0 {
		result["errors"] = p.Errors
	}
	for k, v := range p.Extra {
		result[k] = v
	}

	return json.Marshal(result)
}

// NewProblemDetails creates a generic problem details with all fields
func NewProblemDetails(problemType, title string, status int, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// NewInternalError creates an internal server error problem
func NewInternalError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeInternalError, TitleInternalError, http.StatusInternalServerError, detail, instance)
}

// NewRateLimitError creates a rate limit error problem
func NewRateLimitError(detail, instance string) *ProblemDetails {
	return NewProblemDetails(TypeRateLimit, TitleRateLimit, http.StatusTooManyRequests, detail, instance)
}

// ToProblemDetails converts an Error into a problem document.
func (e *Error) ToProblemDetails(instance string) *ProblemDetails {
	status := HTTPStatus(e)
	var pd *ProblemDetails
	switch status {
	case http.StatusBadRequest:
		pd = NewProblemDetails(TypeValidationError, TitleValidationError, status, e.Message, instance)
	case http.StatusUnauthorized:
		pd = NewProblemDetails(TypeUnauthorized, TitleUnauthorized, status, e.Message, instance)
	case http.StatusForbidden:
		pd = NewProblemDetails(TypeForbidden, TitleForbidden, status, e.Message, instance)
	case http.StatusNotFound:
		pd = NewProblemDetails(TypeNotFound, TitleNotFound, status, e.Message, instance)
	case http.StatusMethodNotAllowed:
		pd = NewProblemDetails(TypeMethodNotAllowed, TitleMethodNotAllowed, status, e.Message, instance)
	case http.StatusConflict:
		pd = NewProblemDetails(TypeConflict, TitleConflict, status, e.Message, instance)
	case http.StatusServiceUnavailable:
		pd = NewProblemDetails(TypeUnavailable, TitleUnavailable, status, e.Message, instance)
	default:
		// only deliberate Internal errors expose their message
		if Is(e, Internal) && e.Message != "" {
			return NewInternalError(e.Message, instance)
		}
		return NewInternalError("An unexpected error occurred", instance)
	}
	if pd.Detail == "" {
		pd.Detail = http.StatusText(status)
	}
	for _, field := range e.Fields {
		pd.Errors = append(pd.Errors, ValidationError{
			Field:   field.Field,
			Message: field.Message,
			Code:    field.Kind,
		})
	}
	return pd
}

// ToProblem converts any error into a problem document.
func ToProblem(err error, instance string) *ProblemDetails {
	var pd *ProblemDetails
	if As(err, &pd) {
		return pd
	}
	var e *Error
	if As(err, &e) {
		return e.ToProblemDetails(instance)
	}
	return NewInternalError("An unexpected error occurred", instance)
}
