package models

import (
	"encoding/json"
	"net/http"
)

const problemBaseURI = "https://api.cleanair.pk/problems/"

// Problem is an RFC7807 body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError rejects a single request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Kind classifies an API failure. Each kind has a fixed type URI, title and status.
type Kind int

const (
	KindValidation Kind = iota
	KindUnauthorized
	KindTLSRequired
	KindNotFound
	KindUnsupportedMediaType
	KindTooManyRequests
	KindInternal
	KindUnavailable
)

type kindInfo struct {
	slug   string
	title  string
	status int
}

var kinds = map[Kind]kindInfo{
	KindValidation:           {"validation-error", "Validation error", http.StatusBadRequest},
	KindUnauthorized:         {"unauthorized", "Unauthorized", http.StatusUnauthorized},
	KindTLSRequired:          {"tls-required", "TLS required", http.StatusForbidden},
	KindNotFound:             {"not-found", "Not found", http.StatusNotFound},
	KindUnsupportedMediaType: {"unsupported-media-type", "Unsupported media type", http.StatusUnsupportedMediaType},
	KindTooManyRequests:      {"too-many-requests", "Too many requests", http.StatusTooManyRequests},
	KindInternal:             {"internal-error", "Internal server error", http.StatusInternalServerError},
	KindUnavailable:          {"service-unavailable", "Service unavailable", http.StatusServiceUnavailable},
}

// Problem type URIs, one per Kind.
const (
	ProblemTypeValidation           = problemBaseURI + "validation-error"
	ProblemTypeUnauthorized         = problemBaseURI + "unauthorized"
	ProblemTypeTLSRequired          = problemBaseURI + "tls-required"
	ProblemTypeNotFound             = problemBaseURI + "not-found"
	ProblemTypeUnsupportedMediaType = problemBaseURI + "unsupported-media-type"
	ProblemTypeTooManyRequests      = problemBaseURI + "too-many-requests"
	ProblemTypeInternal             = problemBaseURI + "internal-error"
	ProblemTypeUnavailable          = problemBaseURI + "service-unavailable"
)

// TypeURI returns the problem type URI for k. Unknown kinds map to internal-error.
func (k Kind) TypeURI() string {
	return problemBaseURI + k.info().slug
}

// Status returns the HTTP status code for k.
func (k Kind) Status() int {
	return k.info().status
}

func (k Kind) info() kindInfo {
	if info, ok := kinds[k]; ok {
		return info
	}
	return kinds[KindInternal]
}

// NewProblem builds a Problem of the given kind.
func NewProblem(kind Kind, traceID, detail string) *Problem {
	info := kind.info()
	return &Problem{
		Type:    kind.TypeURI(),
		Title:   info.title,
		Status:  info.status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// NewValidationProblem builds a 400 listing the rejected fields.
func NewValidationProblem(traceID, detail string, errors []FieldError) *Problem {
	p := NewProblem(KindValidation, traceID, detail)
	p.Errors = errors
	return p
}

// Write sends p with its status code. X-Request-Id echoes the trace ID.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}
