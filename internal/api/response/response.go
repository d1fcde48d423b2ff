// Package response writes JSON and problem+json responses for the CleanAir API.
// Every response carries the request ID as X-Request-Id.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/cleanairpk/cleanair/internal/api/middleware"
	"github.com/cleanairpk/cleanair/internal/api/models"
)

// ValidationDetail is the detail of problems built from field errors.
const ValidationDetail = "validation failed"

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
}

// JSON writes data as a JSON body with the given status code.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Problem stamps the request path on p and writes it.
func Problem(w http.ResponseWriter, r *http.Request, p *models.Problem) {
	p.Instance = r.URL.Path
	p.Write(w)
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// BadRequest writes a 400 with an optional list of field errors.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Problem(w, r, models.NewValidationProblem(traceID(r), detail, errors))
}

// Invalid writes a 400 for one or more rejected fields.
func Invalid(w http.ResponseWriter, r *http.Request, errors ...models.FieldError) {
	BadRequest(w, r, ValidationDetail, errors)
}

// Unauthorized writes a 401.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewProblem(models.KindUnauthorized, traceID(r), detail))
}

// NotFound writes a 404.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewProblem(models.KindNotFound, traceID(r), detail))
}

// InternalError writes a 500. detail must not leak internals.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewProblem(models.KindInternal, traceID(r), detail))
}

// ServiceUnavailable writes a 503, used when a backing store or provider is down.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Problem(w, r, models.NewProblem(models.KindUnavailable, traceID(r), detail))
}
