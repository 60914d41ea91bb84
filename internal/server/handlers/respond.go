// Package handlers contains the HTTP endpoint implementations. Handlers are
// thin: they decode, validate, call the store, and encode. Cross-cutting
// concerns live in the middleware pipeline.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/svckit/svckit/internal/errors"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// writeJSON encodes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps any error onto the {"detail": ...} error shape. Unknown
// errors collapse to a generic 500 so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	appErr := apperrors.From(err)
	writeJSON(w, appErr.Status, map[string]string{"detail": appErr.Detail})
}

// decodeJSON decodes the request body into dst and runs struct validation.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.WrapInvalidInput(err, "Invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return apperrors.NewValidationFailed(validationDetail(verrs))
		}
		return apperrors.WrapInvalidInput(err, "Invalid request body")
	}
	return nil
}

// validationDetail renders validator failures as a single human-readable
// detail string, one clause per failed field.
func validationDetail(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			parts = append(parts, fmt.Sprintf("field '%s' is required", fieldName(fe)))
		case "email":
			parts = append(parts, fmt.Sprintf("field '%s' must be a valid email address", fieldName(fe)))
		case "min":
			parts = append(parts, fmt.Sprintf("field '%s' must be at least %s", fieldName(fe), fe.Param()))
		case "max":
			parts = append(parts, fmt.Sprintf("field '%s' must be at most %s", fieldName(fe), fe.Param()))
		case "gte":
			parts = append(parts, fmt.Sprintf("field '%s' must be >= %s", fieldName(fe), fe.Param()))
		default:
			parts = append(parts, fmt.Sprintf("field '%s' failed '%s' validation", fieldName(fe), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}

func fieldName(fe validator.FieldError) string {
	return strings.ToLower(fe.Field())
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewInvalidInput("Invalid id parameter")
	}
	return id, nil
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// pageParams parses page/page_size query parameters with clamped defaults.
func pageParams(r *http.Request) (page, pageSize int) {
	page = 1
	pageSize = defaultPageSize
	if raw := r.URL.Query().Get("page"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			page = v
		}
	}
	if raw := r.URL.Query().Get("page_size"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			pageSize = v
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
