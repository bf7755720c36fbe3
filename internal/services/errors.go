package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/lapakku/internal/models"
)

// Sentinel failures surfaced by the service layer. The HTTP error
// handler maps them onto status codes.
var (
	// ErrNotFound means the referenced record does not exist in the
	// queried scope. An inactive or sold product can be invisible to
	// default queries yet still exist.
	ErrNotFound = errors.New("record not found")

	// ErrPermissionDenied means the caller is authenticated but does
	// not own the target record, or is not authenticated at all.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrImageLimit rejects the write that would exceed the per-product
	// image cap. Prior state is untouched.
	ErrImageLimit = fmt.Errorf("maximum of %d images per product", models.MaxProductImages)
)

// ValidationError carries a field-to-message map for malformed or
// constraint-violating input. Always recoverable by the caller.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}
