package services

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Artssj1234/mesa-y-pedidos-app/app/models"
)

// AuthReason says why a login was refused.
type AuthReason string

const (
	InvalidCredentials AuthReason = "invalid_credentials"
	NoSession          AuthReason = "no_session"
)

// AuthFailure is returned for bad credentials or a missing session.
type AuthFailure struct {
	Reason AuthReason
}

func (e *AuthFailure) Error() string { return "auth failure: " + string(e.Reason) }

// ValidationError reports malformed or missing input, detected before any
// write reaches the database.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ReferentialIntegrityError blocks a delete while dependent rows exist.
type ReferentialIntegrityError struct {
	Entity    string
	ID        string
	Dependent string
	Count     int64
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("cannot delete %s %s: %d dependent %s", e.Entity, e.ID, e.Count, e.Dependent)
}

// InvalidTransition rejects an order status change that is not the next
// step in the flow.
type InvalidTransition struct {
	OrderID string
	From    models.Status
	To      models.Status
}

func (e *InvalidTransition) Error() string {
	return fmt.Sprintf("order %s: cannot move from %s to %s", e.OrderID, e.From, e.To)
}

// BackendError wraps any failed database or broker operation.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *BackendError) Unwrap() error { return e.Err }

// NotFound reports whether the backend failure was a missing row.
func (e *BackendError) NotFound() bool { return errors.Is(e.Err, gorm.ErrRecordNotFound) }

func backend(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}

// isDuplicate recognises unique-index violations from every supported driver.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "duplicate entry")
}
