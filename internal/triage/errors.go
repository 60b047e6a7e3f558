package triage

import (
	"errors"

	"github.com/linnemanlabs/go-core/xerrors"
)

var (
	// ErrEmptySymptomList means no non-empty symptom remained after trimming.
	ErrEmptySymptomList = xerrors.New("empty symptom list")

	// ErrInvalidSeverity means severity was given but is not mild, moderate or severe.
	ErrInvalidSeverity = xerrors.New("invalid severity")

	// ErrInvalidPatientAge means patient age is outside 0..130.
	ErrInvalidPatientAge = xerrors.New("invalid patient age")

	// ErrServiceUnavailable means a collaborator (classifier, store) could not serve the request.
	ErrServiceUnavailable = xerrors.New("service unavailable")
)

// Machine-readable error codes surfaced to API clients.
const (
	CodeEmptySymptomList   = "empty_symptom_list"
	CodeInvalidSeverity    = "invalid_severity"
	CodeInvalidPatientAge  = "invalid_patient_age"
	CodeServiceUnavailable = "service_unavailable"
)

// ValidationError is a client-input error. It is never retried automatically.
type ValidationError struct {
	Code    string
	Message string
	kind    error
}

func (e *ValidationError) Error() string { return e.Message }

// Is lets errors.Is match the sentinel for the error's code.
func (e *ValidationError) Is(target error) bool { return target == e.kind }

// AsValidationError unwraps err into a *ValidationError if it is one.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
