package triage

import (
	"fmt"
	"strings"
)

const maxPatientAge = 130

// ParseSymptoms splits comma-separated text into trimmed, non-empty symptoms.
func ParseSymptoms(text string) []string {
	return NormalizeSymptoms(strings.Split(text, ","))
}

// NormalizeSymptoms trims every entry and drops the empty ones. Order and
// duplicates are preserved.
func NormalizeSymptoms(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ParseSeverity maps user input onto a Severity. Empty input yields the
// moderate default.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return SeverityModerate, nil
	case SeverityMild:
		return SeverityMild, nil
	case SeverityModerate:
		return SeverityModerate, nil
	case SeveritySevere:
		return SeveritySevere, nil
	}
	return "", &ValidationError{
		Code:    CodeInvalidSeverity,
		Message: fmt.Sprintf("severity %q must be one of mild, moderate, severe", s),
		kind:    ErrInvalidSeverity,
	}
}

// Validate normalizes a raw form submission: comma-separated symptom text,
// free-text duration and a severity enum. Duration passes through untouched.
func Validate(rawSymptomsText, duration, severity string) (Request, error) {
	return validate(ParseSymptoms(rawSymptomsText), duration, severity, nil)
}

// ValidateSubmission applies the same rules as Validate to a wire submission
// whose symptoms are already a list, and checks the optional patient age.
func ValidateSubmission(s Submission) (Request, error) {
	return validate(NormalizeSymptoms(s.Symptoms), s.Duration, s.Severity, s.PatientAge)
}

func validate(symptoms []string, duration, severity string, age *int) (Request, error) {
	if len(symptoms) == 0 {
		return Request{}, &ValidationError{
			Code:    CodeEmptySymptomList,
			Message: "at least one symptom is required",
			kind:    ErrEmptySymptomList,
		}
	}

	sev, err := ParseSeverity(severity)
	if err != nil {
		return Request{}, err
	}

	req := Request{
		Symptoms: symptoms,
		Duration: duration,
		Severity: sev,
	}

	if age != nil {
		if *age < 0 || *age > maxPatientAge {
			return Request{}, &ValidationError{
				Code:    CodeInvalidPatientAge,
				Message: fmt.Sprintf("patient age %d must be between 0 and %d", *age, maxPatientAge),
				kind:    ErrInvalidPatientAge,
			}
		}
		a := *age
		req.PatientAge = &a
	}

	return req, nil
}
