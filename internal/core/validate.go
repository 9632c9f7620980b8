package core

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// emailPattern accepts anything shaped like local@domain.tld. It is a
// sanity check, not RFC 5322 conformance.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Validator checks a submission's structural and semantic validity
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks the raw request and returns an immutable submission.
// Rules are applied in order: required-field presence first, then email
// shape. Optional fields are passed through untouched.
func (v *Validator) Validate(req *SubmissionRequest) (*ContactSubmission, error) {
	required := []struct {
		field string
		value string
	}{
		{"firstName", req.FirstName},
		{"email", req.Email},
		{"message", req.Message},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return nil, &ValidationError{Field: f.field, Reason: ReasonMissingRequiredField}
		}
	}

	if !emailPattern.MatchString(req.Email) {
		return nil, &ValidationError{Field: "email", Reason: ReasonInvalidEmailFormat}
	}

	return &ContactSubmission{
		ID:        uuid.NewString(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Company:   req.Company,
		Position:  req.Position,
		Source:    req.Source,
		Message:   req.Message,
	}, nil
}
