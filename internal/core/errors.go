package core

import (
	"fmt"
	"time"
)

// Validation failure reasons
const (
	ReasonMissingRequiredField = "missing_required_field"
	ReasonInvalidEmailFormat   = "invalid_email_format"
)

// Dispatch stages, used to tell the two sends apart in logs and errors
const (
	StageClientAck  = "client_ack"
	StageTeamNotice = "team_notice"
)

// ValidationError names the first rule a submission violated
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s (%s)", e.Reason, e.Field)
}

// RateLimitError is returned when a client exceeded its window allowance
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// DispatchError wraps a mail relay failure. Its detail is for server-side
// logs only and must never be echoed to the caller.
type DispatchError struct {
	Stage string
	Err   error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch failed at %s: %v", e.Stage, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
