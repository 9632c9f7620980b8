package core

import (
	"time"
)

// SubmissionRequest is the raw, unvalidated contact form payload as it
// arrives on the wire. The optional Website field is a honeypot: humans
// never see it, so a non-empty value marks the submission as automated.
type SubmissionRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	Position  string `json:"position"`
	Source    string `json:"source"`
	Message   string `json:"message"`
	Website   string `json:"website,omitempty"`
}

// ContactSubmission is a validated submission. It is immutable after
// validation and lives only for the duration of one request.
type ContactSubmission struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Company   string
	Position  string
	Source    string
	Message   string
}

// EmailMessage is an addressed, composed document ready for dispatch
type EmailMessage struct {
	From     string
	FromName string
	To       string
	ReplyTo  string
	Subject  string
	HTMLBody string
}

// Decision is the outcome of a rate limit check for one client identity
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// SpamScore is the result of screening a submission for automated abuse
type SpamScore struct {
	IsSpam      bool
	Score       float64
	Confidence  float64
	Explanation string
	ModelUsed   string
	ScoredAt    time.Time
}

// IntakeResult reports what happened to an accepted submission.
// Dropped submissions are acknowledged to the caller but never mailed.
type IntakeResult struct {
	Submission       *ContactSubmission
	InternalNotified bool
	Dropped          bool
	DropReason       string
}
