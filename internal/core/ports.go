package core

import (
	"context"
)

// RateLimitStore tracks request counts per client identity inside a
// fixed time window. Implementations must be safe for concurrent use.
type RateLimitStore interface {
	// Check records one request for the client and decides whether it is allowed
	Check(ctx context.Context, clientID string) (*Decision, error)
}

// MailDispatcher delivers a composed email through an external relay
type MailDispatcher interface {
	// Send delivers a single message. The context bounds the whole attempt.
	Send(ctx context.Context, msg *EmailMessage) error
}

// Composer renders the two outbound documents for a submission
type Composer interface {
	// ComposeClientAck renders the acknowledgment sent to the submitter
	ComposeClientAck(submission *ContactSubmission) (*EmailMessage, error)

	// ComposeTeamNotice renders the internal notification
	ComposeTeamNotice(submission *ContactSubmission) (*EmailMessage, error)
}

// SpamClient scores a submission for automated abuse
type SpamClient interface {
	// ScoreSubmission analyzes a submission and returns a spam score
	ScoreSubmission(ctx context.Context, submission *ContactSubmission) (*SpamScore, error)
}
