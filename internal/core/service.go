package core

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// ServiceOptions carries the tunables of the intake pipeline
type ServiceOptions struct {
	SpamEnabled        bool
	SpamThreshold      float64
	WhitelistedDomains []string
}

// IntakeService orchestrates one contact submission end to end:
// rate check, validation, optional spam screening, composition and the
// two-party dispatch. Everything runs sequentially within one request.
type IntakeService struct {
	store      RateLimitStore
	validator  *Validator
	composer   Composer
	dispatcher MailDispatcher
	spam       SpamClient
	logger     *zap.Logger
	opts       ServiceOptions
}

// NewIntakeService creates a new intake service
func NewIntakeService(
	store RateLimitStore,
	validator *Validator,
	composer Composer,
	dispatcher MailDispatcher,
	spam SpamClient,
	logger *zap.Logger,
	opts ServiceOptions,
) *IntakeService {
	return &IntakeService{
		store:      store,
		validator:  validator,
		composer:   composer,
		dispatcher: dispatcher,
		spam:       spam,
		logger:     logger,
		opts:       opts,
	}
}

// Process runs the intake pipeline for a single submission.
//
// The client acknowledgment is always composed and sent before the team
// notice. A failed team notice after a delivered acknowledgment is not
// an error for the caller: the result reports InternalNotified=false and
// the handler surfaces that explicitly instead of claiming total failure
// for a half-delivered outcome.
func (s *IntakeService) Process(ctx context.Context, clientID string, req *SubmissionRequest) (*IntakeResult, error) {
	decision, err := s.store.Check(ctx, clientID)
	if err != nil {
		// A broken store must not take the contact form down with it.
		s.logger.Error("Rate limit store unavailable, allowing request",
			zap.String("client_id", clientID),
			zap.Error(err))
	} else if !decision.Allowed {
		s.logger.Info("Submission rate limited",
			zap.String("client_id", clientID),
			zap.Duration("retry_after", decision.RetryAfter))
		return nil, &RateLimitError{RetryAfter: decision.RetryAfter}
	}

	submission, err := s.validator.Validate(req)
	if err != nil {
		return nil, err
	}

	// Bots fill the honeypot field; accept and drop so they learn nothing.
	if strings.TrimSpace(req.Website) != "" {
		s.logger.Info("Honeypot tripped, dropping submission",
			zap.String("submission_id", submission.ID),
			zap.String("client_id", clientID))
		return &IntakeResult{Submission: submission, Dropped: true, DropReason: "honeypot"}, nil
	}

	if dropped := s.screenForSpam(ctx, submission); dropped {
		return &IntakeResult{Submission: submission, Dropped: true, DropReason: "spam"}, nil
	}

	ack, err := s.composer.ComposeClientAck(submission)
	if err != nil {
		return nil, &DispatchError{Stage: StageClientAck, Err: err}
	}
	if err := s.dispatcher.Send(ctx, ack); err != nil {
		return nil, &DispatchError{Stage: StageClientAck, Err: err}
	}
	s.logger.Info("Acknowledgment sent",
		zap.String("submission_id", submission.ID),
		zap.String("to", submission.Email))

	notice, err := s.composer.ComposeTeamNotice(submission)
	if err != nil {
		s.logger.Error("Failed to compose team notice",
			zap.String("submission_id", submission.ID),
			zap.Error(err))
		return &IntakeResult{Submission: submission, InternalNotified: false}, nil
	}
	if err := s.dispatcher.Send(ctx, notice); err != nil {
		s.logger.Error("Failed to send team notice",
			zap.String("submission_id", submission.ID),
			zap.Error(err))
		return &IntakeResult{Submission: submission, InternalNotified: false}, nil
	}
	s.logger.Info("Team notified",
		zap.String("submission_id", submission.ID),
		zap.String("to", notice.To))

	return &IntakeResult{Submission: submission, InternalNotified: true}, nil
}

// screenForSpam asks the spam client for a verdict. Whitelisted sender
// domains bypass the screen entirely. Screening errors never block a
// submission; a contact form that eats leads is worse than one that
// lets the occasional bot through.
func (s *IntakeService) screenForSpam(ctx context.Context, submission *ContactSubmission) bool {
	if !s.opts.SpamEnabled || s.spam == nil {
		return false
	}
	if s.isDomainWhitelisted(submission.Email) {
		s.logger.Debug("Skipping spam screen for whitelisted domain",
			zap.String("submission_id", submission.ID))
		return false
	}

	score, err := s.spam.ScoreSubmission(ctx, submission)
	if err != nil {
		s.logger.Warn("Spam screening failed, accepting submission",
			zap.String("submission_id", submission.ID),
			zap.Error(err))
		return false
	}
	if score.Score >= s.opts.SpamThreshold {
		s.logger.Info("Submission dropped as spam",
			zap.String("submission_id", submission.ID),
			zap.Float64("score", score.Score),
			zap.String("model", score.ModelUsed),
			zap.String("explanation", score.Explanation))
		return true
	}
	return false
}

// isDomainWhitelisted checks if the submitter's domain is in the whitelist
func (s *IntakeService) isDomainWhitelisted(email string) bool {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	domain := strings.ToLower(parts[1])
	for _, whitelisted := range s.opts.WhitelistedDomains {
		if strings.EqualFold(domain, whitelisted) {
			return true
		}
	}
	return false
}
