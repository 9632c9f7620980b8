package core

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeStore struct {
	decision Decision
	err      error
	calls    int
}

func (s *fakeStore) Check(ctx context.Context, clientID string) (*Decision, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	d := s.decision
	return &d, nil
}

type fakeComposer struct{}

func (fakeComposer) ComposeClientAck(sub *ContactSubmission) (*EmailMessage, error) {
	return &EmailMessage{From: "noreply@growthspect.com", To: sub.Email, Subject: "ack"}, nil
}

func (fakeComposer) ComposeTeamNotice(sub *ContactSubmission) (*EmailMessage, error) {
	return &EmailMessage{From: "noreply@growthspect.com", To: "sales@growthspect.com", ReplyTo: sub.Email, Subject: "notice"}, nil
}

type fakeDispatcher struct {
	sent    []*EmailMessage
	failAt  int // 1-based index of the send that fails; 0 means never
	failErr error
}

func (d *fakeDispatcher) Send(ctx context.Context, msg *EmailMessage) error {
	if d.failAt > 0 && len(d.sent)+1 == d.failAt {
		return d.failErr
	}
	d.sent = append(d.sent, msg)
	return nil
}

type fakeSpamClient struct {
	score SpamScore
	err   error
}

func (c *fakeSpamClient) ScoreSubmission(ctx context.Context, sub *ContactSubmission) (*SpamScore, error) {
	if c.err != nil {
		return nil, c.err
	}
	s := c.score
	return &s, nil
}

func newTestService(store RateLimitStore, dispatcher MailDispatcher, spam SpamClient, opts ServiceOptions) *IntakeService {
	return NewIntakeService(store, NewValidator(), fakeComposer{}, dispatcher, spam, zap.NewNop(), opts)
}

func validRequest() *SubmissionRequest {
	return &SubmissionRequest{FirstName: "Jan", Email: "jan@firma.cz", Message: "Ahoj"}
}

func TestProcess_SendsClientAckBeforeTeamNotice(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, nil, ServiceOptions{})

	result, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.InternalNotified {
		t.Fatal("expected internal notification to succeed")
	}
	if len(dispatcher.sent) != 2 {
		t.Fatalf("expected exactly 2 messages, got %d", len(dispatcher.sent))
	}
	if dispatcher.sent[0].To != "jan@firma.cz" {
		t.Fatalf("first message should go to the submitter, went to %s", dispatcher.sent[0].To)
	}
	if dispatcher.sent[1].To != "sales@growthspect.com" {
		t.Fatalf("second message should go to the team, went to %s", dispatcher.sent[1].To)
	}
	if dispatcher.sent[1].ReplyTo != "jan@firma.cz" {
		t.Fatalf("team notice should carry the submitter as Reply-To, got %s", dispatcher.sent[1].ReplyTo)
	}
}

func TestProcess_RateLimited(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	store := &fakeStore{decision: Decision{Allowed: false, RetryAfter: 3 * time.Minute}}
	svc := newTestService(store, dispatcher, nil, ServiceOptions{})

	_, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
	var rlErr *RateLimitError
	if !errors.As(err, &rlErr) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
	if rlErr.RetryAfter != 3*time.Minute {
		t.Fatalf("expected retry after 3m, got %s", rlErr.RetryAfter)
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("rate limited submission must not send mail")
	}
}

func TestProcess_StoreFailureDoesNotBlockSubmission(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	store := &fakeStore{err: errors.New("redis down")}
	svc := newTestService(store, dispatcher, nil, ServiceOptions{})

	result, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.InternalNotified {
		t.Fatal("expected full processing despite store failure")
	}
}

func TestProcess_ClientAckFailureIsDispatchError(t *testing.T) {
	dispatcher := &fakeDispatcher{failAt: 1, failErr: fmt.Errorf("relay refused")}
	svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, nil, ServiceOptions{})

	_, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
	var dErr *DispatchError
	if !errors.As(err, &dErr) {
		t.Fatalf("expected DispatchError, got %v", err)
	}
	if dErr.Stage != StageClientAck {
		t.Fatalf("expected stage %q, got %q", StageClientAck, dErr.Stage)
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("no message should be recorded as sent")
	}
}

func TestProcess_TeamNoticeFailureIsPartialSuccess(t *testing.T) {
	dispatcher := &fakeDispatcher{failAt: 2, failErr: fmt.Errorf("relay refused")}
	svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, nil, ServiceOptions{})

	result, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
	if err != nil {
		t.Fatalf("acknowledged submission must not report total failure, got %v", err)
	}
	if result.InternalNotified {
		t.Fatal("expected InternalNotified=false after notice failure")
	}
	if len(dispatcher.sent) != 1 {
		t.Fatalf("expected only the acknowledgment to be sent, got %d messages", len(dispatcher.sent))
	}
}

func TestProcess_HoneypotDropsSilently(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, nil, ServiceOptions{})

	req := validRequest()
	req.Website = "http://spam.example"
	result, err := svc.Process(context.Background(), "1.2.3.4", req)
	if err != nil {
		t.Fatalf("honeypot submissions must look successful, got %v", err)
	}
	if !result.Dropped || result.DropReason != "honeypot" {
		t.Fatalf("expected honeypot drop, got %+v", result)
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("honeypot submission must not send mail")
	}
}

func TestProcess_SpamScreen(t *testing.T) {
	opts := ServiceOptions{SpamEnabled: true, SpamThreshold: 0.8}

	t.Run("above threshold drops", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		spam := &fakeSpamClient{score: SpamScore{Score: 0.95, IsSpam: true}}
		svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, spam, opts)

		result, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Dropped || result.DropReason != "spam" {
			t.Fatalf("expected spam drop, got %+v", result)
		}
		if len(dispatcher.sent) != 0 {
			t.Fatal("spam submission must not send mail")
		}
	})

	t.Run("below threshold passes", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		spam := &fakeSpamClient{score: SpamScore{Score: 0.2}}
		svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, spam, opts)

		result, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Dropped {
			t.Fatal("clean submission must not be dropped")
		}
		if len(dispatcher.sent) != 2 {
			t.Fatalf("expected 2 messages, got %d", len(dispatcher.sent))
		}
	})

	t.Run("screen failure accepts", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		spam := &fakeSpamClient{err: errors.New("api down")}
		svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, spam, opts)

		result, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Dropped {
			t.Fatal("screen failure must not drop the submission")
		}
	})

	t.Run("whitelisted domain bypasses screen", func(t *testing.T) {
		dispatcher := &fakeDispatcher{}
		spam := &fakeSpamClient{score: SpamScore{Score: 1.0, IsSpam: true}}
		wlOpts := opts
		wlOpts.WhitelistedDomains = []string{"firma.cz"}
		svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, spam, wlOpts)

		result, err := svc.Process(context.Background(), "1.2.3.4", validRequest())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.Dropped {
			t.Fatal("whitelisted sender must bypass the spam screen")
		}
	})
}

func TestProcess_ValidationBeforeDispatch(t *testing.T) {
	dispatcher := &fakeDispatcher{}
	svc := newTestService(&fakeStore{decision: Decision{Allowed: true}}, dispatcher, nil, ServiceOptions{})

	_, err := svc.Process(context.Background(), "1.2.3.4", &SubmissionRequest{Email: "jan@firma.cz", Message: "Ahoj"})
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(dispatcher.sent) != 0 {
		t.Fatal("invalid submission must not send mail")
	}
}
