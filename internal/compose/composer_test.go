package compose

import (
	"strings"
	"testing"

	"github.com/growthspect/contact-intake/internal/core"
)

func newTestComposer(t *testing.T) *Composer {
	t.Helper()
	c, err := NewComposer(Options{
		FromAddress:   "noreply@growthspect.com",
		FromName:      "GrowthSpect",
		NotifyAddress: "sales@growthspect.com",
		SiteName:      "GrowthSpect",
	})
	if err != nil {
		t.Fatalf("failed to create composer: %v", err)
	}
	return c
}

func submission() *core.ContactSubmission {
	return &core.ContactSubmission{
		ID:        "test-id",
		FirstName: "Jan",
		LastName:  "Novák",
		Email:     "jan@firma.cz",
		Company:   "Firma s.r.o.",
		Position:  "CTO",
		Source:    "linkedin",
		Message:   "Dobrý den, máme zájem o spolupráci.",
	}
}

func TestComposeClientAck_Addressing(t *testing.T) {
	c := newTestComposer(t)
	msg, err := c.ComposeClientAck(submission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.To != "jan@firma.cz" {
		t.Fatalf("acknowledgment must go to the submitter, got %s", msg.To)
	}
	if msg.From != "noreply@growthspect.com" {
		t.Fatalf("unexpected sender: %s", msg.From)
	}
	if msg.ReplyTo != "" {
		t.Fatalf("acknowledgment must not carry a Reply-To, got %s", msg.ReplyTo)
	}
	if !strings.Contains(msg.HTMLBody, "Jan") {
		t.Fatal("acknowledgment should greet the submitter by first name")
	}
}

func TestComposeTeamNotice_Addressing(t *testing.T) {
	c := newTestComposer(t)
	msg, err := c.ComposeTeamNotice(submission())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.To != "sales@growthspect.com" {
		t.Fatalf("notice must go to the notification address, got %s", msg.To)
	}
	if msg.ReplyTo != "jan@firma.cz" {
		t.Fatalf("notice must carry the submitter as Reply-To, got %s", msg.ReplyTo)
	}
	if !strings.Contains(msg.Subject, "Jan Novák") {
		t.Fatalf("notice subject should name the submitter, got %q", msg.Subject)
	}
}

func TestCompose_EscapesUserText(t *testing.T) {
	c := newTestComposer(t)
	sub := submission()
	sub.Message = `<script>alert(1)</script>`
	sub.Company = `<b>Firma</b>`
	sub.FirstName = `Jan<img src=x>`

	for name, composeFn := range map[string]func(*core.ContactSubmission) (*core.EmailMessage, error){
		"client ack":  c.ComposeClientAck,
		"team notice": c.ComposeTeamNotice,
	} {
		msg, err := composeFn(sub)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if strings.Contains(msg.HTMLBody, "<script>") {
			t.Fatalf("%s: user text leaked as markup", name)
		}
		if strings.Contains(msg.HTMLBody, "<img") {
			t.Fatalf("%s: first name leaked as markup", name)
		}
		if !strings.Contains(msg.HTMLBody, "&lt;script&gt;") {
			t.Fatalf("%s: expected escaped message text", name)
		}
	}
}

func TestCompose_NoDoubleEscaping(t *testing.T) {
	c := newTestComposer(t)
	sub := submission()
	sub.Message = "a < b"

	msg, err := c.ComposeClientAck(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg.HTMLBody, "a &lt; b") {
		t.Fatal("expected single-escaped message text")
	}
	if strings.Contains(msg.HTMLBody, "&amp;lt;") {
		t.Fatal("message text was escaped twice")
	}
}

func TestComposeClientAck_ConditionalRows(t *testing.T) {
	c := newTestComposer(t)

	sub := submission()
	sub.Company = ""
	sub.Position = "—"

	msg, err := c.ComposeClientAck(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(msg.HTMLBody, "Společnost") {
		t.Fatal("empty company must not render a row in the acknowledgment")
	}
	if strings.Contains(msg.HTMLBody, "Pozice") {
		t.Fatal("placeholder position must not render a row in the acknowledgment")
	}

	sub2 := submission()
	msg2, err := c.ComposeClientAck(sub2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(msg2.HTMLBody, "Firma s.r.o.") || !strings.Contains(msg2.HTMLBody, "CTO") {
		t.Fatal("present optional fields should render in the acknowledgment")
	}
}

func TestComposeTeamNotice_PlaceholderForAbsentFields(t *testing.T) {
	c := newTestComposer(t)

	sub := submission()
	sub.Company = ""
	sub.Position = ""
	sub.Source = ""
	sub.LastName = ""

	msg, err := c.ComposeTeamNotice(sub)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Company, position and source rows are always present in the notice
	if !strings.Contains(msg.HTMLBody, "Společnost") || !strings.Contains(msg.HTMLBody, "Pozice") {
		t.Fatal("notice must always show the optional field rows")
	}
	if strings.Count(msg.HTMLBody, placeholder) < 3 {
		t.Fatal("absent optional fields should render the placeholder")
	}
}

func TestSourceLabels(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{"google", "Google"},
		{"linkedin", "LinkedIn"},
		{"social", "Sociální sítě"},
		{"recommendation", "Doporučení"},
		{"other", "Jiné"},
		{"konference", "konference"}, // unknown values pass through
	}
	for _, tt := range tests {
		if got := sourceLabel(tt.source, "—"); got != tt.want {
			t.Fatalf("sourceLabel(%q) = %q, want %q", tt.source, got, tt.want)
		}
	}
	if got := sourceLabel("", "—"); got != "—" {
		t.Fatalf("absent source should fall back to the placeholder, got %q", got)
	}
}

func TestReplyHref_GreetsByFirstName(t *testing.T) {
	href := replyHref(submission())
	if !strings.HasPrefix(href, "mailto:jan@firma.cz?") {
		t.Fatalf("unexpected mailto target: %s", href)
	}
	if !strings.Contains(href, "Jan") {
		t.Fatal("reply draft should greet the submitter by first name")
	}
	if strings.Contains(href, "+") {
		t.Fatal("spaces must be percent-encoded, not plus-encoded")
	}
}
