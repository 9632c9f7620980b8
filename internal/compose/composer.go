package compose

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"

	"github.com/growthspect/contact-intake/internal/core"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// placeholder stands in for optional fields the submitter left empty.
// Incoming values equal to it are treated as absent.
const placeholder = "—"

// sourceLabels maps the known source values to their display labels.
// Unknown values are shown as-is.
var sourceLabels = map[string]string{
	"google":         "Google",
	"linkedin":       "LinkedIn",
	"social":         "Sociální sítě",
	"recommendation": "Doporučení",
	"other":          "Jiné",
}

// Options carries the addressing configuration for composed mail
type Options struct {
	FromAddress   string
	FromName      string
	NotifyAddress string
	SiteName      string
}

// Composer renders the submitter acknowledgment and the internal notice
// as complete HTML documents. All interpolated values pass through
// html/template, so escaping is the default and not an opt-in.
type Composer struct {
	ack    *template.Template
	notice *template.Template
	opts   Options
}

// NewComposer creates a new composer with the embedded templates
func NewComposer(opts Options) (*Composer, error) {
	ack, err := template.ParseFS(templatesFS, "templates/client_ack.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse acknowledgment template: %w", err)
	}
	notice, err := template.ParseFS(templatesFS, "templates/team_notice.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to parse notice template: %w", err)
	}
	return &Composer{ack: ack, notice: notice, opts: opts}, nil
}

type ackData struct {
	SiteName    string
	FirstName   string
	Message     string
	Company     string
	Position    string
	HasCompany  bool
	HasPosition bool
	SourceLabel string
	HasSource   bool
	Year        int
}

type noticeData struct {
	SiteName    string
	FirstName   string
	LastName    string
	Email       string
	Company     string
	Position    string
	SourceLabel string
	Message     string
	ReplyHref   string
	Year        int
}

// ComposeClientAck renders the acknowledgment sent to the submitter
func (c *Composer) ComposeClientAck(submission *core.ContactSubmission) (*core.EmailMessage, error) {
	data := ackData{
		SiteName:    c.opts.SiteName,
		FirstName:   submission.FirstName,
		Message:     submission.Message,
		Company:     submission.Company,
		Position:    submission.Position,
		HasCompany:  present(submission.Company),
		HasPosition: present(submission.Position),
		SourceLabel: sourceLabel(submission.Source, ""),
		HasSource:   present(submission.Source),
		Year:        time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := c.ack.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render acknowledgment: %w", err)
	}

	return &core.EmailMessage{
		From:     c.opts.FromAddress,
		FromName: c.opts.FromName,
		To:       submission.Email,
		Subject:  "Děkujeme za vaši zprávu",
		HTMLBody: buf.String(),
	}, nil
}

// ComposeTeamNotice renders the internal notification. Optional fields
// are always shown here, substituting the placeholder when absent, and
// the reply link opens a draft greeting the submitter by first name.
func (c *Composer) ComposeTeamNotice(submission *core.ContactSubmission) (*core.EmailMessage, error) {
	data := noticeData{
		SiteName:    c.opts.SiteName,
		FirstName:   submission.FirstName,
		LastName:    orPlaceholder(submission.LastName),
		Email:       submission.Email,
		Company:     orPlaceholder(submission.Company),
		Position:    orPlaceholder(submission.Position),
		SourceLabel: sourceLabel(submission.Source, placeholder),
		Message:     submission.Message,
		ReplyHref:   replyHref(submission),
		Year:        time.Now().Year(),
	}

	var buf bytes.Buffer
	if err := c.notice.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render notice: %w", err)
	}

	subject := "Nová poptávka z webu: " + submission.FirstName
	if present(submission.LastName) {
		subject += " " + submission.LastName
	}

	return &core.EmailMessage{
		From:     c.opts.FromAddress,
		FromName: c.opts.FromName,
		To:       c.opts.NotifyAddress,
		ReplyTo:  submission.Email,
		Subject:  subject,
		HTMLBody: buf.String(),
	}, nil
}

// replyHref builds a mailto link pre-populated with a greeting
func replyHref(submission *core.ContactSubmission) string {
	subject := "Re: Vaše poptávka"
	body := fmt.Sprintf("Dobrý den, %s,\n\n", submission.FirstName)
	return "mailto:" + submission.Email +
		"?subject=" + queryEscape(subject) +
		"&body=" + queryEscape(body)
}

// queryEscape percent-encodes for mailto query parts. url.QueryEscape
// uses '+' for spaces, which mail clients do not decode.
func queryEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

func present(v string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed != "" && trimmed != placeholder
}

func orPlaceholder(v string) string {
	if !present(v) {
		return placeholder
	}
	return v
}

func sourceLabel(source, fallback string) string {
	if !present(source) {
		return fallback
	}
	if label, ok := sourceLabels[strings.ToLower(strings.TrimSpace(source))]; ok {
		return label
	}
	return source
}
