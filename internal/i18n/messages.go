// Package i18n holds the user-facing strings returned by the contact
// endpoint. The website is Czech-first, so Czech is the default locale
// and English the fallback for foreign visitors.
package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys double as the English formats, the x/text convention.
const (
	Confirmation  = "Thank you! Your message has been sent."
	RateLimited   = "Too many requests. Please try again later."
	MissingField  = "The field %s is required."
	InvalidEmail  = "Please enter a valid email address."
	InternalError = "We could not send your message. Please try again later."
	InvalidBody   = "Invalid request body."
)

var supported = []language.Tag{
	language.Czech, // default
	language.English,
}

func init() {
	for _, entry := range []struct {
		key string
		cs  string
	}{
		{Confirmation, "Děkujeme! Vaše zpráva byla úspěšně odeslána."},
		{RateLimited, "Příliš mnoho požadavků. Zkuste to prosím později."},
		{MissingField, "Pole %s je povinné."},
		{InvalidEmail, "Zadejte prosím platnou e-mailovou adresu."},
		{InternalError, "Zprávu se nepodařilo odeslat. Zkuste to prosím později."},
		{InvalidBody, "Neplatný požadavek."},
	} {
		message.SetString(language.Czech, entry.key, entry.cs)
		message.SetString(language.English, entry.key, entry.key)
	}
}

// Localizer matches a visitor's Accept-Language header against the
// supported locales
type Localizer struct {
	matcher language.Matcher
}

// NewLocalizer creates a new localizer
func NewLocalizer() *Localizer {
	return &Localizer{matcher: language.NewMatcher(supported)}
}

// Printer returns a message printer for the best-matching locale.
// An empty or unparseable header falls back to the default locale.
func (l *Localizer) Printer(acceptLanguage string) *message.Printer {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil {
		tags = nil
	}
	tag, _, _ := l.matcher.Match(tags...)
	return message.NewPrinter(tag)
}
