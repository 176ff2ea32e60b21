// Package digest holds the structured newsletter content produced by the model.
package digest

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxTopics bounds the sections of a weekly post.
	MaxTopics = 15
	// MaxEmailTopics bounds the cards of an email.
	MaxEmailTopics = 3
)

// ErrMalformedDigest is returned when model output does not match the expected schema.
var ErrMalformedDigest = errors.New("model returned malformed digest")

type Quote struct {
	Text   string `json:"text"`
	Author string `json:"author"`
}

type Source struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Section is one topic of the weekly post.
type Section struct {
	Title      string   `json:"title"`
	Paragraphs string   `json:"paragraphs"`
	Sources    []Source `json:"sources"`
}

// Digest is the weekly long-form summary.
type Digest struct {
	Description string    `json:"description"`
	Intro       string    `json:"intro"`
	Quote       *Quote    `json:"quote,omitempty"`
	Topics      []Section `json:"topics"`
}

// Validate checks required fields and normalizes the digest in place:
// blank quotes are dropped, platforms lower-cased, topics capped at MaxTopics.
func (d *Digest) Validate() error {
	var missing []string
	if strings.TrimSpace(d.Description) == "" {
		missing = append(missing, "description")
	}
	if strings.TrimSpace(d.Intro) == "" {
		missing = append(missing, "intro")
	}
	if len(d.Topics) == 0 {
		missing = append(missing, "topics")
	}
	for i, t := range d.Topics {
		if strings.TrimSpace(t.Title) == "" {
			missing = append(missing, fmt.Sprintf("topics[%d].title", i))
		}
		if strings.TrimSpace(t.Paragraphs) == "" {
			missing = append(missing, fmt.Sprintf("topics[%d].paragraphs", i))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedDigest, strings.Join(missing, ", "))
	}

	if d.Quote != nil && (strings.TrimSpace(d.Quote.Text) == "" || strings.TrimSpace(d.Quote.Author) == "") {
		d.Quote = nil
	}
	if len(d.Topics) > MaxTopics {
		d.Topics = d.Topics[:MaxTopics]
	}
	for i := range d.Topics {
		for j := range d.Topics[i].Sources {
			s := &d.Topics[i].Sources[j]
			s.Platform = strings.ToLower(strings.TrimSpace(s.Platform))
		}
		if d.Topics[i].Sources == nil {
			d.Topics[i].Sources = []Source{}
		}
	}
	return nil
}

// EmailTopic is one condensed card of the email.
type EmailTopic struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// Email is the condensed email digest.
type Email struct {
	Subject  string       `json:"subject"`
	Headline string       `json:"headline"`
	Intro    string       `json:"intro"`
	Topics   []EmailTopic `json:"topics"`
}

// Validate checks required fields and caps topics at MaxEmailTopics.
func (e *Email) Validate() error {
	var missing []string
	if strings.TrimSpace(e.Subject) == "" {
		missing = append(missing, "subject")
	}
	if strings.TrimSpace(e.Headline) == "" {
		missing = append(missing, "headline")
	}
	if strings.TrimSpace(e.Intro) == "" {
		missing = append(missing, "intro")
	}
	if e.Topics == nil {
		missing = append(missing, "topics")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMalformedDigest, strings.Join(missing, ", "))
	}
	if len(e.Topics) > MaxEmailTopics {
		e.Topics = e.Topics[:MaxEmailTopics]
	}
	return nil
}

// Map applies fn to every text field of the email.
func (e Email) Map(fn func(string) string) Email {
	out := Email{
		Subject:  fn(e.Subject),
		Headline: fn(e.Headline),
		Intro:    fn(e.Intro),
	}
	if e.Topics != nil {
		out.Topics = make([]EmailTopic, len(e.Topics))
	}
	for i, t := range e.Topics {
		out.Topics[i] = EmailTopic{Title: fn(t.Title), Summary: fn(t.Summary)}
	}
	return out
}
