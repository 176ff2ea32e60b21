package newsletter

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/trueberryless-org/npmx-weekly/internal/content"
	"github.com/trueberryless-org/npmx-weekly/internal/mailer"
	"github.com/trueberryless-org/npmx-weekly/internal/render"
)

// WelcomeSubject is the subject of the email sent to new subscribers.
const WelcomeSubject = "Welcome to npmx Weekly! ✨"

// Mailer is the subset of the email provider the sender needs.
type Mailer interface {
	CreateContact(ctx context.Context, email string) error
	AddContactToSegment(ctx context.Context, email, segmentID string) error
	SendEmail(ctx context.Context, e mailer.Email) (string, error)
	CreateBroadcast(ctx context.Context, b mailer.Broadcast, idempotencyKey string) (string, error)
}

// Sender delivers drafts and manages subscriptions.
type Sender struct {
	Store     *content.Store
	Mailer    Mailer
	Emails    render.Emails
	From      string
	SegmentID string
}

// BroadcastKey derives a stable idempotency key for the broadcast of post seq.
func BroadcastKey(emails render.Emails, seq int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(emails.PostURL(seq))).String()
}

// SendLatest broadcasts the newest email draft to the segment.
func (s *Sender) SendLatest(ctx context.Context) (Result, error) {
	p, err := s.Store.LatestEmail()
	if err != nil {
		return Result{}, err
	}

	html, err := s.Emails.Weekly(p.Email(), p.Sequence)
	if err != nil {
		return Result{}, err
	}

	id, err := s.Mailer.CreateBroadcast(ctx, mailer.Broadcast{
		SegmentID: s.SegmentID,
		Name:      p.Subject,
		From:      s.From,
		Subject:   p.Subject,
		HTML:      html,
		Send:      true,
	}, BroadcastKey(s.Emails, p.Sequence))
	if err != nil {
		return Result{}, fmt.Errorf("creating broadcast: %w", err)
	}

	log.Info().Int("sequence", p.Sequence).Str("broadcast", id).Msg("broadcast sent")
	return Result{
		Sequence:    p.Sequence,
		Path:        s.Store.EmailPath(p.Sequence),
		Topics:      len(p.Topics),
		BroadcastID: id,
	}, nil
}

// PreviewLatest renders the newest draft without link or unsubscribe footer.
func (s *Sender) PreviewLatest() (string, Result, error) {
	p, err := s.Store.LatestEmail()
	if err != nil {
		return "", Result{}, err
	}
	html, err := s.Emails.Weekly(p.Email(), 0)
	if err != nil {
		return "", Result{}, err
	}
	return html, Result{Sequence: p.Sequence, Path: s.Store.EmailPath(p.Sequence), Topics: len(p.Topics)}, nil
}

// Subscribe enrolls address in the segment and sends a welcome email.
// A failed welcome email is logged, not returned.
func (s *Sender) Subscribe(ctx context.Context, address string) error {
	addr, err := mail.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("invalid email %q: %w", address, err)
	}
	email := addr.Address

	if err := s.Mailer.CreateContact(ctx, email); err != nil {
		return fmt.Errorf("creating contact: %w", err)
	}
	if err := s.Mailer.AddContactToSegment(ctx, email, s.SegmentID); err != nil {
		return fmt.Errorf("adding contact to segment: %w", err)
	}
	log.Info().Str("email", email).Msg("subscribed")

	html, err := s.Emails.Welcome()
	if err != nil {
		log.Warn().Err(err).Msg("rendering welcome email")
		return nil
	}
	if _, err := s.Mailer.SendEmail(ctx, mailer.Email{
		From:    s.From,
		To:      []string{email},
		Subject: WelcomeSubject,
		HTML:    html,
	}); err != nil {
		log.Warn().Err(err).Str("email", email).Msg("welcome email failed")
	}
	return nil
}
