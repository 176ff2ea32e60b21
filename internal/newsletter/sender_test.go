package newsletter

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/trueberryless-org/npmx-weekly/internal/content"
	"github.com/trueberryless-org/npmx-weekly/internal/digest"
	"github.com/trueberryless-org/npmx-weekly/internal/mailer"
	"github.com/trueberryless-org/npmx-weekly/internal/render"
)

type fakeMailer struct {
	contacts   []string
	segments   []string
	sent       []mailer.Email
	broadcasts []mailer.Broadcast
	keys       []string

	contactErr error
	sendErr    error
}

func (m *fakeMailer) CreateContact(_ context.Context, email string) error {
	m.contacts = append(m.contacts, email)
	return m.contactErr
}

func (m *fakeMailer) AddContactToSegment(_ context.Context, email, segmentID string) error {
	m.segments = append(m.segments, email+"@"+segmentID)
	return nil
}

func (m *fakeMailer) SendEmail(_ context.Context, e mailer.Email) (string, error) {
	m.sent = append(m.sent, e)
	return "em_1", m.sendErr
}

func (m *fakeMailer) CreateBroadcast(_ context.Context, b mailer.Broadcast, key string) (string, error) {
	m.broadcasts = append(m.broadcasts, b)
	m.keys = append(m.keys, key)
	return "bc_1", nil
}

var testEmails = render.Emails{SiteURL: "https://npmx-weekly.trueberryless.org", BannerURL: "https://example.com/banner.png"}

func newSender(t *testing.T, m *fakeMailer) *Sender {
	t.Helper()
	root := t.TempDir()
	return &Sender{
		Store:     content.NewStore(filepath.Join(root, "posts"), filepath.Join(root, "emails")),
		Mailer:    m,
		Emails:    testEmails,
		From:      "npmx Weekly <no-reply@trueberryless.org>",
		SegmentID: "seg_1",
	}
}

func writeDraft(t *testing.T, s *Sender, seq int) {
	t.Helper()
	e := digest.Email{
		Subject:  render.PostTitle(seq),
		Headline: render.PostTitle(seq),
		Intro:    "Hi.",
		Topics:   []digest.EmailTopic{{Title: "a", Summary: "b"}},
	}
	if _, err := s.Store.WriteEmail(content.NewEmailPayload(seq, e, time.Now())); err != nil {
		t.Fatal(err)
	}
}

func TestSendLatest(t *testing.T) {
	m := &fakeMailer{}
	s := newSender(t, m)
	for _, seq := range []int{2, 10, 9} {
		writeDraft(t, s, seq)
	}

	res, err := s.SendLatest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Sequence != 10 || res.BroadcastID != "bc_1" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(m.broadcasts) != 1 {
		t.Fatalf("expected one broadcast, got %d", len(m.broadcasts))
	}
	b := m.broadcasts[0]
	if !b.Send || b.SegmentID != "seg_1" || b.Name != "npmx Weekly #10" || b.Subject != b.Name {
		t.Errorf("unexpected broadcast %+v", b)
	}
	if !strings.Contains(b.HTML, "https://npmx-weekly.trueberryless.org/posts/10") {
		t.Error("expected link to the full post")
	}
	if !strings.Contains(b.HTML, render.UnsubscribePlaceholder) {
		t.Error("expected unsubscribe footer")
	}
	if m.keys[0] != BroadcastKey(testEmails, 10) {
		t.Errorf("unexpected idempotency key %q", m.keys[0])
	}
}

func TestSendLatestNoDrafts(t *testing.T) {
	m := &fakeMailer{}
	s := newSender(t, m)
	if _, err := s.SendLatest(context.Background()); !errors.Is(err, content.ErrNoDrafts) {
		t.Errorf("expected ErrNoDrafts, got %v", err)
	}
	if len(m.broadcasts) != 0 {
		t.Error("expected no broadcast")
	}
}

func TestBroadcastKeyStable(t *testing.T) {
	if BroadcastKey(testEmails, 3) != BroadcastKey(testEmails, 3) {
		t.Error("expected stable key for the same post")
	}
	if BroadcastKey(testEmails, 3) == BroadcastKey(testEmails, 4) {
		t.Error("expected distinct keys for different posts")
	}
}

func TestPreviewLatest(t *testing.T) {
	s := newSender(t, &fakeMailer{})
	writeDraft(t, s, 4)

	html, res, err := s.PreviewLatest()
	if err != nil {
		t.Fatal(err)
	}
	if res.Sequence != 4 {
		t.Errorf("unexpected sequence %d", res.Sequence)
	}
	if strings.Contains(html, render.UnsubscribePlaceholder) || strings.Contains(html, "/posts/4") {
		t.Error("expected preview without footer or post link")
	}
}

func TestSubscribe(t *testing.T) {
	m := &fakeMailer{}
	s := newSender(t, m)
	if err := s.Subscribe(context.Background(), "Reader <reader@example.com>"); err != nil {
		t.Fatal(err)
	}
	if len(m.contacts) != 1 || m.contacts[0] != "reader@example.com" {
		t.Errorf("unexpected contacts %v", m.contacts)
	}
	if len(m.segments) != 1 || m.segments[0] != "reader@example.com@seg_1" {
		t.Errorf("unexpected segments %v", m.segments)
	}
	if len(m.sent) != 1 || m.sent[0].Subject != WelcomeSubject || m.sent[0].To[0] != "reader@example.com" {
		t.Errorf("unexpected welcome email %+v", m.sent)
	}
}

func TestSubscribeWelcomeFailureNotFatal(t *testing.T) {
	m := &fakeMailer{sendErr: errors.New("rate limited")}
	s := newSender(t, m)
	if err := s.Subscribe(context.Background(), "reader@example.com"); err != nil {
		t.Errorf("expected welcome failure to be tolerated, got %v", err)
	}
}

func TestSubscribeErrors(t *testing.T) {
	m := &fakeMailer{contactErr: errors.New("boom")}
	s := newSender(t, m)
	if err := s.Subscribe(context.Background(), "reader@example.com"); err == nil {
		t.Error("expected contact failure to be fatal")
	}
	if len(m.segments) != 0 {
		t.Error("expected no segment call after contact failure")
	}

	if err := s.Subscribe(context.Background(), "not an email"); err == nil {
		t.Error("expected invalid address to be rejected")
	}
}
