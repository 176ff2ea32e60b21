package render

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/trueberryless-org/npmx-weekly/internal/digest"
)

var testEmails = Emails{
	SiteURL:   "https://npmx-weekly.trueberryless.org/",
	BannerURL: "https://example.com/banner.png",
}

var testEmail = digest.Email{
	Subject:  "npmx Weekly #4",
	Headline: "npmx Weekly #4",
	Intro:    "Big <b>news</b> this week.",
	Topics: []digest.EmailTopic{
		{Title: "Release", Summary: "1.0 is out."},
		{Title: "Search", Summary: `See <a href="https://npmx.dev">npmx</a>.`},
	},
}

func parseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parsing html: %v", err)
	}
	return doc
}

func TestWeeklyEmailWithSequence(t *testing.T) {
	html, err := testEmails.Weekly(testEmail, 4)
	if err != nil {
		t.Fatal(err)
	}
	doc := parseHTML(t, html)

	if got := doc.Find("h1").Text(); got != "npmx Weekly #4" {
		t.Errorf("unexpected headline %q", got)
	}
	if got := doc.Find("img").AttrOr("src", ""); got != testEmails.BannerURL {
		t.Errorf("unexpected banner %q", got)
	}
	if n := doc.Find("div.topic").Length(); n != 2 {
		t.Errorf("expected 2 topic cards, got %d", n)
	}
	if got := doc.Find("div.topic h3").First().Text(); got != "Release" {
		t.Errorf("unexpected first card title %q", got)
	}
	if got := doc.Find("p b").Text(); got != "news" {
		t.Errorf("expected inline markup preserved, got %q", got)
	}

	cta := doc.Find("div.cta a")
	if href := cta.AttrOr("href", ""); href != "https://npmx-weekly.trueberryless.org/posts/4" {
		t.Errorf("unexpected CTA href %q", href)
	}
	if !strings.Contains(cta.Text(), "View Full Weekly Post") {
		t.Errorf("unexpected CTA text %q", cta.Text())
	}

	footer := doc.Find("div.footer")
	if footer.Length() != 1 {
		t.Fatalf("expected footer when a sequence is given")
	}
	if href := footer.Find("a").AttrOr("href", ""); href != UnsubscribePlaceholder {
		t.Errorf("expected unsubscribe placeholder, got %q", href)
	}
	if !strings.Contains(html, "border-left: 4px solid "+PrimaryColor) {
		t.Error("expected cards styled with the primary color")
	}
}

func TestWeeklyEmailWithoutSequence(t *testing.T) {
	html, err := testEmails.Weekly(testEmail, 0)
	if err != nil {
		t.Fatal(err)
	}
	doc := parseHTML(t, html)
	if doc.Find("div.footer").Length() != 0 {
		t.Error("expected no footer without a sequence")
	}
	if doc.Find("div.cta").Length() != 0 {
		t.Error("expected no call to action without a sequence")
	}
	if strings.Contains(html, "RESEND_UNSUBSCRIBE_URL") {
		t.Error("expected no unsubscribe placeholder without a sequence")
	}
	if n := doc.Find("div.topic").Length(); n != 2 {
		t.Errorf("expected 2 topic cards, got %d", n)
	}
}

func TestWeeklyEmailDeterministic(t *testing.T) {
	a, err := testEmails.Weekly(testEmail, 9)
	if err != nil {
		t.Fatal(err)
	}
	b, err := testEmails.Weekly(testEmail, 9)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Error("expected byte-identical email for identical input")
	}
}

func TestWelcomeEmail(t *testing.T) {
	html, err := testEmails.Welcome()
	if err != nil {
		t.Fatal(err)
	}
	doc := parseHTML(t, html)
	if got := doc.Find("h1").Text(); got != "Welcome to npmx Weekly!" {
		t.Errorf("unexpected heading %q", got)
	}
	if href := doc.Find("div.cta a").AttrOr("href", ""); href != "https://npmx-weekly.trueberryless.org/archive" {
		t.Errorf("unexpected archive link %q", href)
	}
	if doc.Find("div.footer").Length() != 0 {
		t.Error("expected welcome email without unsubscribe footer")
	}
}

func TestPostURL(t *testing.T) {
	if got := (Emails{SiteURL: "https://x.org"}).PostURL(12); got != "https://x.org/posts/12" {
		t.Errorf("unexpected post url %q", got)
	}
}
