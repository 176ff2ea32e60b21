package render

import (
	"bytes"
	"embed"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/trueberryless-org/npmx-weekly/internal/digest"
)

// PrimaryColor is the accent used by cards, buttons and links.
const PrimaryColor = "#5092EA"

// UnsubscribePlaceholder is substituted per recipient by the email provider.
const UnsubscribePlaceholder = "{{{RESEND_UNSUBSCRIBE_URL}}}"

//go:embed templates/*.html.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html.tmpl"))

// Emails renders newsletter HTML for a given site.
type Emails struct {
	SiteURL   string
	BannerURL string
}

type layoutData struct {
	BannerURL      string
	Content        string
	Footer         bool
	UnsubscribeURL string
	Color          string
}

type weeklyData struct {
	Email   digest.Email
	PostURL string
	Color   string
}

// PostURL is the public address of post number seq.
func (r Emails) PostURL(seq int) string {
	return strings.TrimRight(r.SiteURL, "/") + "/posts/" + strconv.Itoa(seq)
}

// Weekly renders the condensed digest. A sequence of 0 omits the link to the
// full post and the unsubscribe footer.
func (r Emails) Weekly(e digest.Email, seq int) (string, error) {
	data := weeklyData{Email: e, Color: PrimaryColor}
	if seq > 0 {
		data.PostURL = r.PostURL(seq)
	}
	content, err := execute("weekly", data)
	if err != nil {
		return "", err
	}
	return r.layout(content, seq > 0)
}

// Welcome renders the email sent to new subscribers.
func (r Emails) Welcome() (string, error) {
	content, err := execute("welcome", struct {
		ArchiveURL string
		Color      string
	}{
		ArchiveURL: strings.TrimRight(r.SiteURL, "/") + "/archive",
		Color:      PrimaryColor,
	})
	if err != nil {
		return "", err
	}
	return r.layout(content, false)
}

func (r Emails) layout(content string, footer bool) (string, error) {
	return execute("layout", layoutData{
		BannerURL:      r.BannerURL,
		Content:        content,
		Footer:         footer,
		UnsubscribeURL: UnsubscribePlaceholder,
		Color:          PrimaryColor,
	})
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("rendering %s email: %w", name, err)
	}
	return buf.String(), nil
}
