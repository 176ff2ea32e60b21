// Package render turns digests into the site's MDX posts and email HTML.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/trueberryless-org/npmx-weekly/internal/digest"
)

const topicImport = `import TopicSection from "../../components/TopicSection.astro";`

var closingNote = []string{
	`<p style="text-align: center; font-style: italic; margin-top: 5rem; color: var(--text-muted); opacity: 0.8;">`,
	`  Thanks for tuning in to this week's updates! We're so glad to have you on this journey with us.`,
	`  <br />`,
	`  Stay curious, keep building, and we'll see you right back here next week! ✨`,
	`</p>`,
	``,
}

// PostBody renders the MDX body of a weekly post.
func PostBody(d digest.Digest) (string, error) {
	lines := []string{topicImport, ""}
	if d.Quote != nil {
		lines = append(lines,
			"> “"+d.Quote.Text+"”",
			">",
			"> — **"+d.Quote.Author+"**",
			"",
		)
	}
	lines = append(lines, d.Intro, "")

	for i, t := range d.Topics {
		section, err := topicSection(t)
		if err != nil {
			return "", fmt.Errorf("rendering topic %q: %w", t.Title, err)
		}
		if i < len(d.Topics)-1 {
			section += "\n\n---\n"
		}
		lines = append(lines, section)
	}

	lines = append(lines, "\n---\n")
	lines = append(lines, closingNote...)
	return strings.Join(lines, "\n"), nil
}

func topicSection(t digest.Section) (string, error) {
	src := t.Sources
	if src == nil {
		src = []digest.Source{}
	}
	sources, err := compactJSON(src)
	if err != nil {
		return "", err
	}
	return "<TopicSection\n" +
		`  title="` + escapeAttr(t.Title) + "\"\n" +
		`  paragraphs="` + escapeAttr(t.Paragraphs) + "\"\n" +
		"  sources={" + sources + "}\n" +
		"/>", nil
}

func escapeAttr(s string) string {
	return strings.ReplaceAll(s, `"`, "&quot;")
}

// compactJSON marshals v without HTML escaping so URLs survive verbatim.
func compactJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Frontmatter is the YAML header of a post.
type Frontmatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Date        Date     `yaml:"date"`
	Authors     []string `yaml:"authors"`
}

// NewFrontmatter builds the header for post number seq.
func NewFrontmatter(seq int, description string, date time.Time, authors []string) Frontmatter {
	return Frontmatter{
		Title:       PostTitle(seq),
		Description: description,
		Date:        Date(date),
		Authors:     authors,
	}
}

// PostTitle is the title shared by a post and its email.
func PostTitle(seq int) string {
	return fmt.Sprintf("npmx Weekly #%d", seq)
}

// Date is a calendar day emitted as an unquoted YAML timestamp.
type Date time.Time

func (d Date) MarshalYAML() (any, error) {
	return &yaml.Node{
		Kind:  yaml.ScalarNode,
		Tag:   "!!timestamp",
		Value: time.Time(d).UTC().Format(time.DateOnly),
	}, nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	t, err := time.Parse(time.DateOnly, node.Value)
	if err != nil {
		return fmt.Errorf("parsing date %q: %w", node.Value, err)
	}
	*d = Date(t)
	return nil
}

// Post assembles a complete MDX file from frontmatter and body.
func Post(fm Frontmatter, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding frontmatter: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// SplitPost separates a post into its parsed frontmatter and body.
func SplitPost(data []byte) (Frontmatter, string, error) {
	var fm Frontmatter
	s := string(data)
	if !strings.HasPrefix(s, "---\n") {
		return fm, "", fmt.Errorf("post has no frontmatter")
	}
	rest := s[len("---\n"):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return fm, "", fmt.Errorf("unterminated frontmatter")
	}
	if err := yaml.Unmarshal([]byte(rest[:end]), &fm); err != nil {
		return fm, "", fmt.Errorf("parsing frontmatter: %w", err)
	}
	body := strings.TrimPrefix(rest[end+len("\n---\n"):], "\n")
	return fm, body, nil
}
