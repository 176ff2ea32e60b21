// Package sanitize strips model-authored strings down to a small inline HTML allow-list.
package sanitize

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// Policy lists the tags and per-tag attributes that survive sanitizing.
type Policy struct {
	Tags    map[string][]string
	Schemes map[string]bool
}

// Inline allows basic emphasis and links with an href.
var Inline = Policy{
	Tags: map[string][]string{
		"b":      nil,
		"i":      nil,
		"em":     nil,
		"strong": nil,
		"a":      {"href"},
	},
	Schemes: map[string]bool{"http": true, "https": true, "mailto": true},
}

// dropContent lists elements whose text is discarded along with the tag.
var dropContent = map[string]bool{
	"script":   true,
	"style":    true,
	"textarea": true,
	"option":   true,
	"noscript": true,
}

// textEscaper escapes only the characters that could open markup; quotes and
// apostrophes in text stay literal.
var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

// String sanitizes s with the Inline policy.
func String(s string) string {
	return Inline.Sanitize(s)
}

// Text strips every tag from s and returns plain, unescaped text, for fields
// such as subjects that are never rendered as HTML.
func Text(s string) string {
	return html.UnescapeString(Policy{}.Sanitize(s))
}

// Sanitize removes every tag and attribute not allowed by p. Text of removed
// tags is kept, except inside script-like elements.
func (p Policy) Sanitize(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF or a tokenizer error; either way the input is exhausted.
			return b.String()

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			if dropContent[tok.Data] {
				if tt == html.StartTagToken {
					skip++
				}
				continue
			}
			if skip > 0 {
				continue
			}
			attrs, ok := p.Tags[tok.Data]
			if !ok {
				continue
			}
			b.WriteString("<" + tok.Data)
			for _, a := range tok.Attr {
				if !contains(attrs, a.Key) || !p.allowedValue(a) {
					continue
				}
				b.WriteString(" " + a.Key + `="` + html.EscapeString(a.Val) + `"`)
			}
			if tt == html.SelfClosingTagToken {
				b.WriteString(" />")
			} else {
				b.WriteString(">")
			}

		case html.EndTagToken:
			tok := z.Token()
			if dropContent[tok.Data] {
				if skip > 0 {
					skip--
				}
				continue
			}
			if skip > 0 {
				continue
			}
			if _, ok := p.Tags[tok.Data]; ok {
				b.WriteString("</" + tok.Data + ">")
			}

		case html.TextToken:
			if skip > 0 {
				continue
			}
			b.WriteString(textEscaper.Replace(z.Token().Data))
		}
	}
}

func (p Policy) allowedValue(a html.Attribute) bool {
	if a.Key != "href" && a.Key != "src" {
		return true
	}
	u, err := url.Parse(strings.TrimSpace(a.Val))
	if err != nil {
		return false
	}
	if u.Scheme == "" {
		return true
	}
	return p.Schemes[strings.ToLower(u.Scheme)]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
