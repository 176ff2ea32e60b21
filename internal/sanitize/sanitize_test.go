package sanitize

import "testing"

func TestString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"<b>bold</b> and <em>em</em>", "<b>bold</b> and <em>em</em>"},
		{"<strong>x</strong><i>y</i>", "<strong>x</strong><i>y</i>"},
		{"<script>alert(1)</script>safe", "safe"},
		{"<style>p{}</style><p>para</p>", "para"},
		{`<img src="x.png" onerror="boom()">after`, "after"},
		{`<div class="c"><span>kept text</span></div>`, "kept text"},
		{`<a href="https://npmx.dev" onclick="x()">link</a>`, `<a href="https://npmx.dev">link</a>`},
		{`<a href="javascript:alert(1)">bad</a>`, `<a>bad</a>`},
		{`<a href="/posts/3">rel</a>`, `<a href="/posts/3">rel</a>`},
		{`<b style="color:red">styled</b>`, `<b>styled</b>`},
		{"5 &lt; 6 & 7", "5 &lt; 6 &amp; 7"},
		{"What's new in npmx", "What's new in npmx"},
		{`The "fast" one`, `The "fast" one`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := String(tt.input); got != tt.want {
			t.Errorf("String(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNestedDropContent(t *testing.T) {
	got := String("a<noscript><b>hidden</b></noscript>b")
	if got != "ab" {
		t.Errorf("expected content inside noscript to be dropped, got %q", got)
	}
}

func TestCustomPolicy(t *testing.T) {
	p := Policy{Tags: map[string][]string{"code": nil}}
	if got := p.Sanitize("<code>npm i</code> <b>x</b>"); got != "<code>npm i</code> x" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"What's new in npmx", "What's new in npmx"},
		{"<b>Faster</b> installs & more", "Faster installs & more"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
		{"<script>x</script>npmx Weekly #4", "npmx Weekly #4"},
	}
	for _, tt := range tests {
		if got := Text(tt.input); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
