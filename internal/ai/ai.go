package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	openai "github.com/sashabaranov/go-openai"

	"github.com/trueberryless-org/npmx-weekly/internal/digest"
	"github.com/trueberryless-org/npmx-weekly/internal/sanitize"
	"github.com/trueberryless-org/npmx-weekly/internal/signal"
)

// DefaultModel is used when the config names none.
const DefaultModel = "gpt-4o-mini"

// ErrEmptyResponse is returned when the model answers without content.
var ErrEmptyResponse = errors.New("model returned no content in response")

// Summarizer turns eligible signals into newsletter digests.
type Summarizer interface {
	WeeklyDigest(ctx context.Context, briefs []signal.Brief, sequence int) (digest.Digest, error)
	EmailDigest(ctx context.Context, briefs []signal.Brief, sequence int) (digest.Email, error)
}

// Config describes the chat-completion endpoint.
type Config struct {
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
	UserAgent   string
}

// Client talks to an OpenAI-compatible chat-completion endpoint.
type Client struct {
	api *openai.Client
	cfg Config
}

// New creates a Client authenticated with the given bearer token.
func New(cfg Config, token string) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("inference token not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}

	oc := openai.DefaultConfig(token)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	oc.HTTPClient = &http.Client{
		Transport: userAgentTransport{base: http.DefaultTransport, agent: cfg.UserAgent},
	}
	return &Client{api: openai.NewClientWithConfig(oc), cfg: cfg}, nil
}

const weeklySystemPrompt = "You are a JSON-only generator."

const weeklyPrompt = `You are a technical writer for npmx.
Summarize these signals into a weekly digest. Pick a maximum of %d most impactful topics.

Signals: %s

Return ONLY JSON:
{
  "description": "...",
  "quote": {
    "text": "A famous inspirational quote that fits the theme of that week's topic",
    "author": "The author of the quote"
  },
  "intro": "...",
  "topics": [
    {
      "title": "...",
      "paragraphs": "...",
      "sources": [{ "platform": "github" | "bluesky", "url": "string" }]
    }
  ]
}

Note: For platform, use strictly lowercase 'github' or 'bluesky'.`

const emailPrompt = `You are a technical editor for npmx. Create a condensed email newsletter.
Pick the TOP %d most impactful topics only.

Signals: %s

Return ONLY JSON:
{
  "subject": "npmx Weekly #%d",
  "headline": "npmx Weekly #%d",
  "intro": "A 2-sentence punchy intro.",
  "topics": [{ "title": "...", "summary": "..." }]
}`

// WeeklyPrompt builds the user prompt for the long-form digest.
func WeeklyPrompt(briefs []signal.Brief) (string, error) {
	data, err := json.Marshal(briefs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(weeklyPrompt, digest.MaxTopics, data), nil
}

// EmailPrompt builds the user prompt for the condensed email.
func EmailPrompt(briefs []signal.Brief, sequence int) (string, error) {
	data, err := json.Marshal(briefs)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(emailPrompt, digest.MaxEmailTopics, data, sequence, sequence), nil
}

func (c *Client) WeeklyDigest(ctx context.Context, briefs []signal.Brief, sequence int) (digest.Digest, error) {
	var d digest.Digest
	if len(briefs) == 0 {
		return d, signal.ErrNoEligibleTopics
	}
	prompt, err := WeeklyPrompt(briefs)
	if err != nil {
		return d, fmt.Errorf("building prompt: %w", err)
	}

	log.Info().Int("sequence", sequence).Int("signals", len(briefs)).Msg("generating weekly content via AI")
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: weeklySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature:    c.cfg.Temperature,
		ResponseFormat: jsonObject(),
	})
	if err != nil {
		return d, err
	}

	if err := DecodeJSON(content, &d); err != nil {
		return digest.Digest{}, fmt.Errorf("%w: %v", digest.ErrMalformedDigest, err)
	}
	if err := d.Validate(); err != nil {
		return digest.Digest{}, err
	}
	return d, nil
}

func (c *Client) EmailDigest(ctx context.Context, briefs []signal.Brief, sequence int) (digest.Email, error) {
	var e digest.Email
	if len(briefs) == 0 {
		return e, signal.ErrNoEligibleTopics
	}
	prompt, err := EmailPrompt(briefs, sequence)
	if err != nil {
		return e, fmt.Errorf("building prompt: %w", err)
	}

	log.Info().Int("sequence", sequence).Int("signals", len(briefs)).Msg("generating email content via AI")
	content, err := c.complete(ctx, openai.ChatCompletionRequest{
		Model:          c.cfg.Model,
		Messages:       []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		ResponseFormat: jsonObject(),
	})
	if err != nil {
		return e, err
	}

	if err := DecodeJSON(content, &e); err != nil {
		return digest.Email{}, fmt.Errorf("%w: %v", digest.ErrMalformedDigest, err)
	}
	subject := e.Subject
	e = e.Map(sanitize.String)
	e.Subject = sanitize.Text(subject)
	if err := e.Validate(); err != nil {
		return digest.Email{}, fmt.Errorf("%w (content: %s)", err, snippet(content))
	}
	return e, nil
}

func (c *Client) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("inference failed: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func jsonObject() *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
}

// DecodeJSON unmarshals model output into target, tolerating code fences and
// prose around a single JSON object.
func DecodeJSON(content string, target any) error {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return errors.New("empty payload")
	}
	directErr := json.Unmarshal([]byte(trimmed), target)
	if directErr == nil {
		return nil
	}

	extracted := extractObject(stripCodeFence(trimmed))
	if extracted == "" || extracted == trimmed {
		return fmt.Errorf("%w (payload snippet: %s)", directErr, snippet(trimmed))
	}
	if err := json.Unmarshal([]byte(extracted), target); err != nil {
		return fmt.Errorf("%w (payload snippet: %s)", err, snippet(extracted))
	}
	return nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

func extractObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func snippet(s string) string {
	const max = 200
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}

type userAgentTransport struct {
	base  http.RoundTripper
	agent string
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.agent != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.agent)
	}
	return t.base.RoundTrip(req)
}
