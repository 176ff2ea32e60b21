// Package mailer is a small client for the Resend REST API.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultBaseURL is the public Resend API.
const DefaultBaseURL = "https://api.resend.com"

// APIError is a non-success response from the provider.
type APIError struct {
	StatusCode int
	Name       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("resend: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("resend: HTTP %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// Client sends requests to Resend with a bearer API key.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.client = c }
}

// WithTimeout bounds every request.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) { cl.client.Timeout = d }
}

// New creates a Client for baseURL (DefaultBaseURL when empty).
func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Contact is an audience member.
type Contact struct {
	Email        string `json:"email"`
	Unsubscribed bool   `json:"unsubscribed"`
}

// Email is a single transactional message.
type Email struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Broadcast is a message to every contact of a segment.
type Broadcast struct {
	SegmentID string `json:"segment_id"`
	Name      string `json:"name"`
	From      string `json:"from"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
	Send      bool   `json:"send"`
}

type idResponse struct {
	ID string `json:"id"`
}

// CreateContact adds a subscribed contact. An already existing contact is not an error.
func (c *Client) CreateContact(ctx context.Context, email string) error {
	err := c.do(ctx, http.MethodPost, "/contacts", Contact{Email: email}, "", nil)
	if IsStatus(err, http.StatusConflict) {
		log.Debug().Str("email", email).Msg("contact already exists")
		return nil
	}
	return err
}

// AddContactToSegment puts an existing contact into a segment.
func (c *Client) AddContactToSegment(ctx context.Context, email, segmentID string) error {
	path := "/contacts/" + url.PathEscape(email) + "/segments/" + url.PathEscape(segmentID)
	return c.do(ctx, http.MethodPost, path, struct{}{}, "", nil)
}

// SendEmail sends a single email and returns its id.
func (c *Client) SendEmail(ctx context.Context, e Email) (string, error) {
	var resp idResponse
	if err := c.do(ctx, http.MethodPost, "/emails", e, "", &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// CreateBroadcast creates a broadcast and returns its id. A non-empty
// idempotency key makes retries of the same broadcast harmless.
func (c *Client) CreateBroadcast(ctx context.Context, b Broadcast, idempotencyKey string) (string, error) {
	var resp idResponse
	if err := c.do(ctx, http.MethodPost, "/broadcasts", b, idempotencyKey, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, idempotencyKey string, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var e struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &e) == nil {
			apiErr.Name, apiErr.Message = e.Name, e.Message
		}
		return apiErr
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}
