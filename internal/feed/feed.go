package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trueberryless-org/npmx-weekly/internal/signal"
)

// Fetcher retrieves published signal reports from a static file host.
type Fetcher struct {
	baseURL string
	kinds   []signal.Kind
	client  *http.Client
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithKinds overrides the report kinds fetched for each day.
func WithKinds(kinds ...signal.Kind) Option {
	return func(f *Fetcher) {
		if len(kinds) > 0 {
			f.kinds = kinds
		}
	}
}

func NewFetcher(baseURL string, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		kinds:   signal.DefaultKinds(),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch retrieves a single report. A non-200 response is reported as an error.
func (f *Fetcher) Fetch(ctx context.Context, date time.Time, kind signal.Kind) (*signal.Report, error) {
	name := signal.FileName(date, kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/"+name, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("fetching %s: status %d", name, resp.StatusCode)
	}

	var r signal.Report
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", name, err)
	}
	r.FileName = name
	r.Date = date
	r.Kind = kind
	return &r, nil
}

// FetchRange retrieves every report between from and to inclusive, one day
// and kind at a time. Missing or unreadable files are skipped.
func (f *Fetcher) FetchRange(ctx context.Context, from, to time.Time) []signal.Report {
	var reports []signal.Report
	for _, day := range Days(from, to) {
		for _, kind := range f.kinds {
			if ctx.Err() != nil {
				return reports
			}
			r, err := f.Fetch(ctx, day, kind)
			if err != nil {
				log.Debug().Err(err).Msg("skipping report")
				continue
			}
			log.Info().Str("file", r.FileName).Int("topics", len(r.Topics)).Msg("fetched report")
			reports = append(reports, *r)
		}
	}
	return reports
}

// FetchWeek retrieves the reports of the week containing now.
func (f *Fetcher) FetchWeek(ctx context.Context, now time.Time) []signal.Report {
	from, to := WeekRange(now)
	log.Info().
		Str("from", from.Format(time.DateOnly)).
		Str("to", to.Format(time.DateOnly)).
		Msg("fetching this week's reports")
	return f.FetchRange(ctx, from, to)
}

// Days lists the UTC calendar days from..to inclusive.
func Days(from, to time.Time) []time.Time {
	start := truncateDay(from)
	end := truncateDay(to)
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// WeekRange returns Monday of now's week through today, capped at Friday.
func WeekRange(now time.Time) (time.Time, time.Time) {
	today := truncateDay(now)
	offset := (int(today.Weekday()) + 6) % 7
	monday := today.AddDate(0, 0, -offset)
	friday := monday.AddDate(0, 0, 4)
	if today.After(friday) {
		return monday, friday
	}
	return monday, today
}

// NextSunday returns the Sunday ending now's week (today when now is a Sunday).
func NextSunday(now time.Time) time.Time {
	today := truncateDay(now)
	return today.AddDate(0, 0, (7-int(today.Weekday()))%7)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
