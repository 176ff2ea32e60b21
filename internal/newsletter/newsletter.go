// Package newsletter wires fetching, summarizing, rendering and publishing
// into the runs exposed on the command line.
package newsletter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trueberryless-org/npmx-weekly/internal/ai"
	"github.com/trueberryless-org/npmx-weekly/internal/content"
	"github.com/trueberryless-org/npmx-weekly/internal/feed"
	"github.com/trueberryless-org/npmx-weekly/internal/render"
	"github.com/trueberryless-org/npmx-weekly/internal/signal"
)

// ErrNoReports is returned when no report could be fetched for a range.
var ErrNoReports = errors.New("no signal reports found for the requested range")

// Fetcher retrieves the reports published between two days.
type Fetcher interface {
	FetchRange(ctx context.Context, from, to time.Time) []signal.Report
}

// Result describes what a run produced.
type Result struct {
	Sequence    int
	Path        string
	Topics      int
	BroadcastID string
}

// Generator produces posts and email drafts from signal reports.
type Generator struct {
	Fetcher    Fetcher
	Summarizer ai.Summarizer
	Store      *content.Store
	Threshold  float64
	MaxSources int
	Authors    []string
	Now        func() time.Time
}

func (g *Generator) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g *Generator) threshold() float64 {
	if g.Threshold > 0 {
		return g.Threshold
	}
	return signal.DefaultThreshold
}

// Weekly writes the next post from the current week's reports, dated the
// coming Sunday.
func (g *Generator) Weekly(ctx context.Context) (Result, error) {
	unlock, err := g.Store.Lock()
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	seq, err := g.Store.NextPost()
	if err != nil {
		return Result{}, fmt.Errorf("allocating sequence: %w", err)
	}
	now := g.now()
	from, to := feed.WeekRange(now)
	return g.post(ctx, seq, from, to, feed.NextSunday(now))
}

// Backfill writes post seq from the reports between from and to, dated to.
func (g *Generator) Backfill(ctx context.Context, seq int, from, to time.Time) (Result, error) {
	if seq < 1 {
		return Result{}, fmt.Errorf("invalid sequence %d", seq)
	}
	if to.Before(from) {
		return Result{}, fmt.Errorf("end date %s is before start date %s", to.Format(time.DateOnly), from.Format(time.DateOnly))
	}
	unlock, err := g.Store.Lock()
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	return g.post(ctx, seq, from, to, to)
}

func (g *Generator) post(ctx context.Context, seq int, from, to, date time.Time) (Result, error) {
	log.Info().Int("sequence", seq).Msg("generating npmx Weekly digest")

	briefs, err := g.briefs(ctx, from, to, g.MaxSources)
	if err != nil {
		return Result{}, err
	}

	d, err := g.Summarizer.WeeklyDigest(ctx, briefs, seq)
	if err != nil {
		return Result{}, fmt.Errorf("summarizing: %w", err)
	}

	body, err := render.PostBody(d)
	if err != nil {
		return Result{}, err
	}
	data, err := render.Post(render.NewFrontmatter(seq, d.Description, date, g.Authors), body)
	if err != nil {
		return Result{}, err
	}

	path, err := g.Store.WritePost(seq, data)
	if err != nil {
		return Result{}, err
	}
	log.Info().Str("path", path).Int("topics", len(d.Topics)).Msg("created post")
	return Result{Sequence: seq, Path: path, Topics: len(d.Topics)}, nil
}

// DraftEmail writes email draft seq from the current week's reports. A seq of
// 0 uses the newest existing post number.
func (g *Generator) DraftEmail(ctx context.Context, seq int) (Result, error) {
	unlock, err := g.Store.Lock()
	if err != nil {
		return Result{}, err
	}
	defer unlock()

	if seq == 0 {
		if seq, err = g.Store.LatestPost(); err != nil {
			return Result{}, fmt.Errorf("resolving sequence: %w", err)
		}
	}
	log.Info().Int("sequence", seq).Msg("generating email draft")

	now := g.now()
	from, to := feed.WeekRange(now)
	briefs, err := g.briefs(ctx, from, to, 0)
	if err != nil {
		return Result{}, err
	}

	e, err := g.Summarizer.EmailDigest(ctx, briefs, seq)
	if err != nil {
		return Result{}, fmt.Errorf("summarizing: %w", err)
	}

	path, err := g.Store.WriteEmail(content.NewEmailPayload(seq, e, now))
	if err != nil {
		return Result{}, err
	}
	log.Info().Str("path", path).Int("topics", len(e.Topics)).Msg("created email draft")
	return Result{Sequence: seq, Path: path, Topics: len(e.Topics)}, nil
}

func (g *Generator) briefs(ctx context.Context, from, to time.Time, maxSources int) ([]signal.Brief, error) {
	reports := g.Fetcher.FetchRange(ctx, from, to)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, fmt.Errorf("%w (%s to %s)", ErrNoReports, from.Format(time.DateOnly), to.Format(time.DateOnly))
	}
	briefs, err := signal.Select(reports, g.threshold(), maxSources)
	if err != nil {
		return nil, err
	}
	log.Info().Int("reports", len(reports)).Int("eligible", len(briefs)).Msg("selected signals")
	return briefs, nil
}
