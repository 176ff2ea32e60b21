package cmd

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trueberryless-org/npmx-weekly/internal/ai"
	"github.com/trueberryless-org/npmx-weekly/internal/config"
	"github.com/trueberryless-org/npmx-weekly/internal/content"
	"github.com/trueberryless-org/npmx-weekly/internal/feed"
	"github.com/trueberryless-org/npmx-weekly/internal/history"
	"github.com/trueberryless-org/npmx-weekly/internal/mailer"
	"github.com/trueberryless-org/npmx-weekly/internal/newsletter"
	"github.com/trueberryless-org/npmx-weekly/internal/render"
	"github.com/trueberryless-org/npmx-weekly/internal/signal"
)

func newStore() *content.Store {
	return content.NewStore(cfg.PostsDir(flagRoot), cfg.EmailsDir(flagRoot))
}

func newEmails() render.Emails {
	return render.Emails{SiteURL: cfg.SiteURL, BannerURL: cfg.BannerURL}
}

// newGenerator checks MODELS_TOKEN before anything touches the network.
func newGenerator() (*newsletter.Generator, error) {
	token, err := config.RequireEnv(config.EnvModelsToken)
	if err != nil {
		return nil, err
	}
	summarizer, err := ai.New(ai.Config{
		BaseURL:     cfg.Inference.URL,
		Model:       cfg.Inference.Model,
		Temperature: cfg.Inference.Temperature,
		Timeout:     cfg.InferenceTimeout(),
		UserAgent:   cfg.Inference.UserAgent,
	}, token)
	if err != nil {
		return nil, err
	}

	kinds := make([]signal.Kind, 0, len(cfg.Signals.Kinds))
	for _, k := range cfg.Signals.Kinds {
		kinds = append(kinds, signal.Kind(k))
	}
	fetcher := feed.NewFetcher(cfg.Signals.BaseURL,
		feed.WithKinds(kinds...),
		feed.WithHTTPClient(&http.Client{Timeout: cfg.SignalTimeout()}),
	)

	return &newsletter.Generator{
		Fetcher:    fetcher,
		Summarizer: summarizer,
		Store:      newStore(),
		Threshold:  cfg.Signals.MinRelevance,
		MaxSources: cfg.Signals.MaxSources,
		Authors:    cfg.Content.Authors,
	}, nil
}

// newSender checks the Resend credentials before anything touches the network.
func newSender() (*newsletter.Sender, error) {
	apiKey, err := config.RequireEnv(config.EnvResendAPIKey)
	if err != nil {
		return nil, err
	}
	segment, err := config.RequireEnv(config.EnvResendSegment)
	if err != nil {
		return nil, err
	}
	return &newsletter.Sender{
		Store:     newStore(),
		Mailer:    mailer.New(cfg.Email.APIURL, apiKey, mailer.WithTimeout(cfg.EmailTimeout())),
		Emails:    newEmails(),
		From:      cfg.Email.From,
		SegmentID: segment,
	}, nil
}

func openHistory() (*history.DB, error) {
	db, err := history.Open(cfg.HistoryDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	return db, nil
}

// recorded runs fn and records its outcome, so failures before any network
// call (missing credentials, bad flags) show up in the history too.
func recorded(kind string, fn func() (newsletter.Result, error)) (newsletter.Result, error) {
	started := time.Now()
	res, err := fn()
	recordRun(kind, started, res, err)
	return res, err
}

// recordRun logs the outcome of a run to the history database. Failures to
// record are only logged.
func recordRun(kind string, started time.Time, res newsletter.Result, runErr error) {
	db, err := openHistory()
	if err != nil {
		log.Warn().Err(err).Msg("run not recorded")
		return
	}
	defer db.Close()

	run := history.Run{
		Kind:       kind,
		Sequence:   res.Sequence,
		Artifact:   res.Path,
		Status:     history.StatusOK,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
	if res.BroadcastID != "" {
		run.Artifact = res.BroadcastID
	}
	if runErr != nil {
		run.Status = history.StatusFailed
		run.Detail = runErr.Error()
	}
	if _, err := db.Record(run); err != nil {
		log.Warn().Err(err).Msg("run not recorded")
	}
}
