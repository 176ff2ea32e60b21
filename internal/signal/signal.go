// Package signal models the published signal reports the newsletter is built from.
package signal

import (
	"errors"
	"time"
)

// DefaultThreshold is the minimum relevance score for a topic to reach a digest.
const DefaultThreshold = 9.0

// ErrNoEligibleTopics is returned when no topic clears the relevance threshold.
var ErrNoEligibleTopics = errors.New("no high-relevance topics found for this week's digest")

// Kind names one of the report time slices published per day.
type Kind string

const (
	Daily   Kind = "daily"
	Midday  Kind = "midday"
	Nightly Kind = "nightly"
)

// DefaultKinds returns the report kinds in fetch order.
func DefaultKinds() []Kind {
	return []Kind{Daily, Midday, Nightly}
}

// Source is where a topic was observed.
type Source struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// Topic is one scored item in a report.
type Topic struct {
	Title          string   `json:"title"`
	Summary        string   `json:"summary"`
	RelevanceScore float64  `json:"relevanceScore"`
	Sources        []Source `json:"sources"`
}

// Report is a single fetched signal document.
type Report struct {
	Sequence *int    `json:"sequence,omitempty"`
	Topics   []Topic `json:"topics"`

	FileName string    `json:"-"`
	Date     time.Time `json:"-"`
	Kind     Kind      `json:"-"`
}

// FileName returns the published file name for a date and kind.
func FileName(date time.Time, kind Kind) string {
	return date.Format(time.DateOnly) + "-" + string(kind) + ".json"
}

// Flatten concatenates the topics of all reports in order.
func Flatten(reports []Report) []Topic {
	var out []Topic
	for _, r := range reports {
		out = append(out, r.Topics...)
	}
	return out
}

// Eligible keeps topics scoring at least min, preserving their relative order.
func Eligible(topics []Topic, min float64) []Topic {
	var out []Topic
	for _, t := range topics {
		if t.RelevanceScore >= min {
			out = append(out, t)
		}
	}
	return out
}

// Brief is the compact shape of a topic sent to the model.
type Brief struct {
	Title   string        `json:"t"`
	Summary string        `json:"s"`
	Sources []BriefSource `json:"u,omitempty"`
}

type BriefSource struct {
	Platform string `json:"p"`
	URL      string `json:"url"`
}

// Prune projects topics to Briefs. maxSources caps the sources per topic;
// zero drops sources entirely.
func Prune(topics []Topic, maxSources int) []Brief {
	out := make([]Brief, 0, len(topics))
	for _, t := range topics {
		b := Brief{Title: t.Title, Summary: t.Summary}
		if maxSources > 0 {
			srcs := t.Sources
			if len(srcs) > maxSources {
				srcs = srcs[:maxSources]
			}
			b.Sources = make([]BriefSource, 0, len(srcs))
			for _, s := range srcs {
				b.Sources = append(b.Sources, BriefSource{Platform: s.Platform, URL: s.URL})
			}
		}
		out = append(out, b)
	}
	return out
}

// Select flattens reports, filters by min and projects the survivors.
// It returns ErrNoEligibleTopics when nothing clears the threshold.
func Select(reports []Report, min float64, maxSources int) ([]Brief, error) {
	eligible := Eligible(Flatten(reports), min)
	if len(eligible) == 0 {
		return nil, ErrNoEligibleTopics
	}
	return Prune(eligible, maxSources), nil
}
