package signal

import (
	"encoding/json"
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestFileName(t *testing.T) {
	d := time.Date(2026, 1, 19, 15, 0, 0, 0, time.UTC)
	if got := FileName(d, Midday); got != "2026-01-19-midday.json" {
		t.Errorf("FileName = %q", got)
	}
}

func TestEligibleThreshold(t *testing.T) {
	topics := []Topic{
		{Title: "a", RelevanceScore: 9},
		{Title: "b", RelevanceScore: 8.9},
		{Title: "c", RelevanceScore: 10},
		{Title: "d", RelevanceScore: 5},
		{Title: "e", RelevanceScore: 9.5},
	}
	got := Eligible(topics, DefaultThreshold)
	want := []string{"a", "c", "e"}
	if len(got) != len(want) {
		t.Fatalf("expected %d topics, got %d: %v", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i].Title != w {
			t.Errorf("position %d: expected %q, got %q", i, w, got[i].Title)
		}
	}
}

func TestEligibleProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for round := 0; round < 200; round++ {
		n := rng.Intn(30)
		topics := make([]Topic, n)
		for i := range topics {
			topics[i] = Topic{Title: string(rune('A' + i)), RelevanceScore: float64(rng.Intn(101)) / 10}
		}

		got := Eligible(topics, DefaultThreshold)

		// Never includes a lower score
		for _, tp := range got {
			if tp.RelevanceScore < DefaultThreshold {
				t.Fatalf("round %d: topic %q with score %v passed the filter", round, tp.Title, tp.RelevanceScore)
			}
		}
		// Preserves relative order and drops nothing eligible
		j := 0
		for _, tp := range topics {
			if tp.RelevanceScore < DefaultThreshold {
				continue
			}
			if j >= len(got) || got[j].Title != tp.Title {
				t.Fatalf("round %d: order or membership mismatch at %d", round, j)
			}
			j++
		}
		if j != len(got) {
			t.Fatalf("round %d: expected %d eligible topics, got %d", round, j, len(got))
		}
	}
}

func TestFlattenSkipsEmptyReports(t *testing.T) {
	reports := []Report{
		{Topics: []Topic{{Title: "one"}}},
		{},
		{Topics: []Topic{{Title: "two"}, {Title: "three"}}},
	}
	got := Flatten(reports)
	if len(got) != 3 || got[0].Title != "one" || got[2].Title != "three" {
		t.Errorf("unexpected flatten result: %v", got)
	}
}

func TestPruneCapsSources(t *testing.T) {
	topics := []Topic{{
		Title:   "npmx ships",
		Summary: "release",
		Sources: []Source{
			{Platform: "github", URL: "https://github.com/1"},
			{Platform: "bluesky", URL: "https://bsky.app/2"},
			{Platform: "github", URL: "https://github.com/3"},
			{Platform: "github", URL: "https://github.com/4"},
		},
	}}

	got := Prune(topics, 3)
	if len(got[0].Sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(got[0].Sources))
	}
	if got[0].Sources[1].Platform != "bluesky" {
		t.Errorf("expected sources in original order, got %v", got[0].Sources)
	}

	bare := Prune(topics, 0)
	data, err := json.Marshal(bare)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `[{"t":"npmx ships","s":"release"}]` {
		t.Errorf("unexpected compact brief: %s", data)
	}
}

func TestSelectNoEligible(t *testing.T) {
	reports := []Report{{Topics: []Topic{{Title: "meh", RelevanceScore: 4}}}}
	if _, err := Select(reports, DefaultThreshold, 3); !errors.Is(err, ErrNoEligibleTopics) {
		t.Errorf("expected ErrNoEligibleTopics, got %v", err)
	}
}

func TestReportDecoding(t *testing.T) {
	raw := `{"sequence": 41, "topics": [{"title": "T", "summary": "S", "relevanceScore": 9.5,
		"sources": [{"platform": "github", "url": "https://github.com/npmx-dev"}]}], "generatedAt": "x"}`
	var r Report
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if r.Sequence == nil || *r.Sequence != 41 {
		t.Errorf("expected sequence 41, got %v", r.Sequence)
	}
	if len(r.Topics) != 1 || r.Topics[0].RelevanceScore != 9.5 {
		t.Errorf("unexpected topics: %+v", r.Topics)
	}
}
