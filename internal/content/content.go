// Package content reads and writes the site's post and email files.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"github.com/trueberryless-org/npmx-weekly/internal/digest"
)

const (
	PostExt  = ".mdx"
	EmailExt = ".json"

	lockName = ".sequence.lock"
)

var (
	// ErrNoDrafts is returned when the emails directory holds no numbered draft.
	ErrNoDrafts = errors.New("no email drafts found")
	// ErrLocked is returned when another run holds the content lock.
	ErrLocked = errors.New("content tree is locked by another run")
)

// EmailPayload is the stored form of an email draft.
type EmailPayload struct {
	Sequence    int                 `json:"sequence"`
	Subject     string              `json:"subject"`
	Headline    string              `json:"headline"`
	Intro       string              `json:"intro"`
	Topics      []digest.EmailTopic `json:"topics"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// NewEmailPayload stamps an email digest with its sequence and time.
func NewEmailPayload(seq int, e digest.Email, now time.Time) EmailPayload {
	topics := e.Topics
	if topics == nil {
		topics = []digest.EmailTopic{}
	}
	return EmailPayload{
		Sequence:    seq,
		Subject:     e.Subject,
		Headline:    e.Headline,
		Intro:       e.Intro,
		Topics:      topics,
		GeneratedAt: now.UTC(),
	}
}

// Email returns the digest part of the payload.
func (p EmailPayload) Email() digest.Email {
	return digest.Email{Subject: p.Subject, Headline: p.Headline, Intro: p.Intro, Topics: p.Topics}
}

// Store manages the numbered files under the content root.
type Store struct {
	PostsDir  string
	EmailsDir string
	LockPath  string
}

// NewStore creates a store whose lock file sits in the parent of the posts directory.
func NewStore(postsDir, emailsDir string) *Store {
	return &Store{
		PostsDir:  postsDir,
		EmailsDir: emailsDir,
		LockPath:  filepath.Join(filepath.Dir(postsDir), lockName),
	}
}

// Lock takes the advisory content lock without waiting. The returned func
// releases it.
func (s *Store) Lock() (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.LockPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	fl := flock.New(s.LockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquiring content lock: %w", err)
	}
	if !ok {
		return nil, ErrLocked
	}
	return func() { _ = fl.Unlock() }, nil
}

// Numbers returns the sorted numeric stems of files with ext in dir.
// A missing directory yields no numbers.
func Numbers(dir, ext string) ([]int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	var nums []int
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(e.Name(), ext))
		if err != nil || n < 0 {
			continue
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, nil
}

// NextSequence returns one more than the greatest numbered file, or 1.
func NextSequence(dir, ext string) (int, error) {
	nums, err := Numbers(dir, ext)
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 1, nil
	}
	return nums[len(nums)-1] + 1, nil
}

// NextPost returns the sequence number for the next post.
func (s *Store) NextPost() (int, error) {
	return NextSequence(s.PostsDir, PostExt)
}

// LatestPost returns the number of the newest post, at least 1.
func (s *Store) LatestPost() (int, error) {
	next, err := s.NextPost()
	if err != nil {
		return 0, err
	}
	return max(1, next-1), nil
}

func (s *Store) PostPath(seq int) string {
	return filepath.Join(s.PostsDir, strconv.Itoa(seq)+PostExt)
}

func (s *Store) EmailPath(seq int) string {
	return filepath.Join(s.EmailsDir, strconv.Itoa(seq)+EmailExt)
}

// WritePost writes post seq, replacing any existing file.
func (s *Store) WritePost(seq int, data []byte) (string, error) {
	return writeFile(s.PostPath(seq), data)
}

// WriteEmail writes the draft as indented JSON, replacing any existing file.
func (s *Store) WriteEmail(p EmailPayload) (string, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding email draft: %w", err)
	}
	return writeFile(s.EmailPath(p.Sequence), data)
}

// ReadEmail loads draft seq. The file name wins over the stored sequence.
func (s *Store) ReadEmail(seq int) (EmailPayload, error) {
	var p EmailPayload
	data, err := os.ReadFile(s.EmailPath(seq))
	if err != nil {
		return p, fmt.Errorf("reading email draft: %w", err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("decoding email draft %d: %w", seq, err)
	}
	p.Sequence = seq
	return p, nil
}

// LatestEmail loads the numerically greatest draft.
func (s *Store) LatestEmail() (EmailPayload, error) {
	nums, err := Numbers(s.EmailsDir, EmailExt)
	if err != nil {
		return EmailPayload{}, err
	}
	if len(nums) == 0 {
		return EmailPayload{}, fmt.Errorf("%w in %s", ErrNoDrafts, s.EmailsDir)
	}
	return s.ReadEmail(nums[len(nums)-1])
}

func writeFile(path string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
