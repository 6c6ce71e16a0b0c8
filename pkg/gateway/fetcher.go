// Package gateway resolves content identifiers against a content-addressed
// storage gateway and turns textual results into short prompt snippets.
package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// MaxCIDs is how many identifiers of a request are considered. Extras are
	// ignored.
	MaxCIDs = 3

	// MaxSnippetChars bounds the text kept from a single identifier.
	MaxSnippetChars = 2000
)

// Fetch outcomes reported to a Recorder.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeSkippedType = "skipped_type"
	OutcomeBadStatus   = "bad_status"
	OutcomeError       = "error"
)

// HTTPClient is the subset of *http.Client the fetcher needs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Recorder receives one outcome per attempted fetch.
type Recorder interface {
	ObserveFetch(outcome string)
}

// Snippet is the bounded text resolved for one content identifier.
type Snippet struct {
	CID  string
	Text string
}

// Fetcher resolves content identifiers to snippets. It holds no per-request
// state and is safe for concurrent use.
type Fetcher struct {
	baseURL  string
	client   HTTPClient
	recorder Recorder
	logger   *zap.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default client, which has no timeout.
func WithHTTPClient(c HTTPClient) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithRecorder reports every fetch outcome to r.
func WithRecorder(r Recorder) Option {
	return func(f *Fetcher) {
		f.recorder = r
	}
}

// NewFetcher creates a Fetcher for the gateway at baseURL. Trailing slashes
// are stripped. An empty baseURL yields a Fetcher that never returns
// snippets.
func NewFetcher(baseURL string, logger *zap.Logger, opts ...Option) *Fetcher {
	f := &Fetcher{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URL is the retrieval URL for cid.
func (f *Fetcher) URL(cid string) string {
	return f.baseURL + "/" + cid
}

// Fetch resolves the first MaxCIDs identifiers concurrently and returns the
// snippets that resolved, in identifier order. Failed, empty and non-textual
// identifiers are dropped; Fetch itself never fails.
func (f *Fetcher) Fetch(ctx context.Context, cids []string) []Snippet {
	if len(cids) > MaxCIDs {
		cids = cids[:MaxCIDs]
	}
	if len(cids) == 0 {
		return nil
	}
	if f.baseURL == "" {
		f.logger.Debug("no gateway configured, skipping snippets", zap.Int("cid_count", len(cids)))
		return nil
	}

	type result struct {
		snippet Snippet
		ok      bool
	}

	// Each goroutine owns one slot, so completion order does not matter.
	results := make([]result, len(cids))

	var g errgroup.Group
	g.SetLimit(MaxCIDs)
	for i, cid := range cids {
		i, cid := i, cid
		g.Go(func() error {
			text, ok := f.FetchText(ctx, cid)
			results[i] = result{snippet: Snippet{CID: cid, Text: text}, ok: ok}
			return nil
		})
	}
	_ = g.Wait()

	snippets := make([]Snippet, 0, len(results))
	for _, r := range results {
		if r.ok {
			snippets = append(snippets, r.snippet)
		}
	}
	return snippets
}

// FetchText resolves a single identifier. ok is false when the identifier
// contributes no snippet, for whatever reason.
func (f *Fetcher) FetchText(ctx context.Context, cid string) (text string, ok bool) {
	text, outcome, err := f.get(ctx, cid)
	if f.recorder != nil {
		f.recorder.ObserveFetch(outcome)
	}

	if err != nil {
		f.logger.Debug("gateway fetch failed",
			zap.String("cid", cid),
			zap.Error(err),
		)
		return "", false
	}

	f.logger.Debug("gateway fetch",
		zap.String("cid", cid),
		zap.String("outcome", outcome),
		zap.Int("chars", len([]rune(text))),
	)
	return text, outcome == OutcomeOK
}

func (f *Fetcher) get(ctx context.Context, cid string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL(cid), nil)
	if err != nil {
		return "", OutcomeError, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", OutcomeError, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", OutcomeBadStatus, nil
	}

	if !IsTextual(resp.Header.Get("Content-Type")) {
		return "", OutcomeSkippedType, nil
	}

	text, err := readChars(resp.Body, MaxSnippetChars)
	if err != nil {
		return "", OutcomeError, fmt.Errorf("read body: %w", err)
	}
	if text == "" {
		return "", OutcomeEmpty, nil
	}

	return text, OutcomeOK, nil
}

// IsTextual reports whether a declared content type carries text or JSON.
func IsTextual(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "text") || strings.Contains(ct, "json")
}

// readChars decodes at most n characters from r as UTF-8. Invalid byte
// sequences decode to U+FFFD. The rest of r is left unread.
func readChars(r io.Reader, n int) (string, error) {
	br := bufio.NewReader(r)

	var sb strings.Builder
	for i := 0; i < n; i++ {
		ch, _, err := br.ReadRune()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
		sb.WriteRune(ch)
	}
	return sb.String(), nil
}
