package gateway_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/curavault/cura/pkg/gateway"
)

// fakeGateway serves content per identifier and counts every hit.
type fakeGateway struct {
	mu      sync.Mutex
	entries map[string]entry
	hits    atomic.Int32
}

type entry struct {
	contentType string
	status      int
	body        string
	delay       time.Duration
}

func (g *fakeGateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.hits.Add(1)

	g.mu.Lock()
	e, ok := g.entries[strings.TrimPrefix(r.URL.Path, "/ipfs/")]
	g.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.contentType != "" {
		w.Header().Set("Content-Type", e.contentType)
	}
	status := e.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(e.body))
}

// failingClient errors for one identifier and defers to a real client for the
// rest.
type failingClient struct {
	inner *http.Client
	fail  string
}

func (c failingClient) Do(req *http.Request) (*http.Response, error) {
	if strings.HasSuffix(req.URL.Path, "/"+c.fail) {
		return nil, errors.New("connection reset by peer")
	}
	return c.inner.Do(req)
}

type countingRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (r *countingRecorder) ObserveFetch(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[outcome]++
}

var _ = Describe("Fetcher", func() {
	var (
		ctx    context.Context
		gw     *fakeGateway
		server *httptest.Server
		base   string
	)

	BeforeEach(func() {
		ctx = context.Background()
		gw = &fakeGateway{entries: map[string]entry{}}
		server = httptest.NewServer(gw)
		base = server.URL + "/ipfs"
	})

	AfterEach(func() {
		server.Close()
	})

	Describe("URL", func() {
		It("strips trailing slashes from the base", func() {
			f := gateway.NewFetcher("https://gw.example/ipfs///", zap.NewNop())
			Expect(f.URL("bafyabc")).To(Equal("https://gw.example/ipfs/bafyabc"))
		})
	})

	Describe("Fetch", func() {
		It("only fetches the first three identifiers", func() {
			for _, id := range []string{"A", "B", "C", "D", "E"} {
				gw.entries[id] = entry{contentType: "text/plain", body: "content " + id}
			}

			f := gateway.NewFetcher(base, zap.NewNop())
			snippets := f.Fetch(ctx, []string{"A", "B", "C", "D", "E"})

			Expect(gw.hits.Load()).To(BeNumerically("==", 3))
			Expect(snippets).To(HaveLen(3))
			Expect(snippets[2].CID).To(Equal("C"))
		})

		It("returns nothing for an empty list without calling the gateway", func() {
			f := gateway.NewFetcher(base, zap.NewNop())

			Expect(f.Fetch(ctx, nil)).To(BeEmpty())
			Expect(gw.hits.Load()).To(BeZero())
		})

		It("returns nothing when no gateway is configured", func() {
			f := gateway.NewFetcher("", zap.NewNop())

			Expect(f.Fetch(ctx, []string{"A"})).To(BeEmpty())
		})

		It("skips non-textual content regardless of body", func() {
			gw.entries["img"] = entry{contentType: "image/png", body: "looks like text"}
			gw.entries["bin"] = entry{contentType: "application/octet-stream", body: "plain words"}

			f := gateway.NewFetcher(base, zap.NewNop())

			Expect(f.Fetch(ctx, []string{"img", "bin"})).To(BeEmpty())
		})

		It("accepts text and json content types", func() {
			gw.entries["txt"] = entry{contentType: "text/plain; charset=utf-8", body: "notes"}
			gw.entries["json"] = entry{contentType: "application/json", body: `{"bp":"120/80"}`}
			gw.entries["fhir"] = entry{contentType: "application/fhir+json", body: `{"resourceType":"Patient"}`}

			f := gateway.NewFetcher(base, zap.NewNop())
			snippets := f.Fetch(ctx, []string{"txt", "json", "fhir"})

			Expect(snippets).To(Equal([]gateway.Snippet{
				{CID: "txt", Text: "notes"},
				{CID: "json", Text: `{"bp":"120/80"}`},
				{CID: "fhir", Text: `{"resourceType":"Patient"}`},
			}))
		})

		It("truncates long content to the first 2000 characters", func() {
			long := strings.Repeat("a", 1999) + "b" + strings.Repeat("c", 500)
			gw.entries["long"] = entry{contentType: "text/plain", body: long}

			f := gateway.NewFetcher(base, zap.NewNop())
			snippets := f.Fetch(ctx, []string{"long"})

			Expect(snippets).To(HaveLen(1))
			Expect(snippets[0].Text).To(HaveLen(2000))
			Expect(snippets[0].Text).To(Equal(long[:2000]))
		})

		It("counts characters, not bytes, when truncating", func() {
			long := strings.Repeat("é", 2100)
			gw.entries["accents"] = entry{contentType: "text/plain", body: long}

			f := gateway.NewFetcher(base, zap.NewNop())
			snippets := f.Fetch(ctx, []string{"accents"})

			Expect(snippets).To(HaveLen(1))
			Expect([]rune(snippets[0].Text)).To(HaveLen(2000))
		})

		It("drops a failed identifier and keeps the others in order", func() {
			gw.entries["A"] = entry{contentType: "text/plain", body: "alpha", delay: 30 * time.Millisecond}
			gw.entries["B"] = entry{contentType: "text/plain", body: "beta"}
			gw.entries["C"] = entry{contentType: "text/plain", body: "gamma"}

			f := gateway.NewFetcher(base, zap.NewNop(),
				gateway.WithHTTPClient(failingClient{inner: server.Client(), fail: "B"}),
			)
			snippets := f.Fetch(ctx, []string{"A", "B", "C"})

			Expect(snippets).To(Equal([]gateway.Snippet{
				{CID: "A", Text: "alpha"},
				{CID: "C", Text: "gamma"},
			}))
			Expect(gateway.Block(snippets)).To(Equal("#CID_1\nalpha\n\n#CID_2\ngamma"))
		})

		It("drops identifiers the gateway cannot serve", func() {
			gw.entries["gone"] = entry{contentType: "text/plain", status: http.StatusGatewayTimeout, body: "upstream timeout"}

			f := gateway.NewFetcher(base, zap.NewNop())

			Expect(f.Fetch(ctx, []string{"gone", "missing"})).To(BeEmpty())
		})

		It("drops empty textual bodies", func() {
			gw.entries["empty"] = entry{contentType: "text/plain", body: ""}

			f := gateway.NewFetcher(base, zap.NewNop())

			Expect(f.Fetch(ctx, []string{"empty"})).To(BeEmpty())
		})

		It("reports every outcome to the recorder", func() {
			gw.entries["ok"] = entry{contentType: "text/plain", body: "fine"}
			gw.entries["img"] = entry{contentType: "image/jpeg", body: "x"}

			rec := &countingRecorder{outcomes: map[string]int{}}
			f := gateway.NewFetcher(base, zap.NewNop(), gateway.WithRecorder(rec))
			f.Fetch(ctx, []string{"ok", "img", "missing"})

			Expect(rec.outcomes).To(Equal(map[string]int{
				gateway.OutcomeOK:          1,
				gateway.OutcomeSkippedType: 1,
				gateway.OutcomeBadStatus:   1,
			}))
		})
	})

	Describe("IsTextual", func() {
		DescribeTable("content types",
			func(contentType string, expected bool) {
				Expect(gateway.IsTextual(contentType)).To(Equal(expected))
			},
			Entry("plain text", "text/plain", true),
			Entry("markdown", "text/markdown; charset=utf-8", true),
			Entry("json", "application/json", true),
			Entry("upper case", "TEXT/HTML", true),
			Entry("png", "image/png", false),
			Entry("pdf", "application/pdf", false),
			Entry("missing", "", false),
		)
	})
})
