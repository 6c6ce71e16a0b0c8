package snippetscmder

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Snippets Command", func() {
	var (
		ctx    context.Context
		server *httptest.Server
	)

	BeforeEach(func() {
		ctx = context.Background()
		GinkgoT().Setenv("IPFS_GATEWAY", "")

		server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/ipfs/")
			if id == "scan" {
				w.Header().Set("Content-Type", "image/png")
				_, _ = w.Write([]byte("binary"))
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("record " + id))
		}))
	})

	AfterEach(func() {
		server.Close()
	})

	run := func(args ...string) (string, string, error) {
		var out, errOut bytes.Buffer
		cmd := NewSnippetsCmd()
		cmd.SetOut(&out)
		cmd.SetErr(&errOut)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(ctx)
		return out.String(), errOut.String(), err
	}

	It("prints the labeled block for resolved identifiers", func() {
		out, _, err := run("--gateway", server.URL+"/ipfs/", "a", "scan", "b")
		Expect(err).NotTo(HaveOccurred())

		Expect(out).To(Equal("#CID_1\nrecord a\n\n#CID_2\nrecord b\n"))
	})

	It("notes that extra identifiers are ignored", func() {
		out, errOut, err := run("--gateway", server.URL+"/ipfs", "a", "b", "c", "d")
		Expect(err).NotTo(HaveOccurred())

		Expect(errOut).To(ContainSubstring("Only the first 3 of 4 identifiers are fetched."))
		Expect(out).NotTo(ContainSubstring("record d"))
	})

	It("reports when nothing resolves", func() {
		out, _, err := run("--gateway", server.URL+"/ipfs", "scan")
		Expect(err).NotTo(HaveOccurred())

		Expect(out).To(Equal("No snippets resolved.\n"))
	})

	It("reads the gateway from the environment", func() {
		GinkgoT().Setenv("IPFS_GATEWAY", server.URL+"/ipfs")

		out, _, err := run("a")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("#CID_1\nrecord a\n"))
	})

	It("fails without a gateway", func() {
		_, _, err := run("a")
		Expect(err).To(MatchError(ContainSubstring("no gateway configured")))
	})
})
