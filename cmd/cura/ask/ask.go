package askcmder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/curavault/cura/cmd/cura/termout"
	"github.com/curavault/cura/pkg/llm"
)

const askLongDesc string = `Ask a running cura server a question.

POSTs the question to the server's /api/chat endpoint, optionally
grounded on content identifiers, and prints the reply. On a terminal
the reply is rendered as markdown.

Examples:
  cura ask "What did my last blood panel say?"
  cura ask --server http://localhost:3001 --account 0xabc \
    --cid bafybeigdyrzt5sfp7udm7hu76uh7y26nf3efuylqabf3oclgtqy55fbzdi \
    "Summarize my vaccination record"`

const askShortDesc string = "Ask the chat API a question"

const wordWrap = 100

type askCommander struct {
	serverURL string
	account   string
	cids      []string
	raw       bool
}

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, strings.Join(args, " "))
		},
	}

	cmd.Flags().StringVar(&cmder.serverURL, "server", "http://localhost:3001", "Base URL of the cura server")
	cmd.Flags().StringVarP(&cmder.account, "account", "a", "", "Account identifier sent with the question")
	cmd.Flags().StringArrayVar(&cmder.cids, "cid", nil, "Content identifier to ground the reply on (repeatable)")
	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print the reply without markdown rendering")

	return cmd
}

func (c *askCommander) run(ctx context.Context, cmd *cobra.Command, question string) error {
	serverURL := strings.TrimRight(c.serverURL, "/")

	reply, err := c.postChat(ctx, serverURL, llm.ChatRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Text: question}},
		Account:  c.account,
		CIDs:     c.cids,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if c.raw || !termout.IsTerminal(out) {
		fmt.Fprintln(out, reply)
		return nil
	}

	rendered, err := renderMarkdown(reply)
	if err != nil {
		fmt.Fprintln(out, reply)
		return nil
	}
	fmt.Fprint(out, rendered)
	return nil
}

func (c *askCommander) postChat(ctx context.Context, serverURL string, chatReq llm.ChatRequest) (string, error) {
	body, err := json.Marshal(chatReq)
	if err != nil {
		return "", fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result llm.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("could not decode response: %w", err)
	}

	return result.Reply, nil
}

func renderMarkdown(text string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(wordWrap),
	)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}
