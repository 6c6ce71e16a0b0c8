package snippetscmder

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curavault/cura/cmd/cura/termout"
	"github.com/curavault/cura/pkg/config"
	"github.com/curavault/cura/pkg/gateway"
	"github.com/curavault/cura/pkg/logger"
)

const snippetsLongDesc string = `Resolve content identifiers the way the chat API does.

Fetches up to three identifiers from the storage gateway and prints
the labeled context block a chat request with the same identifiers
would send to the completion service. Useful for checking what the
assistant will actually see.

Examples:
  cura snippets bafkreib3... bafkreic7...
  cura snippets --gateway http://127.0.0.1:8080/ipfs bafkreib3...`

const snippetsShortDesc string = "Show the record snippets for content identifiers"

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cidStyle   = lipgloss.NewStyle().Faint(true)
	noteStyle  = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("11"))
)

type snippetsCommander struct {
	configPath string
	gatewayURL string
	debug      bool
}

func NewSnippetsCmd() *cobra.Command {
	cmder := &snippetsCommander{}

	cmd := &cobra.Command{
		Use:   "snippets <cid>...",
		Short: snippetsShortDesc,
		Long:  snippetsLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd, args)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVar(&cmder.gatewayURL, "gateway", "", "Content gateway base URL (default $IPFS_GATEWAY)")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Log every gateway fetch")

	return cmd
}

func (c *snippetsCommander) run(ctx context.Context, cmd *cobra.Command, cids []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.gatewayURL != "" {
		cfg.GatewayURL = c.gatewayURL
	}
	if cfg.GatewayURL == "" {
		return errors.New("no gateway configured: set IPFS_GATEWAY or pass --gateway")
	}

	log := zap.NewNop()
	if c.debug {
		log = logger.NewLogger(true, logger.FormatConsole)
		defer log.Sync()
	}

	fetcher := gateway.NewFetcher(cfg.GatewayURL, log)
	snippets := fetcher.Fetch(ctx, cids)

	out := cmd.OutOrStdout()
	styled := termout.IsTerminal(out)

	if len(cids) > gateway.MaxCIDs {
		note := fmt.Sprintf("Only the first %d of %d identifiers are fetched.", gateway.MaxCIDs, len(cids))
		if styled {
			note = noteStyle.Render(note)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), note)
	}

	if len(snippets) == 0 {
		fmt.Fprintln(out, "No snippets resolved.")
		return nil
	}

	if !styled {
		fmt.Fprintln(out, gateway.Block(snippets))
		return nil
	}

	printStyled(out, snippets)
	return nil
}

func printStyled(out io.Writer, snippets []gateway.Snippet) {
	for i, s := range snippets {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render(fmt.Sprintf("#CID_%d", i+1)), cidStyle.Render(s.CID))
		fmt.Fprintln(out, s.Text)
	}
}
