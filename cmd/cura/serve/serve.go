package servecmder

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curavault/cura/api"
	"github.com/curavault/cura/pkg/completion"
	"github.com/curavault/cura/pkg/config"
	"github.com/curavault/cura/pkg/gateway"
	"github.com/curavault/cura/pkg/logger"
	"github.com/curavault/cura/pkg/metrics"
	"github.com/curavault/cura/pkg/reply"
)

const serveLongDesc string = `Run the cura chat API.

Serves POST /api/chat: the last user message is answered by the
completion service, grounded on text snippets fetched from the
storage gateway for up to three content identifiers.

Configuration comes from an optional TOML file, the environment
(OPENAI_API_KEY, IPFS_GATEWAY, PORT, ...) and these flags, in
increasing order of precedence.

Examples:
  cura serve
  cura serve --port 8080 --gateway https://ipfs.io/ipfs
  cura serve --config /etc/cura/cura.toml --debug`

const serveShortDesc string = "Run the chat API server"

const shutdownTimeout = 30 * time.Second

type serveCommander struct {
	configPath string
	port       string
	gatewayURL string
	debug      bool
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to a TOML config file")
	cmd.Flags().StringVarP(&cmder.port, "port", "p", config.DefaultPort, "Port to listen on")
	cmd.Flags().StringVar(&cmder.gatewayURL, "gateway", "", "Content gateway base URL")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Enable debug logging")

	return cmd
}

// loadConfig layers the flags that were set explicitly over the file and
// environment configuration.
func (c *serveCommander) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = c.port
	}
	if flags.Changed("gateway") {
		cfg.GatewayURL = c.gatewayURL
	}
	if flags.Changed("debug") {
		cfg.Debug = c.debug
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *serveCommander) run(ctx context.Context, cmd *cobra.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.NewLogger(cfg.Debug, logger.Format(cfg.LogFormat))
	defer log.Sync()

	log.Info("cura chat API starting",
		zap.String("listen", cfg.Addr()),
		zap.String("gateway", cfg.GatewayURL),
		zap.String("model", cfg.Model),
		zap.Duration("upstream_timeout", cfg.UpstreamTimeout),
	)
	if cfg.GatewayURL == "" {
		log.Warn("IPFS_GATEWAY is not set, replies will not be grounded on records")
	}
	if cfg.UpstreamTimeout == 0 {
		log.Debug("no upstream timeout configured, a hung gateway or completion call holds its request open")
	}

	m := metrics.New()

	completer, err := completion.NewOpenAI(completion.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.Model,
		Timeout: cfg.UpstreamTimeout,
	}, log)
	if err != nil {
		return fmt.Errorf("could not create completion client: %w", err)
	}

	fetcher := gateway.NewFetcher(cfg.GatewayURL, log,
		gateway.WithHTTPClient(&http.Client{Timeout: cfg.UpstreamTimeout}),
		gateway.WithRecorder(m),
	)
	generator := reply.NewGenerator(completer, m, log)

	srv, err := api.New(api.Config{ListenAddr: cfg.Addr()}, fetcher, generator, m, log)
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run()
	}()

	log.Info(fmt.Sprintf("Cura chat API running on http://localhost:%s", cfg.Port))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.ShutdownWithContext(shutdownCtx)
	}
}
