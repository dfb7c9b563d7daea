package cli

import (
	"github.com/spf13/cobra"

	"github.com/praveenpuviindran/trustlens/internal/api"
	"github.com/praveenpuviindran/trustlens/internal/logger"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Long: `Serve exposes runs, evidence, features, scores, explanations and models
over HTTP. SIGINT/SIGTERM shut the server down gracefully.

Example:
  trustlens serve
  trustlens serve --addr 127.0.0.1:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default: server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	addr := serveAddr
	if addr == "" {
		addr = a.cfg.Server.Addr
	}

	srv := api.NewServer(api.Deps{
		Store:     a.store,
		Analyzer:  a.pipeline,
		Features:  a.features,
		Scores:    a.scores,
		Explainer: a.explainer,
	}, api.Options{
		MaxRecords:         a.cfg.GDELT.MaxRecords,
		MaxRecordsCap:      a.cfg.GDELT.MaxRecordsCap,
		RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
		DefaultModel:       a.modelOrDefault(""),
		TrustProxy:         a.cfg.Server.TrustProxy,
	}, logger.WithComponent(a.log, "api"))

	ctx, cancel := commandContext(cmd, 0)
	defer cancel()
	return srv.ListenAndServe(ctx, addr)
}
