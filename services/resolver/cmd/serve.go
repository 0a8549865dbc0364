package cmd

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loviiin/unmark/pkg/ratelimit"
	"github.com/loviiin/unmark/services/resolver/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  serveRun,
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (default :8000)")
}

func serveRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if s := a.sweeper(); s != nil {
		go s.Run(ctx)
	}

	deps := api.Deps{
		Resolver:  a.resolver,
		Cookies:   a.cookies,
		StaticDir: cfg.Server.StaticDir,

		TrustedProxies: cfg.Server.TrustedProxies,
	}
	if a.redis != nil {
		deps.Redis = a.redis
		deps.Limiter = ratelimit.New(a.redis, cfg.Server.RateLimitPerMinute, time.Minute)
	}
	if a.history != nil {
		deps.History = a.history
	}
	if a.index != nil {
		deps.Search = a.index
	}

	return api.NewServer(deps, logger).Run(ctx, cfg.Server.Addr)
}
