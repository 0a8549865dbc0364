package cmd

import (
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/loviiin/unmark/pkg/dedup"
	"github.com/loviiin/unmark/pkg/metrics"
	"github.com/loviiin/unmark/services/resolver/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume resolve jobs from NATS JetStream",
	Long: `worker pulls {request_id, url} jobs from jobs.resolve and publishes
{request_id, success, result|error} on data.media_resolved.`,
	Args: cobra.NoArgs,
	RunE: workerRun,
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <share text>",
	Short: "Publish a resolve job for the workers",
	Args:  cobra.MinimumNArgs(1),
	RunE:  enqueueRun,
}

func init() {
	workerCmd.Flags().Int("workers", 0, "Concurrent fetchers (default nats.workers)")
	workerCmd.AddCommand(enqueueCmd)
}

func connectJetStream() (*nats.Conn, nats.JetStreamContext, error) {
	if cfg.Nats.URL == "" {
		return nil, nil, errors.New("nats.url is not configured")
	}
	nc, err := nats.Connect(cfg.Nats.URL, nats.Name("unmark-resolver"))
	if err != nil {
		return nil, nil, err
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, err
	}
	queue.EnsureStreams(js, logger)
	return nc, js, nil
}

func workerRun(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	nc, js, err := connectJetStream()
	if err != nil {
		return err
	}
	defer nc.Close()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if s := a.sweeper(); s != nil {
		go s.Run(ctx)
	}

	var w *queue.Worker
	if a.redis != nil {
		w = queue.NewWorker(a.resolver, dedup.NewDeduplicator(a.redis, 0), js, logger)
		if cfg.Metrics.Addr != "" {
			go func() {
				if err := metrics.StartMetricsServer(cfg.Metrics.Addr, a.redis, metrics.Defaults, logger); err != nil {
					logger.Error().Err(err).Msg("metrics server stopped")
				}
			}()
		}
	} else {
		w = queue.NewWorker(a.resolver, nil, js, logger)
	}

	n, _ := cmd.Flags().GetInt("workers")
	if n <= 0 {
		n = cfg.Nats.Workers
	}
	return queue.Run(ctx, js, w, n)
}

func enqueueRun(cmd *cobra.Command, args []string) error {
	nc, js, err := connectJetStream()
	if err != nil {
		return err
	}
	defer nc.Close()

	id, err := queue.Enqueue(js, joinArgs(args))
	if err != nil {
		return err
	}
	printJSON(cmd, map[string]string{"request_id": id})
	return nil
}
