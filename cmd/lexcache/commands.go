package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/goccy/go-json"
	"github.com/hyp3rd/ewrap"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/hyp3rd/lexcache"
	"github.com/hyp3rd/lexcache/pkg/loader"
	"github.com/hyp3rd/lexcache/pkg/metrics"
	"github.com/hyp3rd/lexcache/pkg/registry"
)

const shutdownTimeout = 5 * time.Second

func newRootCmd(out io.Writer) *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "lexcache",
		Short:         "Serve named in-process cache collections",
		Long:          `lexcache serves TTL caches with adaptive capacity and exposes them through a management HTTP API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.SetOut(out)
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")

	root.AddCommand(
		newServeCmd(&configPath),
		newCheckCmd(&configPath),
		newVersionCmd(),
	)

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("lexcache %s\n", version)
			cmd.Printf("commit: %s\n", commit)
			cmd.Printf("built: %s\n", buildDate)
		},
	}
}

func newCheckCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the effective collections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := lexcache.LoadConfig(*configPath)
			if err != nil {
				return err
			}

			r, err := registry.New(registry.WithCollectionTTL(cfg.CollectionTTL))
			if err != nil {
				return err
			}

			// check never resolves a collection, so no load reaches the client
			if err := cfg.DefineCollections(r, noClient{}); err != nil {
				return err
			}

			out := make(map[string]any, len(cfg.Collections))
			for _, name := range r.Names() {
				policy, _ := r.Policy(name)
				out[name] = policy.Normalize()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(map[string]any{
				"management":     cfg.Management.Addr,
				"collection_ttl": r.CollectionTTL().String(),
				"collections":    out,
			})
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the management server over the configured collections",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := lexcache.LoadConfig(*configPath)
			if err != nil {
				return err
			}

			if addr != "" {
				cfg.Management.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, cfg.Log.Logger(cmd.ErrOrStderr()))
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "management listen address, overrides the configuration")

	return cmd
}

func serve(ctx context.Context, cfg *lexcache.Config, logger zerolog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := metrics.NewExporter(reg)
	if err != nil {
		return err
	}

	r, err := registry.New(
		registry.WithCollectionTTL(cfg.CollectionTTL),
		registry.WithLogger(logger),
		registry.WithStatsFactory(exporter.Collector),
	)
	if err != nil {
		return err
	}

	if err := reg.Register(metrics.NewSizeCollector(r)); err != nil {
		return err
	}

	var client loader.Client

	if cfg.ReadThrough() {
		rc, err := loader.NewClient(
			loader.WithAddr(cfg.Redis.Addr),
			loader.WithPassword(cfg.Redis.Password),
			loader.WithDB(cfg.Redis.DB),
		)
		if err != nil {
			return err
		}
		defer rc.Close()

		client = rc
	}

	if err := cfg.DefineCollections(r, client); err != nil {
		return err
	}

	srv := lexcache.NewManagementHTTPServer(cfg.Management.Addr,
		lexcache.WithMgmtReadTimeout(cfg.Management.ReadTimeout),
		lexcache.WithMgmtWriteTimeout(cfg.Management.WriteTimeout),
		lexcache.WithMgmtMetrics(reg),
		lexcache.WithMgmtLogger(logger),
	)

	if err := srv.Start(ctx, r); err != nil {
		return err
	}

	logger.Info().
		Str("addr", srv.Address()).
		Strs("collections", r.Names()).
		Msg("lexcache serving")

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return ewrap.Wrap(err, "shutting down")
	}

	logger.Info().Msg("lexcache stopped")

	return nil
}

// noClient stands in for redis when collections are only validated.
type noClient struct{}

func (noClient) Get(context.Context, string) *redis.StringCmd {
	return redis.NewStringResult("", redis.Nil)
}

func (noClient) Set(context.Context, string, any, time.Duration) *redis.StatusCmd {
	return redis.NewStatusResult("", nil)
}
