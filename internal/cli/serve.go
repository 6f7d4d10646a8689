package cli

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/pathminer/internal/server"
	"github.com/matzehuels/pathminer/pkg/config"
	"github.com/matzehuels/pathminer/pkg/observability/prom"
	"github.com/matzehuels/pathminer/pkg/store"
)

const shutdownTimeout = 10 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		metrics bool
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the run API:

  POST   /v1/runs        submit a network and solve options
  GET    /v1/runs        list runs
  GET    /v1/runs/{id}   fetch a run and its results
  DELETE /v1/runs/{id}   cancel a running run, or delete a finished one

Runs are kept in memory unless store.mongo_uri is configured. With --metrics
Prometheus metrics are served at /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				f.Server.Addr = addr
			}
			if cmd.Flags().Changed("metrics") {
				f.Server.Metrics = metrics
			}
			if err := f.Validate(); err != nil {
				return err
			}
			return c.runServe(cmd.Context(), f, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address")
	cmd.Flags().BoolVar(&metrics, "metrics", false, "serve Prometheus metrics at /metrics")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the result cache")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, f *config.File, noCache bool) error {
	logger := loggerFromContext(ctx)

	runner, err := c.newRunner(ctx, f, noCache)
	if err != nil {
		return err
	}
	defer runner.Close()

	var st store.Store = store.NewMemoryStore()
	if f.Store.MongoURI != "" {
		if st, err = openStore(ctx, f); err != nil {
			return err
		}
		logger.Info("runs stored in mongo", "database", f.Store.Database)
	}
	defer st.Close(context.WithoutCancel(ctx))

	srv := server.New(runner, st, logger)
	if f.Server.Metrics {
		m := prom.New(appName)
		m.Register()
		srv.Metrics = m.Handler()
	}

	ln, err := net.Listen("tcp", f.Server.Addr)
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- httpServer.Serve(ln) }()
	printSuccess("Listening on %s", StyleLink.Render("http://"+ln.Addr().String()))

	select {
	case err := <-errc:
		if !stderrors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("runs still active at shutdown", "err", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
