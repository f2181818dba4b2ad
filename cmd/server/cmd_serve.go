package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"detective_lab/internal/api"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, opts, func(app *application) error {
				return serve(ctx, app)
			})
		},
	}
}

func serve(ctx context.Context, app *application) error {
	router := api.NewRouter(api.Services{
		Auth:        app.auth,
		Cases:       app.cases,
		Submissions: app.submissions,
		Progress:    app.progress,
		Leaderboard: app.leaderboard,
		Evidence:    app.evidence,
		Metrics:     app.metrics.Handler(),
	}, app.tokens, app.log.Named("http"))

	server := &http.Server{
		Addr:         ":" + app.cfg.APIPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.log.Info("Server starting", zap.String("addr", server.Addr), zap.String("store", app.cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		app.log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	app.log.Info("Server stopped gracefully")
	return nil
}
