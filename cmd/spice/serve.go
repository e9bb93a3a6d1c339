package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"spiceEngine/internal/api"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve pool state, quotes and metrics over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := commandContext()
	defer stop()

	rt, err := newRuntime(ctx, cmd)
	if err != nil {
		return err
	}
	defer rt.Close()

	srv := &http.Server{
		Addr:              rt.cfg.Listen,
		Handler:           api.NewServer(rt.engine, rt.tokens, rt.registry, rt.logger).Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.logger.Info("serve start", zap.String("listen", rt.cfg.Listen))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	rt.logger.Info("serve stopped")
	return nil
}
