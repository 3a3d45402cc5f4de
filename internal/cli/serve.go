package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/logger"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API together with the sweeper and cleanup worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, st)
		},
	}
}

func serve(ctx context.Context, st *state) error {
	app, err := NewApp(ctx, st.cfg, st.log)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			st.log.Error("shutdown incomplete", logger.Err(err))
		}
	}()

	srv := &http.Server{
		Addr:         st.cfg.GetServerAddr(),
		Handler:      app.Router,
		ReadTimeout:  st.cfg.Server.ReadTimeout,
		WriteTimeout: st.cfg.Server.WriteTimeout,
		IdleTimeout:  st.cfg.Server.IdleTimeout,
	}

	app.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		st.log.Info("server listening",
			logger.F("addr", srv.Addr),
			logger.F("environment", st.cfg.Server.Environment),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	st.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
