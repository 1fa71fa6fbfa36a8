package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/raysh454/mdinject/internal/app"
	"github.com/raysh454/mdinject/internal/logging"
	"github.com/raysh454/mdinject/internal/server"
)

func newServeCmd(st *state) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				st.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, st)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, st *state) error {
	application, err := app.NewApplication(st.cfg, st.logger)
	if err != nil {
		return err
	}

	srv, err := server.NewServer(server.Config{
		ListenAddr:     st.cfg.Server.Addr,
		AllowedOrigins: st.cfg.Server.AllowedOrigins,
		Logger:         st.logger.With(logging.Field{Key: "component", Value: "server"}),
	}, application.Orch)
	if err != nil {
		_ = application.Shutdown(context.Background())
		return err
	}

	httpSrv := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		st.logger.Info("listening", logging.Field{Key: "addr", Value: httpSrv.Addr})
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err = httpSrv.Shutdown(shutdownCtx)
	}
	if errors.Is(err, http.ErrServerClosed) {
		err = nil
	}
	if serr := application.Shutdown(context.Background()); serr != nil && err == nil {
		err = serr
	}
	return err
}
