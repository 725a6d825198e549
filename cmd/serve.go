package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/anatomist/internal/handlers"
	"github.com/lehigh-university-libraries/anatomist/internal/pdf"
	"github.com/lehigh-university-libraries/anatomist/internal/pipeline"
	"github.com/lehigh-university-libraries/anatomist/internal/session"
	"github.com/lehigh-university-libraries/anatomist/internal/storage"
)

func newServeCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Starts the Anatomist HTTP API on the specified port.

Clients upload a PDF, then request the summary, translations, detailed
explanation, references and organ labels for the session it creates.`,
		Example: `  # Start server on default port 8888
  anatomist serve

  # Start server on custom port
  anatomist serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			provider, cleanup, err := newProvider(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			resolver, err := newResolver(cfg.OrganCatalog, cfg.OrganImageDir, cfg.OrganMatch)
			if err != nil {
				return err
			}

			store := storage.NewMemory(cfg.SessionTTL, pipeline.RemoveSessionFiles)
			orch := pipeline.New(
				session.New(store),
				pdf.NewExtractor(nil, cfg.MinImageBytes),
				newInference(provider, cfg),
				resolver,
				pipeline.Options{UploadDir: cfg.UploadDir, MaxUploadBytes: cfg.MaxUploadBytes},
			)
			handler := handlers.New(orch, cfg.MaxUploadBytes)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go store.Run(ctx, cfg.SessionSweepInterval)

			addr := ":" + port
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Anatomist API available", "addr", addr, "url", "http://localhost"+addr, "provider", provider.Name())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "8888", "Port to listen on")

	return cmd
}
