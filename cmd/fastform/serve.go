package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fastform/internal/gateway/app"
	"fastform/internal/gateway/config"
	"fastform/internal/logging"
)

func newServeCmd() *cobra.Command {
	var port string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			closeLog := logging.Setup(logging.Options{File: cfg.Log.File, Level: cfg.Log.Level})
			defer closeLog()
			return serve(cmd.Context(), cfg, port)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "listen address, e.g. :8000 (overrides PORT)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, port string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if port != "" && port[0] != ':' {
		port = ":" + port
	}
	a, err := app.New(ctx, cfg, app.Options{Port: port})
	if err != nil {
		log.Printf("Failed to initialize app: %v", err)
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("Server error: %v", err)
			return err
		}
		return nil
	case <-quit:
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		return err
	}
	log.Println("Server exiting")
	return nil
}
