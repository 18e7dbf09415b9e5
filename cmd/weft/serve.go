package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/prometheus/client_golang/prometheus"

	weft "github.com/loomworks/weft"
	httpAdapter "github.com/loomworks/weft/internal/adapters/http"
	"github.com/loomworks/weft/pkg/domain"
	"github.com/loomworks/weft/pkg/observability"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Starts the engine in server mode, exposing the editor JSON API, an SSE event stream and Prometheus metrics over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetString("port")

		streams := httpAdapter.NewStreamManager()
		metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

		engine, err := newEngine(cmd, weft.WithLifecycleHooks(
			domain.MergeHooks(streams.Hooks(), metrics.Hooks()),
		))
		if err != nil {
			exitErr("Error initializing weft: %v", err)
		}
		defer engine.Close()

		if err := loadTemplateIfSet(cmd, engine); err != nil {
			exitErr("%v", err)
		}

		server := httpAdapter.NewServer(engine,
			httpAdapter.WithStreams(streams),
			httpAdapter.WithMetrics(),
		)

		srv := &http.Server{
			Addr:    ":" + port,
			Handler: server.Handler(),
		}

		serverErrors := make(chan error, 1)
		go func() {
			fmt.Printf("Starting Weft Server on %s\n", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			exitErr("Server error: %v", err)

		case sig := <-shutdown:
			fmt.Printf("\nStart shutdown... Signal: %v\n", sig)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				fmt.Printf("Graceful shutdown did not complete in %v: %v\n", 5*time.Second, err)
				if err := srv.Close(); err != nil {
					fmt.Printf("Error killing server: %v\n", err)
				}
			}
			fmt.Println("Weft Server stopped gracefully")
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	serveCmd.Flags().String("template", "", "Template to instantiate on startup")
}
