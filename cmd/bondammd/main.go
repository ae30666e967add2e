package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openalpha/bond-amm/api"
)

// Version is set at build time via -ldflags
var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "bondammd",
		Short: "Bond AMM standalone daemon",
		Long:  "Runs the bond market maker with an in-memory store and serves its HTTP/WebSocket API.",
	}

	rootCmd.AddCommand(serveCmd(), versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var (
		host             string
		port             int
		readTimeout      time.Duration
		writeTimeout     time.Duration
		disableRateLimit bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			config := &api.Config{
				Host:             host,
				Port:             port,
				ReadTimeout:      readTimeout,
				WriteTimeout:     writeTimeout,
				DisableRateLimit: disableRateLimit,
			}

			server, err := api.NewServer(config)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			go func() {
				if err := server.Start(); err != nil {
					log.Printf("Server error: %v", err)
				}
			}()

			log.Printf("Bond AMM API server started on %s:%d", host, port)
			log.Printf("WebSocket endpoint: ws://%s:%d/ws", host, port)
			log.Printf("Health check: http://%s:%d/health", host, port)
			log.Printf("Metrics: http://%s:%d/metrics", host, port)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			log.Println("Shutting down server...")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := server.Stop(ctx); err != nil {
				log.Printf("Server shutdown error: %v", err)
			}

			log.Println("Server exited")
			return nil
		},
	}

	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Server host")
	cmd.Flags().IntVar(&port, "port", 8080, "Server port")
	cmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	cmd.Flags().DurationVar(&writeTimeout, "write-timeout", 30*time.Second, "HTTP write timeout")
	cmd.Flags().BoolVar(&disableRateLimit, "no-rate-limit", false, "Disable rate limiting (for testing)")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the daemon version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(Version)
		},
	}
}
