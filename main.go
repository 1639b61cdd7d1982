package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"sjsage522/shopcompare/config"
	"sjsage522/shopcompare/internal/search"
	"sjsage522/shopcompare/logger"
)

const version = "1.0.0"

var (
	searchPlatforms []string
	searchLimit     int
	searchMaxPrice  float64
	searchLocation  string
	searchJSON      bool
)

func main() {
	// Load environment variables
	_ = godotenv.Load()

	// Initialize logger first
	logger.Init()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "shopcompare",
		Short:        "Compare products across shopping platforms",
		Version:      version,
		SilenceUsage: true,
		RunE:         runServe,
	}
	root.AddCommand(serveCmd(), searchCmd())
	return root
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Run one search and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	cmd.Flags().StringSliceVarP(&searchPlatforms, "platform", "p", nil, "platforms to search (repeatable)")
	cmd.Flags().IntVarP(&searchLimit, "limit", "n", search.DefaultLimit, "maximum results")
	cmd.Flags().Float64Var(&searchMaxPrice, "max-price", 0, "price ceiling, 0 for none")
	cmd.Flags().StringVar(&searchLocation, "location", "", "delivery location")
	cmd.Flags().BoolVar(&searchJSON, "json", false, "print the raw response as JSON")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg := config.LoadConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	log := logger.Default
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log.Info().
		Str("environment", cfg.Environment).
		Str("addr", cfg.HTTPAddr).
		Strs("platforms", cfg.EnabledPlatforms).
		Msg("Starting application")

	// Set up context with signal cancellation
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := initializeServices(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer func() {
		if err := services.Cleanup(); err != nil {
			log.Error().Err(err).Msg("Cleanup failed")
		}
	}()

	if services.Publisher != nil {
		go trimStreams(ctx, services)
	}
	go services.Proxies.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           services.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.SearchDeadline + 10*time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
		serverDone <- srv.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		log.Info().Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
	}

	// Graceful shutdown
	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// trimStreams keeps the search event streams bounded
func trimStreams(ctx context.Context, services *Services) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := services.Publisher.TrimStreams(ctx); err != nil {
				logger.LogError("publisher", err, "Failed to trim streams")
			}
		}
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := initializeServices(ctx, cfg, nil)
	if err != nil {
		return fmt.Errorf("initialize services: %w", err)
	}
	defer services.Cleanup()

	req := search.Request{
		Query:     strings.Join(args, " "),
		Platforms: searchPlatforms,
		Limit:     searchLimit,
		Location:  searchLocation,
	}
	if searchMaxPrice > 0 {
		req.MaxPrice = &searchMaxPrice
	}

	resp, err := services.Search.Search(ctx, req)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if searchJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Fprintf(out, "%s (%.2fs)\n", resp.Message, resp.SearchTime)
	for i, p := range resp.Products {
		fmt.Fprintf(out, "%3d. [%-9s] %10.2f %s  %s  (%s)\n",
			i+1, p.Platform, p.Price.Current, p.Price.Currency, p.Name, p.Delivery.Time)
	}
	return nil
}
