package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/klabast/wb-services/newsletter/internal/app"
	"github.com/klabast/wb-services/newsletter/internal/commands"
	"github.com/klabast/wb-services/newsletter/internal/content"
	"github.com/klabast/wb-services/newsletter/internal/weather"
	"github.com/klabast/wb-services/newsletter/pkg/logging"
	"github.com/klabast/wb-services/newsletter/pkg/metrics"
)

//go:embed static
var staticFiles embed.FS

func main() {
	if len(os.Args) > 1 {
		var err error
		switch os.Args[1] {
		case "hash-password":
			err = commands.HashPassword(os.Args[2:], os.Stdin, os.Stdout)
		case "gate-digest":
			err = commands.GateDigest(os.Args[2:], os.Stdin, os.Stdout)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command %q (expected hash-password or gate-digest)\n", os.Args[1])
			os.Exit(2)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	settings, err := app.LoadSettings(".env")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New("newsletter", logging.ParseLevel(settings.LogLevel))
	collector := metrics.NewCollector("newsletter")
	ctx := context.Background()

	logger.Info(ctx, "Starting newsletter server", logging.Fields{
		"port":     settings.Port,
		"data_dir": settings.DataDir,
		"data_url": settings.DataURL,
		"weather":  settings.WeatherEnabled,
	})

	var source content.Source = content.DirSource{Root: settings.DataDir, Logger: logger}
	if settings.DataURL != "" {
		source = content.HTTPSource{BaseURL: settings.DataURL, Client: &http.Client{Timeout: 15 * time.Second}}
	}
	library := content.NewLibrary(source, logger, collector)
	// pages show the error banner until a reload succeeds
	if _, err := library.Load(ctx); err != nil {
		logger.Error(ctx, "Initial document load failed", nil, err)
	}

	var forecasts app.WeatherLookup
	if settings.WeatherEnabled {
		client := weather.NewClient(settings.WeatherBaseURL, settings.WeatherLocation, settings.WeatherTimeout)
		forecasts = weather.NewService(client, settings.WeatherHorizon, logger, collector)
	}

	authFile, err := app.ResolveAuthFile(settings.AuthFile)
	if err != nil {
		logger.Error(ctx, "Failed to resolve auth file", nil, err)
		os.Exit(1)
	}
	admin, err := app.LoadAdminAuth(authFile, logger)
	if err != nil {
		logger.Error(ctx, "Failed to load auth credentials", nil, err)
		os.Exit(1)
	}

	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		logger.Error(ctx, "Failed to open static files", nil, err)
		os.Exit(1)
	}

	srv, err := app.NewServer(app.ServerOptions{
		Settings: settings,
		Library:  library,
		Weather:  forecasts,
		Gate:     app.NewGate(settings.GateDigest, settings.GateDays, collector),
		Admin:    admin,
		Logger:   logger,
		Metrics:  collector,
		Static:   static,
	})
	if err != nil {
		logger.Error(ctx, "Failed to build server", nil, err)
		os.Exit(1)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", settings.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", logging.Fields{"address": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error(ctx, "Server failed", nil, err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "Shutting down server", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "Server forced to shutdown", nil, err)
	}
	logger.Info(ctx, "Server stopped", nil)
}
