package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"movemovies/api"
	"movemovies/config"
	"movemovies/handlers"
	"movemovies/services/catalog"
	"movemovies/services/collections"
	"movemovies/services/discover"
	"movemovies/services/feed"
	"movemovies/services/ledger"
	"movemovies/services/prefs"
	"movemovies/services/ratelimit"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	// Upstream catalog allowance: requests per rolling window.
	upstreamBudget = 10
	upstreamWindow = time.Second

	// Inbound per-client allowance.
	inboundPerSecond = 25
	inboundBurst     = 50
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	fmt.Println("Move Movies backend starting...")

	configPath := os.Getenv("MOVEMOVIES_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("data", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	prefsService, err := prefs.NewService(settings.Storage.Directory, settings.Metadata.TMDBAPIKey, settings.Metadata.Language)
	if err != nil {
		log.Fatalf("failed to initialise preferences: %v", err)
	}

	limiter, err := ratelimit.New(upstreamBudget, upstreamWindow)
	if err != nil {
		log.Fatalf("failed to initialise rate limiter: %v", err)
	}

	catalogClient := catalog.NewClient(prefsService.APIKey(), prefsService.Language(), limiter, nil)
	providerCache, err := catalog.NewProviderCache(catalogClient, settings.Cache.ProviderEntries)
	if err != nil {
		log.Fatalf("failed to initialise provider cache: %v", err)
	}

	ledgerService, err := ledger.NewService(settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to initialise seen ledger: %v", err)
	}
	collectionsService, err := collections.NewService(settings.Storage.Directory)
	if err != nil {
		log.Fatalf("failed to initialise collections: %v", err)
	}

	builder := discover.NewBuilder(catalogClient, ledgerService, collectionsService, prefsService.Criteria(), prefsService.Language())
	session := feed.NewSession(builder, ledgerService)
	defer session.Close()

	// Warm the queue when credentials already exist so the first window is
	// populated by the time a client connects.
	if strings.TrimSpace(prefsService.APIKey()) != "" {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := session.Prime(ctx); err != nil {
				log.Printf("warning: initial feed load failed: %v", err)
			}
		}()
	} else {
		fmt.Println("No catalog API key configured yet; log in via POST /api/auth/login.")
	}

	r := mux.NewRouter()
	api.Register(
		r,
		handlers.NewAuthHandler(catalogClient, prefsService),
		handlers.NewFeedHandler(session),
		handlers.NewFiltersHandler(prefsService, session),
		handlers.NewHistoryHandler(ledgerService, session),
		handlers.NewCollectionsHandler(collectionsService),
		handlers.NewSettingsHandler(prefsService, catalogClient, providerCache, ledgerService, collectionsService, session),
		handlers.NewCatalogHandler(catalogClient, providerCache),
		api.NewRateLimiter(inboundPerSecond, inboundBurst),
	)

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("Server starting on %s\n", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("shutdown signal received, cleaning up...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}

	log.Println("shutdown complete")
}
