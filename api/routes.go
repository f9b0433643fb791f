package api

import (
	"net/http"

	"movemovies/handlers"

	"github.com/gorilla/mux"
)

// corsMiddleware handles CORS for API routes
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// handleOptions handles OPTIONS requests for CORS preflight
func handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Register mounts API endpoints onto the provided router.
func Register(
	r *mux.Router,
	authHandler *handlers.AuthHandler,
	feedHandler *handlers.FeedHandler,
	filtersHandler *handlers.FiltersHandler,
	historyHandler *handlers.HistoryHandler,
	collectionsHandler *handlers.CollectionsHandler,
	settingsHandler *handlers.SettingsHandler,
	catalogHandler *handlers.CatalogHandler,
	limiter *RateLimiter,
) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)
	if limiter != nil {
		api.Use(limiter.Middleware)
	}

	// Credential management
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)
	api.HandleFunc("/auth/logout", authHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/auth/status", authHandler.Status).Methods(http.MethodGet)
	api.HandleFunc("/auth/status", authHandler.Options).Methods(http.MethodOptions)

	// Discover feed
	api.HandleFunc("/feed", feedHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/feed", feedHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/feed/advance", feedHandler.Advance).Methods(http.MethodPost)
	api.HandleFunc("/feed/advance", feedHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/feed/continue", feedHandler.Continue).Methods(http.MethodPost)
	api.HandleFunc("/feed/continue", feedHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/feed/restart", feedHandler.Restart).Methods(http.MethodPost)
	api.HandleFunc("/feed/restart", feedHandler.Options).Methods(http.MethodOptions)

	// Filter criteria
	api.HandleFunc("/filters", filtersHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/filters", filtersHandler.Put).Methods(http.MethodPut)
	api.HandleFunc("/filters", filtersHandler.Options).Methods(http.MethodOptions)

	// Seen history
	api.HandleFunc("/history", historyHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/history", historyHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/history/reset", historyHandler.Reset).Methods(http.MethodPost)
	api.HandleFunc("/history/reset", historyHandler.Options).Methods(http.MethodOptions)

	// Favorites and watched collections
	api.HandleFunc("/collections/{kind}", collectionsHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/collections/{kind}", collectionsHandler.Add).Methods(http.MethodPost)
	api.HandleFunc("/collections/{kind}", collectionsHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/collections/{kind}/{id}", collectionsHandler.Contains).Methods(http.MethodGet)
	api.HandleFunc("/collections/{kind}/{id}", collectionsHandler.Remove).Methods(http.MethodDelete)
	api.HandleFunc("/collections/{kind}/{id}", collectionsHandler.Options).Methods(http.MethodOptions)

	// Settings
	api.HandleFunc("/settings", settingsHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/settings", settingsHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/settings/language", settingsHandler.PutLanguage).Methods(http.MethodPut)
	api.HandleFunc("/settings/language", settingsHandler.Options).Methods(http.MethodOptions)

	// Catalog metadata passthroughs
	api.HandleFunc("/catalog/search", catalogHandler.Search).Methods(http.MethodGet)
	api.HandleFunc("/catalog/search", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/providers", catalogHandler.AvailableProviders).Methods(http.MethodGet)
	api.HandleFunc("/catalog/providers", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/{mediaType}/browse/{list}", catalogHandler.Browse).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{mediaType}/browse/{list}", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}", catalogHandler.Details).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/credits", catalogHandler.Credits).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/credits", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/providers", catalogHandler.WatchProviders).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/providers", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/images", catalogHandler.Images).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/images", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/recommendations", catalogHandler.Recommendations).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/recommendations", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/reviews", catalogHandler.Reviews).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/reviews", catalogHandler.Options).Methods(http.MethodOptions)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/videos", catalogHandler.Videos).Methods(http.MethodGet)
	api.HandleFunc("/catalog/{mediaType}/{id:[0-9]+}/videos", catalogHandler.Options).Methods(http.MethodOptions)
}
