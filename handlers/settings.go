package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"movemovies/models"
	"movemovies/services/collections"
	"movemovies/services/ledger"

	"golang.org/x/text/language"
)

type settingsPrefs interface {
	Language() string
	APIKey() string
	SetLanguage(language string) error
}

type languageCatalog interface {
	SetLanguage(displayLanguage string)
	Details(ctx context.Context, mediaType models.MediaType, id int64, lang string) (models.CatalogDetail, error)
}

type cachePurger interface {
	Purge()
}

type languageSession interface {
	ApplyLanguage(ctx context.Context, language string) models.FeedWindow
}

// SettingsHandler reads the user-facing settings and applies display
// language changes, which ripple through the catalog client, the provider
// cache, the persisted user state and the feed.
type SettingsHandler struct {
	Prefs       settingsPrefs
	Catalog     languageCatalog
	Providers   cachePurger
	Ledger      *ledger.Service
	Collections *collections.Service
	Session     languageSession
}

func NewSettingsHandler(prefs settingsPrefs, catalog languageCatalog, providers cachePurger, ledgerSvc *ledger.Service, collectionsSvc *collections.Service, session languageSession) *SettingsHandler {
	return &SettingsHandler{
		Prefs:       prefs,
		Catalog:     catalog,
		Providers:   providers,
		Ledger:      ledgerSvc,
		Collections: collectionsSvc,
		Session:     session,
	}
}

type settingsView struct {
	Language   string `json:"language"`
	Configured bool   `json:"configured"`
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, settingsView{
		Language:   h.Prefs.Language(),
		Configured: strings.TrimSpace(h.Prefs.APIKey()) != "",
	})
}

type languagePayload struct {
	Language string `json:"language"`
}

// PutLanguage switches the display language. Cached provider data is
// dropped, stored history and collections re-fetch their metadata in the
// background, and the feed restarts so new items arrive localized.
func (h *SettingsHandler) PutLanguage(w http.ResponseWriter, r *http.Request) {
	var payload languagePayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tag := strings.TrimSpace(payload.Language)
	if _, err := language.Parse(tag); err != nil {
		http.Error(w, "unrecognized language tag", http.StatusBadRequest)
		return
	}

	if err := h.Prefs.SetLanguage(tag); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	h.Catalog.SetLanguage(tag)
	h.Providers.Purge()

	go func() {
		ctx := context.Background()
		if err := h.Ledger.RefreshLanguage(ctx, h.Catalog); err != nil {
			log.Printf("[settings] ledger language refresh failed: %v", err)
		}
		if err := h.Collections.RefreshLanguage(ctx, h.Catalog); err != nil {
			log.Printf("[settings] collections language refresh failed: %v", err)
		}
	}()

	writeJSON(w, h.Session.ApplyLanguage(r.Context(), tag))
}

func (h *SettingsHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
