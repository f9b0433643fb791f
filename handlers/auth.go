package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

type authCatalog interface {
	ValidateKey(ctx context.Context, key string) (bool, error)
	SetAPIKey(key string)
}

type authPrefs interface {
	APIKey() string
	SetAPIKey(key string) error
}

// AuthHandler manages the catalog API key: the single credential the
// application needs before it can serve a feed.
type AuthHandler struct {
	Catalog authCatalog
	Prefs   authPrefs
}

func NewAuthHandler(catalog authCatalog, prefs authPrefs) *AuthHandler {
	return &AuthHandler{Catalog: catalog, Prefs: prefs}
}

type loginPayload struct {
	APIKey string `json:"apiKey"`
}

type authStatus struct {
	Configured bool `json:"configured"`
}

// Login validates a candidate API key against the upstream catalog and, if
// accepted, persists it and puts the client to work with it.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload loginPayload
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := strings.TrimSpace(payload.APIKey)
	if key == "" {
		http.Error(w, "api key is required", http.StatusBadRequest)
		return
	}

	valid, err := h.Catalog.ValidateKey(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	if !valid {
		http.Error(w, "invalid api key", http.StatusUnauthorized)
		return
	}

	if err := h.Prefs.SetAPIKey(key); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.Catalog.SetAPIKey(key)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authStatus{Configured: true})
}

// Logout clears the stored API key.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Prefs.SetAPIKey(""); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.Catalog.SetAPIKey("")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authStatus{Configured: false})
}

// Status reports whether an API key is configured, without revealing it.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authStatus{Configured: strings.TrimSpace(h.Prefs.APIKey()) != ""})
}

func (h *AuthHandler) Options(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
