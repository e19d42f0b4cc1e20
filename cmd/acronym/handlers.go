package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/bool64/ctxd"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	cache "github.com/vearutop/fetchcache"
	"github.com/vearutop/fetchcache/internal/acromine"
	"github.com/vearutop/fetchcache/internal/logging"
)

type handlers struct {
	fetcher  *cache.Fetcher
	inv      *cache.Invalidator
	gatherer prometheus.Gatherer
	log      ctxd.Logger
}

type acronymResponse struct {
	Acronym  string             `json:"acronym"`
	Cached   bool               `json:"cached"`
	Meanings []acromine.Meaning `json:"meanings,omitempty"`
	Value    interface{}        `json:"value,omitempty"`
}

// newRouter builds the HTTP router.
func newRouter(h *handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/v1/acronyms/{key}", h.getAcronym)
	r.Post("/v1/cache/invalidate", h.invalidate)
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	return r
}

func (h *handlers) getAcronym(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := acromine.NormalizeKey(chi.URLParam(r, "key"))

	results, err := h.fetcher.Fetch(ctx, key)

	switch {
	case err == nil:
	case errors.Is(err, cache.ErrEmptyKey):
		writeError(w, http.StatusBadRequest, err.Error(), "invalid_request_error")

		return
	case errors.Is(err, cache.ErrAlreadyInProgress):
		writeError(w, http.StatusConflict, err.Error(), "in_progress")

		return
	default:
		h.log.Error(ctx, "fetch failed to start", "error", err, "key", key)
		writeError(w, http.StatusInternalServerError, err.Error(), "server_error")

		return
	}

	var res cache.Result

	select {
	case res = <-results:
	case <-ctx.Done():
		return
	}

	if res.Err != nil {
		errType := "not_found"
		if errors.Is(res.Err, cache.ErrFetchFailed) {
			errType = "fetch_failed"
		}

		writeError(w, http.StatusNotFound, res.Err.Error(), errType)

		return
	}

	resp := acronymResponse{Acronym: key, Cached: res.Cached}

	if ar, ok := res.Value.(acromine.Result); ok {
		resp.Meanings = ar.Meanings
	} else {
		resp.Value = res.Value
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (h *handlers) invalidate(w http.ResponseWriter, r *http.Request) {
	err := h.inv.Invalidate(r.Context())

	switch {
	case err == nil:
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "invalidated"})
	case errors.Is(err, cache.ErrAlreadyInvalidated):
		writeError(w, http.StatusTooManyRequests, err.Error(), "rate_limited")
	case errors.Is(err, cache.ErrNothingToInvalidate):
		writeError(w, http.StatusConflict, err.Error(), "nothing_to_invalidate")
	default:
		writeError(w, http.StatusInternalServerError, err.Error(), "server_error")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message, errType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{
			"message": message,
			"type":    errType,
		},
	})
}
