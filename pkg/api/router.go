package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts the handler under /api/v1/flatfile next to the health
// endpoints.
func NewRouter(h *Handler) *mux.Router {
	router := mux.NewRouter()
	router.Use(Recovery, Logging)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	}).Methods(http.MethodGet)
	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ready"}`))
	}).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1/flatfile").Subrouter()
	h.Register(api)
	return router
}
