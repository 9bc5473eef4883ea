package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/synaptica-ai/prelude-parser/pkg/common/logger"
	"github.com/synaptica-ai/prelude-parser/pkg/flatfile"
	"github.com/synaptica-ai/prelude-parser/pkg/merge"
	"github.com/synaptica-ai/prelude-parser/pkg/naming"
	"github.com/synaptica-ai/prelude-parser/pkg/service"
	"github.com/synaptica-ai/prelude-parser/pkg/store"
	"github.com/synaptica-ai/prelude-parser/pkg/table"
)

type Handler struct {
	service *service.Service
	maxBody int64
}

func NewHandler(svc *service.Service, maxBody int64) *Handler {
	return &Handler{service: svc, maxBody: maxBody}
}

func (h *Handler) Register(r *mux.Router) {
	r.HandleFunc("/parse", h.handleParse).Methods(http.MethodPost)
	r.HandleFunc("/merge", h.handleMerge).Methods(http.MethodPost)
	r.HandleFunc("/exports/{id}", h.handleGetExport).Methods(http.MethodGet)
	r.HandleFunc("/exports/{id}/records", h.handleListRecords).Methods(http.MethodGet)
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if h.maxBody > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "export too large", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return nil, false
	}
	return data, true
}

func sourceName(r *http.Request) string {
	if v := r.URL.Query().Get("source"); v != "" {
		return v
	}
	if v := r.Header.Get("X-Filename"); v != "" {
		return v
	}
	return "upload"
}

func (h *Handler) handleParse(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	shape := query.Get("shape")
	if shape == "" {
		shape = "records"
	}
	if shape != "records" && shape != "columns" {
		http.Error(w, "shape must be records or columns", http.StatusBadRequest)
		return
	}
	conv, ok := naming.ParseConvention(query.Get("names"))
	if !ok {
		http.Error(w, "names must be keep, snake or pascal", http.StatusBadRequest)
		return
	}

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}
	res, err := h.service.ParseBytes(r.Context(), sourceName(r), data)
	if err != nil {
		writeError(w, err, "failed to parse export")
		return
	}

	var payload interface{} = res.Dataset
	if shape == "columns" {
		columns := make(map[string]*table.Table, len(res.Dataset.Forms()))
		for _, form := range res.Dataset.Forms() {
			columns[form] = table.FromRecords(res.Dataset.Records(form), table.Options{Convention: conv})
		}
		payload = columns
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"export": res.Summary,
		"data":   payload,
	})
}

func (h *Handler) handleMerge(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := service.MergeRequest{
		Profile: query.Get("profile"),
		Main:    query.Get("main"),
		Sub:     query.Get("sub"),
	}
	if raw := query.Get("short_names"); raw != "" {
		short, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, "short_names must be a boolean", http.StatusBadRequest)
			return
		}
		req.ShortNames = &short
	}
	if query.Has("shared") {
		req.SharedFields = splitList(query.Get("shared"))
	}
	if req.Profile == "" && (req.Main == "" || req.Sub == "") {
		http.Error(w, "profile or main and sub are required", http.StatusBadRequest)
		return
	}

	data, ok := h.readBody(w, r)
	if !ok {
		return
	}
	records, err := h.service.Merge(r.Context(), sourceName(r), data, req)
	if err != nil {
		writeError(w, err, "failed to merge forms")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"items": recordFields(records),
	})
}

func (h *Handler) handleGetExport(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid export id", http.StatusBadRequest)
		return
	}
	export, err := h.service.GetExport(r.Context(), id)
	if err != nil {
		writeError(w, err, "failed to get export")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"export": export})
}

func (h *Handler) handleListRecords(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid export id", http.StatusBadRequest)
		return
	}
	records, err := h.service.ListRecords(r.Context(), id, r.URL.Query().Get("form"))
	if err != nil {
		writeError(w, err, "failed to list records")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": recordFields(records)})
}

func recordFields(records []flatfile.Record) []*flatfile.Fields {
	out := make([]*flatfile.Fields, len(records))
	for i, rec := range records {
		out[i] = rec.Fields
	}
	return out
}

// splitList splits a comma separated parameter; an empty value is an empty
// non-nil list.
func splitList(raw string) []string {
	out := []string{}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, flatfile.ErrNotFound), errors.Is(err, store.ErrExportNotFound):
		return http.StatusNotFound
	case errors.Is(err, flatfile.ErrInvalidFileType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, flatfile.ErrParsing):
		return http.StatusUnprocessableEntity
	case errors.Is(err, merge.ErrUnknownForm), errors.Is(err, merge.ErrUnknownProfile):
		return http.StatusBadRequest
	case errors.Is(err, merge.ErrMerge):
		return http.StatusConflict
	case errors.Is(err, service.ErrNoStore):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error, msg string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error(msg)
		http.Error(w, msg, status)
		return
	}
	logger.Log.WithError(err).Warn(msg)
	writeJSON(w, status, map[string]interface{}{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
