package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/WessleyAI/tyrefit/engine/domain"
	"github.com/WessleyAI/tyrefit/engine/present"
	"github.com/WessleyAI/tyrefit/engine/selection"
	"github.com/WessleyAI/tyrefit/engine/tyres"
	"github.com/WessleyAI/tyrefit/pkg/metrics"
)

type server struct {
	sel      *selection.Controller
	tyres    *tyres.Service
	siteBase string
	logger   *slog.Logger
}

func newMux(s *server, reg *metrics.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/brands", s.handleBrands)
	mux.HandleFunc("GET /api/models", s.handleModels)
	mux.HandleFunc("GET /api/years", s.handleYears)
	mux.HandleFunc("GET /api/modifications", s.handleModifications)
	mux.HandleFunc("GET /api/tyre-candidates", s.handleCandidates)
	mux.HandleFunc("GET /api/tyres", s.handleTyres)
	mux.HandleFunc("POST /api/tyres/v1/get", s.handleTyreLookup)
	mux.Handle("GET /metrics", reg.Handler())
	return mux
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// listResponse is the JSON envelope of the stage endpoints.
type listResponse[T any] struct {
	Items []T `json:"items"`
}

func (s *server) handleBrands(w http.ResponseWriter, r *http.Request) {
	items := s.sel.ListBrands(r.Context())
	writeStage(s, w, r, items, present.BrandOptions(items), present.NoBrands)
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "brand")
	if !ok {
		return
	}
	items := s.sel.ListModels(r.Context(), id)
	writeStage(s, w, r, items, present.ModelOptions(items), present.NoModels)
}

func (s *server) handleYears(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	items := s.sel.ListYears(r.Context(), id)
	writeStage(s, w, r, items, present.YearOptions(items), present.NoYears)
}

func (s *server) handleModifications(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	items := s.sel.ListModifications(r.Context(), id)
	writeStage(s, w, r, items, present.ModificationOptions(items), present.NoModifications)
}

func (s *server) handleCandidates(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	items := s.sel.ListTyreCandidates(r.Context(), id)
	writeStage(s, w, r, items, present.CandidateOptions(items), present.NoTyres)
}

func (s *server) handleTyres(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r, "id")
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.lookup(r.Context(), id))
}

// TyreLookupRequest is the JSON body for POST /api/tyres/v1/get.
type TyreLookupRequest = tyres.LookupRequest

// maxLookupBody caps the POST lookup body.
const maxLookupBody = 4 << 10

func (s *server) handleTyreLookup(w http.ResponseWriter, r *http.Request) {
	var req TyreLookupRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLookupBody))
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	if err := domain.ValidateID("id", req.ID.String()); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.lookup(r.Context(), req.ID))
}

// handleEnrichRequest serves the tyres.EnrichSubject NATS subject.
func (s *server) handleEnrichRequest(ctx context.Context, req TyreLookupRequest) (present.TyreList, error) {
	if req.ID == "" {
		return present.TyreList{}, errors.New("id is required")
	}
	if err := domain.ValidateID("id", req.ID.String()); err != nil {
		return present.TyreList{}, err
	}
	return s.lookup(ctx, req.ID), nil
}

func (s *server) lookup(ctx context.Context, id domain.ID) present.TyreList {
	return present.NewTyreList(s.tyres.Enrich(ctx, id), s.siteBase)
}

// --- Helpers ---

func writeStage[T any](s *server, w http.ResponseWriter, r *http.Request, items []T, opts []present.Option, empty string) {
	if r.URL.Query().Get("format") == "options" {
		html, err := present.RenderOptions(opts, empty)
		if err != nil {
			s.logger.Error("render options", "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(html))
		return
	}
	writeJSON(w, http.StatusOK, listResponse[T]{Items: items})
}

// queryID reads and validates an identifier parameter, answering 400 when
// it is missing or malformed.
func queryID(w http.ResponseWriter, r *http.Request, param string) (domain.ID, bool) {
	raw := r.URL.Query().Get(param)
	if err := domain.ValidateID(param, raw); err != nil {
		writeError(w, http.StatusBadRequest, param+" is missing or invalid")
		return "", false
	}
	return domain.ID(raw), true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
