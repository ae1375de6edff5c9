// SPDX-License-Identifier: MPL-2.0

package regserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Bakobiibizo/module-validator-rust/pkg/registry"
	"github.com/Bakobiibizo/module-validator-rust/pkg/types"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /modules", s.handleList)
	mux.HandleFunc("GET /modules/{name}", s.handleModule)
	mux.HandleFunc("GET /public_key", s.handlePublicKey)
	return s.logRequests(mux)
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	names := s.cfg.Registry.ListModules()
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleModule(w http.ResponseWriter, r *http.Request) {
	name := types.ModuleName(r.PathValue("name"))
	if err := name.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	stored, err := s.cfg.Registry.EncodedEntry(name)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "module not found"})
	case err != nil:
		s.logger.Error("read registry entry", "module", name, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	default:
		writeJSON(w, http.StatusOK, stored)
	}
}

func (s *Server) handlePublicKey(w http.ResponseWriter, _ *http.Request) {
	key, err := s.cfg.Registry.PublicKey()
	if err != nil {
		s.logger.Error("read public key", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, key)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}
