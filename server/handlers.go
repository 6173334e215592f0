// ABOUTME: Handlers for infrastructure lifecycle, edits, integrity errors, auto-fixes and reports.
// ABOUTME: Reads go through registry read guards; edits hold the write guard across store and cache updates.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/2389-research/infracache/detect"
	"github.com/2389-research/infracache/report"
	"github.com/2389-research/infracache/schema"
	"github.com/2389-research/infracache/store"
)

const maxBodyBytes = 64 << 20

func (s *Server) handleInfraList(w http.ResponseWriter, r *http.Request) {
	infras, err := s.store.ListInfras(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if infras == nil {
		infras = []store.Infra{}
	}
	writeJSON(w, http.StatusOK, infras)
}

func (s *Server) handleInfraCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&body); err != nil {
		badRequest(w, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if body.Name == "" {
		badRequest(w, "name is required")
		return
	}
	infra, err := s.store.CreateInfra(r.Context(), body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, infra)
}

func (s *Server) handleInfraGet(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, infra)
}

// handleImportRailJSON loads a whole RailJSON document, JSON by default or
// YAML with ?format=yaml, into the infrastructure.
func (s *Server) handleImportRailJSON(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		badRequest(w, fmt.Sprintf("read body: %v", err))
		return
	}
	doc, err := schema.ParseRailJSON(data, r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	guard, err := s.registry.GetOrLoadMut(r.Context(), s.store, infra.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer guard.Release()

	n, err := s.store.ImportRailJSON(r.Context(), infra.ID, doc)
	if err != nil {
		s.writeError(w, err)
		return
	}
	// The cache is rebuilt from the store on next access.
	s.registry.Invalidate(infra.ID)
	writeJSON(w, http.StatusOK, map[string]int{"objects": n})
}

// handleApplyOperations persists a list of operations, then mirrors them in
// the cached infrastructure. A cache that cannot follow the committed store
// is dropped and reloaded on next access.
func (s *Server) handleApplyOperations(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	var ops schema.OperationList
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&ops); err != nil {
		badRequest(w, fmt.Sprintf("invalid operations: %v", err))
		return
	}

	guard, err := s.registry.GetOrLoadMut(r.Context(), s.store, infra.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer guard.Release()

	cacheOps, err := s.store.ApplyOperations(r.Context(), infra.ID, ops)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := guard.Cache().ApplyOperations(cacheOps); err != nil {
		s.log.WithFields(logrus.Fields{"action": "cache_desync", "infra_id": infra.ID.String()}).
			WithError(err).Warn("cache update failed after commit, invalidating")
		s.registry.Invalidate(infra.ID)
	}
	writeJSON(w, http.StatusOK, map[string]int{"applied": len(cacheOps)})
}

// handleErrors lists integrity errors. ?level=errors or ?level=warnings
// narrows the list.
func (s *Server) handleErrors(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	guard, err := s.registry.GetOrLoad(r.Context(), s.store, infra.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	errs := detect.GenerateErrors(guard.Cache())
	guard.Release()

	switch level := r.URL.Query().Get("level"); level {
	case "", "all":
	case "errors":
		errs = detect.Filter(errs, func(e detect.InfraError) bool { return !e.IsWarning })
	case "warnings":
		errs = detect.Filter(errs, func(e detect.InfraError) bool { return e.IsWarning })
	default:
		badRequest(w, fmt.Sprintf("unknown level %q", level))
		return
	}
	if errs == nil {
		errs = []detect.InfraError{}
	}
	writeJSON(w, http.StatusOK, errs)
}

// handleAutoFixes returns the operations that would repair the
// infrastructure. Nothing is committed.
func (s *Server) handleAutoFixes(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	ops, err := s.engine.SuggestFixes(r.Context(), s.registry, s.store, infra.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if ops == nil {
		ops = []schema.Operation{}
	}
	writeJSON(w, http.StatusOK, schema.OperationList(ops))
}

// handleReport renders the health report as Markdown, or HTML with ?format=html.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	infra, ok := s.infraFromPath(w, r)
	if !ok {
		return
	}
	guard, err := s.registry.GetOrLoad(r.Context(), s.store, infra.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	working := guard.Cache().Clone()
	guard.Release()

	rep := &report.Report{
		InfraID: infra.ID.String(),
		Name:    infra.Name,
		Version: infra.Version,
		Counts:  working.Counts(),
		Errors:  detect.GenerateErrors(working),
	}
	rep.Fixes, rep.FixErr = s.preview.Run(working)

	switch format := r.URL.Query().Get("format"); format {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, report.Markdown(rep))
	case "html":
		html, err := report.HTML(rep)
		if err != nil {
			s.writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, html)
	default:
		badRequest(w, fmt.Sprintf("unknown format %q", format))
	}
}
