package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ppiankov/covenant/internal/classify"
	"github.com/ppiankov/covenant/internal/model"
	"github.com/ppiankov/covenant/internal/provenance"
	"github.com/ppiankov/covenant/internal/resolve"
	"github.com/ppiankov/covenant/internal/store"
)

// AnalyzeRequest carries a document to analyze
type AnalyzeRequest struct {
	DocumentID  string `json:"document_id"`
	Source      string `json:"source"`
	ContentType string `json:"content_type"`
	Text        string `json:"text"`
}

// ClassifyRequest carries one heading or a list of headings
type ClassifyRequest struct {
	Heading  string   `json:"heading"`
	Headings []string `json:"headings"`
}

// ClassifyResult is the classification of one heading
type ClassifyResult struct {
	Heading       string           `json:"heading"`
	ClauseType    model.ClauseType `json:"clause_type"`
	SectionNumber string           `json:"section_number,omitempty"`
	Confidence    *float64         `json:"confidence"`
}

// ResolveTermRequest resolves a term against explicit bindings, or
// against bindings detected in text
type ResolveTermRequest struct {
	Term     string          `json:"term"`
	Bindings []model.Binding `json:"bindings"`
	Text     string          `json:"text"`
	MaxDepth int             `json:"max_depth"`
}

// ResolveTermResponse is the resolved value with its evidence chain
type ResolveTermResponse struct {
	Term       string                `json:"term"`
	Resolved   string                `json:"resolved"`
	Path       []model.Binding       `json:"path"`
	Provenance model.ProvenanceChain `json:"provenance"`
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}
	if req.DocumentID == "" && req.Source == "" {
		req.DocumentID = "document"
	}

	doc, err := s.pipeline.ParseText(req.DocumentID, req.Source, req.ContentType, req.Text)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	analysis, err := s.pipeline.Analyze(r.Context(), doc)
	if err != nil {
		if errors.Is(err, model.ErrValidation) {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "analysis failed")
		return
	}

	respondJSON(w, http.StatusOK, analysis)
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req ClassifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	headings := req.Headings
	if req.Heading != "" {
		headings = append([]string{req.Heading}, headings...)
	}
	if len(headings) == 0 {
		respondError(w, http.StatusBadRequest, "heading or headings is required")
		return
	}

	results := make([]ClassifyResult, len(headings))
	for i, h := range headings {
		t, confidence := s.classifier.ClassifyHeading(h)
		results[i] = ClassifyResult{
			Heading:       h,
			ClauseType:    t,
			SectionNumber: classify.ExtractSectionNumber(h),
			Confidence:    confidence,
		}
	}

	if req.Heading != "" && len(req.Headings) == 0 {
		respondJSON(w, http.StatusOK, results[0])
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}

func (s *Server) handleResolveTerm(w http.ResponseWriter, r *http.Request) {
	var req ResolveTermRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Term) == "" {
		respondError(w, http.StatusBadRequest, "term is required")
		return
	}

	bindings := req.Bindings
	if req.Text != "" {
		detected, err := s.detectBindings(req.Text)
		if err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		bindings = append(bindings, detected...)
	}
	for _, b := range bindings {
		if err := b.Validate(); err != nil {
			respondError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	depth := req.MaxDepth
	if depth <= 0 || depth > s.maxDepth {
		depth = s.maxDepth
	}

	resolved, path := resolve.ResolveTermTrace(req.Term, bindings, depth)
	chain, err := termProvenance(req.Term, resolved, path)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if path == nil {
		path = []model.Binding{}
	}
	respondJSON(w, http.StatusOK, ResolveTermResponse{
		Term:       req.Term,
		Resolved:   resolved,
		Path:       path,
		Provenance: chain,
	})
}

// detectBindings runs alias and definition detection over free text
func (s *Server) detectBindings(text string) ([]model.Binding, error) {
	aliases, err := s.resolver.DetectAliases(text, "request", nil)
	if err != nil {
		return nil, err
	}
	return s.resolver.ResolveBindings(nil, aliases, text, "request")
}

func termProvenance(term, resolved string, path []model.Binding) (model.ProvenanceChain, error) {
	b := provenance.NewBuilder()
	for _, hop := range path {
		b.Binding(hop)
	}
	if len(path) == 0 {
		b.Reasoning(fmt.Sprintf("No active binding applies to %q", term))
		return b.Build(fmt.Sprintf("%q is unbound and resolves to itself", term))
	}
	return b.Build(fmt.Sprintf("%q resolves to %q in %d hop(s)", term, resolved, len(path)))
}

func (s *Server) handleConfidence(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("value")

	var confidence *float64
	if raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			respondError(w, http.StatusBadRequest, "value must be a number")
			return
		}
		confidence = &v
	}

	label, err := model.LabelConfidence(confidence)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"label":        label.Label,
		"color":        label.Color,
		"value":        label.Value,
		"needs_review": model.NeedsReview(confidence),
	})
}

func (s *Server) handleListVersions(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "store is not configured")
		return
	}

	versions, err := s.store.Versions(r.Context(), chi.URLParam(r, "documentID"))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to list versions")
		return
	}
	if versions == nil {
		versions = []store.VersionInfo{}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"versions": versions})
}

func (s *Server) handleGetVersion(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusNotImplemented, "store is not configured")
		return
	}

	analysis, err := s.store.LoadAnalysis(r.Context(), chi.URLParam(r, "documentID"), chi.URLParam(r, "version"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, http.StatusNotFound, "analysis not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	respondJSON(w, http.StatusOK, analysis)
}
