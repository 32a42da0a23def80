package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillcomposer/pkg/analyzer"
	"github.com/jingkaihe/skillcomposer/pkg/catalog"
	"github.com/jingkaihe/skillcomposer/pkg/history"
	"github.com/jingkaihe/skillcomposer/pkg/optimizer"
	skilltypes "github.com/jingkaihe/skillcomposer/pkg/types/skills"
)

// CompositionRecordHeader carries the history id of a recorded composition
const CompositionRecordHeader = "X-Composition-Record"

// ContextRequest is the body of the discover and compose endpoints: a full
// project context, or just an idea from which the rest is inferred.
type ContextRequest struct {
	Idea string `json:"idea,omitempty"`
	skilltypes.ProjectContext
}

// SkillList is the response of GET /api/skills
type SkillList struct {
	Skills         []*skilltypes.Skill `json:"skills"`
	Total          int                 `json:"total"`
	CatalogVersion uint64              `json:"catalog_version"`
}

// DiscoverResponse is the response of POST /api/discover
type DiscoverResponse struct {
	Context    skilltypes.ProjectContext `json:"project_context"`
	Candidates []*skilltypes.Skill       `json:"candidates"`
	Scores     map[string]int            `json:"scores"`
}

// ReloadResponse is the response of POST /api/catalog/reload
type ReloadResponse struct {
	Source  string `json:"source"`
	Version uint64 `json:"version"`
	Skills  int    `json:"skills"`
	Error   string `json:"error,omitempty"`
}

func decodeContext(r *http.Request) (skilltypes.ProjectContext, error) {
	var req ContextRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return skilltypes.ProjectContext{}, errors.New("request body is empty")
		}
		return skilltypes.ProjectContext{}, errors.Wrap(err, "invalid request body")
	}

	pc := req.ProjectContext
	if strings.TrimSpace(pc.ProjectIdea) == "" {
		pc.ProjectIdea = req.Idea
	}
	level, err := skilltypes.ParseSecurityLevel(string(pc.SecurityLevel))
	if err != nil {
		return pc, err
	}
	pc.SecurityLevel = level
	return analyzer.Complete(pc), nil
}

func parseFilter(r *http.Request) (catalog.Filter, error) {
	var f catalog.Filter
	query := r.URL.Query()
	for _, raw := range query["kind"] {
		for _, name := range strings.Split(raw, ",") {
			if strings.TrimSpace(name) == "" {
				continue
			}
			k, err := skilltypes.ParseKind(name)
			if err != nil {
				return f, err
			}
			f.Kinds = append(f.Kinds, k)
		}
	}
	for _, raw := range query["tag"] {
		for _, pattern := range strings.Split(raw, ",") {
			if pattern = strings.TrimSpace(pattern); pattern != "" {
				f.Tags = append(f.Tags, pattern)
			}
		}
	}
	return f, nil
}

// handleListSkills handles GET /api/skills?kind=&tag=
func (s *Server) handleListSkills(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "invalid filter", err)
		return
	}

	snap := s.registry.Catalog()
	matched, err := filter.Apply(snap)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "invalid filter", err)
		return
	}
	if matched == nil {
		matched = []*skilltypes.Skill{}
	}

	s.writeJSONResponse(w, http.StatusOK, SkillList{
		Skills:         matched,
		Total:          len(matched),
		CatalogVersion: snap.Version(),
	})
}

// handleGetSkill handles GET /api/skills/{id}
func (s *Server) handleGetSkill(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	skill, ok := s.registry.Skill(id)
	if !ok {
		s.writeErrorResponse(w, r, http.StatusNotFound, "skill not found", errors.Errorf("no skill with id %q", id))
		return
	}
	s.writeJSONResponse(w, http.StatusOK, skill)
}

// handleDiscover handles POST /api/discover
func (s *Server) handleDiscover(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pc, err := decodeContext(r)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "invalid project context", err)
		return
	}

	pc = s.registry.Prepare(ctx, pc)
	candidates := s.registry.Discover(ctx, pc)
	if candidates == nil {
		candidates = []*skilltypes.Skill{}
	}
	scores := make(map[string]int, len(candidates))
	for _, c := range candidates {
		scores[c.ID] = optimizer.Score(c, pc)
	}

	s.writeJSONResponse(w, http.StatusOK, DiscoverResponse{
		Context:    pc,
		Candidates: candidates,
		Scores:     scores,
	})
}

// handleCompose handles POST /api/compose. The composition is recorded when
// history is enabled, unless ?record=false.
func (s *Server) handleCompose(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pc, err := decodeContext(r)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "invalid project context", err)
		return
	}

	pc = s.registry.Prepare(ctx, pc)
	comp := s.registry.DiscoverAndCompose(ctx, pc)

	if s.history != nil && r.URL.Query().Get("record") != "false" {
		rec, err := s.history.Record(ctx, pc, comp, s.registry.Catalog().Version())
		if err != nil {
			s.writeErrorResponse(w, r, http.StatusInternalServerError, "failed to record composition", err)
			return
		}
		w.Header().Set(CompositionRecordHeader, rec.ID)
	}

	s.writeJSONResponse(w, http.StatusOK, comp)
}

// handleReloadCatalog handles POST /api/catalog/reload. A failed reload
// answers 503 together with the snapshot that stays installed.
func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	installed, err := s.registry.Store().Reload(r.Context())
	resp := ReloadResponse{
		Source:  installed.Source(),
		Version: installed.Version(),
		Skills:  installed.Len(),
	}
	if err != nil {
		resp.Error = err.Error()
		s.writeJSONResponse(w, http.StatusServiceUnavailable, resp)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, resp)
}

// handleCatalogSchema handles GET /api/catalog/schema
func (s *Server) handleCatalogSchema(w http.ResponseWriter, r *http.Request) {
	schema, err := catalog.SchemaJSON()
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusInternalServerError, "failed to generate schema", err)
		return
	}
	w.Header().Set("Content-Type", "application/schema+json")
	w.Write(schema)
}

func (s *Server) historyEnabled(w http.ResponseWriter, r *http.Request) bool {
	if s.history == nil {
		s.writeErrorResponse(w, r, http.StatusNotFound, "composition history is disabled", nil)
		return false
	}
	return true
}

func (s *Server) writeHistoryError(w http.ResponseWriter, r *http.Request, message string, err error) {
	if errors.Is(err, history.ErrNotFound) {
		s.writeErrorResponse(w, r, http.StatusNotFound, "composition record not found", err)
		return
	}
	s.writeErrorResponse(w, r, http.StatusInternalServerError, message, err)
}

// handleListHistory handles GET /api/history?limit=&project_type=
func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w, r) {
		return
	}
	limit, err := queryInt(r, "limit", history.DefaultListLimit)
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "invalid limit", err)
		return
	}

	list, err := s.history.List(r.Context(), limit, r.URL.Query().Get("project_type"))
	if err != nil {
		s.writeErrorResponse(w, r, http.StatusInternalServerError, "failed to list history", err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, map[string]any{
		"records": list,
		"total":   len(list),
	})
}

// handleGetHistory handles GET /api/history/{id}
func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w, r) {
		return
	}
	rec, err := s.history.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeHistoryError(w, r, "failed to load composition record", err)
		return
	}
	s.writeJSONResponse(w, http.StatusOK, rec)
}

// handleDeleteHistory handles DELETE /api/history/{id}
func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w, r) {
		return
	}
	if err := s.history.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeHistoryError(w, r, "failed to delete composition record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDiffHistory handles GET /api/history/diff?a=&b= and answers with a
// unified diff
func (s *Server) handleDiffHistory(w http.ResponseWriter, r *http.Request) {
	if !s.historyEnabled(w, r) {
		return
	}
	a, b := r.URL.Query().Get("a"), r.URL.Query().Get("b")
	if a == "" || b == "" {
		s.writeErrorResponse(w, r, http.StatusBadRequest, "both a and b record ids are required", nil)
		return
	}

	diff, err := s.history.Diff(r.Context(), a, b)
	if err != nil {
		s.writeHistoryError(w, r, "failed to diff composition records", err)
		return
	}
	w.Header().Set("Content-Type", "text/x-diff; charset=utf-8")
	io.WriteString(w, diff)
}
