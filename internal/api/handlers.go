package api

import (
	"net/http"
	"time"

	"codeatlas/internal/query"
	"codeatlas/internal/references"
	"codeatlas/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status       string    `json:"status"` // "ok", or "degraded" with no Blueprint
	Timestamp    time.Time `json:"timestamp"`
	Version      string    `json:"version"`
	Uptime       string    `json:"uptime"`
	Loaded       bool      `json:"blueprintLoaded"`
	GenerationID string    `json:"generationId,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	resp := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Loaded:    s.engine.Loaded(),
	}
	if meta, err := s.engine.Meta(r.Context()); err == nil {
		resp.GenerationID = meta.Meta.GenerationID
	} else {
		resp.Status = "degraded"
	}
	WriteJSON(w, resp, http.StatusOK)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	resp, err := s.engine.Meta(r.Context())
	s.respond(w, r, resp, err)
}

func (s *Server) handleEntryPoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	resp, err := s.engine.DetectEntryPoints(r.Context())
	s.respond(w, r, resp, err)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	depth, err := QueryParamInt(r, "depth", 0)
	if err != nil {
		BadRequest(w, r, err.Error())
		return
	}
	maxNodes, err := QueryParamInt(r, "maxNodes", 0)
	if err != nil {
		BadRequest(w, r, err.Error())
		return
	}
	resp, err := s.engine.BuildDependencyTree(r.Context(), query.DependencyTreeOptions{
		RootID:   r.URL.Query().Get("root"),
		MaxDepth: depth,
		MaxNodes: maxNodes,
	})
	s.respond(w, r, resp, err)
}

func (s *Server) handleArchitecture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	resp, err := s.engine.GetArchitectureView(r.Context())
	s.respond(w, r, resp, err)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	resp, err := s.engine.GetStatistics(r.Context())
	s.respond(w, r, resp, err)
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	id := GetPathParam(r, "/refs/")
	if id == "" {
		BadRequest(w, r, "symbol id is required: /refs/{id}")
		return
	}
	resp, err := s.engine.GetSymbolReferences(r.Context(), id)
	s.respond(w, r, resp, err)
}

func (s *Server) handleCallGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	id := GetPathParam(r, "/callgraph/")
	if id == "" {
		BadRequest(w, r, "symbol id is required: /callgraph/{id}")
		return
	}
	dir := r.URL.Query().Get("direction")
	switch dir {
	case "", string(references.DirectionCallers), string(references.DirectionCallees), string(references.DirectionBoth):
	default:
		BadRequest(w, r, "direction must be callers, callees or both")
		return
	}
	depth, err := QueryParamInt(r, "depth", 0)
	if err != nil {
		BadRequest(w, r, err.Error())
		return
	}
	resp, err := s.engine.GetCallGraph(r.Context(), query.CallGraphOptions{
		SymbolID:  id,
		Direction: references.ParseDirection(dir),
		Depth:     depth,
	})
	s.respond(w, r, resp, err)
}

func (s *Server) handleFlow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}
	entries := QueryParamList(r, "entry")
	if len(entries) == 0 {
		BadRequest(w, r, "at least one entry symbol is required: /flow?entry={id}")
		return
	}
	depth, err := QueryParamInt(r, "depth", 0)
	if err != nil {
		BadRequest(w, r, err.Error())
		return
	}
	maxNodes, err := QueryParamInt(r, "maxNodes", 0)
	if err != nil {
		BadRequest(w, r, err.Error())
		return
	}
	resp, err := s.engine.BuildScenarioFlow(r.Context(), query.ScenarioFlowOptions{
		Name:     r.URL.Query().Get("name"),
		EntryIDs: entries,
		MaxDepth: depth,
		MaxNodes: maxNodes,
	})
	if err == nil && r.URL.Query().Get("format") == "mermaid" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(resp.Mermaid))
		return
	}
	s.respond(w, r, resp, err)
}

// ReloadResponse reports the Blueprint now being served.
type ReloadResponse struct {
	Reloaded bool                `json:"reloaded"`
	Meta     *query.MetaResponse `json:"meta"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		MethodNotAllowed(w, http.MethodPost)
		return
	}
	err := s.engine.Reload(s.artifact)
	s.metrics.RecordReload(err)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	meta, err := s.engine.Meta(r.Context())
	s.respond(w, r, &ReloadResponse{Reloaded: true, Meta: meta}, err)
}

// respond writes resp, or err mapped to its status.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, resp interface{}, err error) {
	if err != nil {
		WriteError(w, r, err)
		return
	}
	WriteJSON(w, resp, http.StatusOK)
}
