package api

import (
	"net/http"

	"codeatlas/internal/version"
)

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/health", s.handleHealth)
	s.router.HandleFunc("/meta", s.handleMeta)

	s.router.HandleFunc("/entrypoints", s.handleEntryPoints)
	s.router.HandleFunc("/tree", s.handleTree)
	s.router.HandleFunc("/architecture", s.handleArchitecture)
	s.router.HandleFunc("/statistics", s.handleStatistics)

	s.router.HandleFunc("/refs/", s.handleReferences)     // GET /refs/:id
	s.router.HandleFunc("/callgraph/", s.handleCallGraph) // GET /callgraph/:id
	s.router.HandleFunc("/flow", s.handleFlow)

	s.router.HandleFunc("/reload", s.handleReload) // POST
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.HandleFunc("/", s.handleRoot)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		MethodNotAllowed(w, http.MethodGet)
		return
	}

	WriteJSON(w, map[string]interface{}{
		"name":    "atlas query server",
		"version": version.Version,
		"endpoints": []string{
			"GET /health - Liveness and Blueprint status",
			"GET /meta - Loaded Blueprint metadata",
			"GET /entrypoints - Ranked entry-point candidates",
			"GET /tree?root=&depth=&maxNodes= - Module dependency tree",
			"GET /architecture - Layers, blocks and block edges",
			"GET /statistics - Aggregate statistics",
			"GET /refs/:id - Callers, callees and type references of a symbol",
			"GET /callgraph/:id?direction=&depth= - Bounded call-graph neighborhood",
			"GET /flow?name=&entry=&depth=&maxNodes=&format=mermaid - Scenario flow",
			"POST /reload - Reload the Blueprint artifact",
			"GET /metrics - Prometheus metrics",
		},
	}, http.StatusOK)
}
