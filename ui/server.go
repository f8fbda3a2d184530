package ui

import (
	"sync"

	"statflow/adapters/ingest"
	"statflow/domain/core"
	"statflow/internal"
	"statflow/internal/api"
	"statflow/internal/config"
	"statflow/internal/pipeline"
	"statflow/ports"

	"github.com/gin-gonic/gin"
)

// Server is the public JSON API: uploads, run results, reports, and the
// progress event stream. Profiled datasets stay in process memory keyed
// by run ID; only run metadata goes through the repository.
type Server struct {
	router  *gin.Engine
	config  *config.Config
	parser  *ingest.Parser
	pipe    *pipeline.Pipeline
	repo    ports.RunRepository
	compute ports.ComputeBackend
	hub     *api.SSEHub
	logger  *internal.Logger

	statesMu sync.RWMutex
	states   map[core.RunID]*pipeline.RunState
}

// NewServer creates a new web server instance
func NewServer(cfg *config.Config, pipe *pipeline.Pipeline, repo ports.RunRepository, compute ports.ComputeBackend, logger *internal.Logger) *Server {
	gin.SetMode(cfg.Server.GinMode)
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}

	s := &Server{
		router:  gin.Default(),
		config:  cfg,
		parser:  ingest.NewParser(cfg.Ingest),
		pipe:    pipe,
		repo:    repo,
		compute: compute,
		hub:     api.NewSSEHub(),
		logger:  logger,
		states:  make(map[core.RunID]*pipeline.RunState),
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	apiGroup := s.router.Group("/api")
	{
		apiGroup.POST("/runs", s.handleUpload)
		apiGroup.GET("/runs", s.handleListRuns)
		apiGroup.GET("/runs/:id", s.handleGetRun)
		apiGroup.GET("/runs/:id/report", s.handleReport)
		apiGroup.GET("/runs/:id/export", s.handleExport)
		apiGroup.POST("/sheets", s.handleSheets)
		apiGroup.POST("/compute/:op", s.handleCompute)
		apiGroup.GET("/events", s.hub.HandleSSE)
	}
}

// Run starts the server on the configured port
func (s *Server) Run() error {
	addr := ":" + s.config.Server.Port
	s.logger.Info("[Server] listening on %s", addr)
	return s.router.Run(addr)
}

// Router exposes the gin engine for tests
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) storeState(state *pipeline.RunState) {
	s.statesMu.Lock()
	s.states[state.RunID] = state
	s.statesMu.Unlock()
}

func (s *Server) stateFor(id core.RunID) (*pipeline.RunState, bool) {
	s.statesMu.RLock()
	defer s.statesMu.RUnlock()
	state, ok := s.states[id]
	return state, ok
}
