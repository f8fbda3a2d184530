package ops

import (
	"encoding/json"
	"net/http"
	"net/http/pprof"
	"time"

	"statflow/internal"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the operational sidecar listener: health checks and pprof
// on a separate port so they never share a mux with the public API
type Server struct {
	port   string
	logger *internal.Logger
	start  time.Time
}

// NewServer creates an ops server
func NewServer(port string, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.NewDefaultLogger()
	}
	return &Server{port: port, logger: logger, start: time.Now()}
}

// Router builds the ops mux
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)

	r.Route("/debug/pprof", func(r chi.Router) {
		r.Get("/", pprof.Index)
		r.Get("/cmdline", pprof.Cmdline)
		r.Get("/profile", pprof.Profile)
		r.Get("/symbol", pprof.Symbol)
		r.Get("/trace", pprof.Trace)
		r.Get("/{name}", func(w http.ResponseWriter, req *http.Request) {
			pprof.Handler(chi.URLParam(req, "name")).ServeHTTP(w, req)
		})
	})

	return r
}

// ListenAndServe blocks serving the ops endpoints
func (s *Server) ListenAndServe() error {
	s.logger.Info("[Ops] listening on :%s", s.port)
	return http.ListenAndServe(":"+s.port, s.Router())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(time.Since(s.start).Seconds()),
	})
}
