package control

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

type Server struct {
	http *http.Server
}

// NewServer serves the control routes, the event stream and /health.
func NewServer(cfg ServerConfig, handler *Handler, hub *Hub) *Server {
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /ws/events", hub)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})

	return &Server{
		http: &http.Server{
			Addr:              cfg.Addr,
			Handler:           h2c.NewHandler(c.Handler(mux), &http2.Server{}),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start listens in the background. Listener failures are logged.
func (s *Server) Start() {
	go func() {
		log.Info().Str("component", "control").Str("addr", s.http.Addr).Msg("control server listening")
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Str("component", "control").Msg("control server failed")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the assembled HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}
