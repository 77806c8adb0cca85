package http

import (
	"context"
	"net/http"

	"github.com/DRSN-tech/style-catalog/internal/cfg"
)

const maxHeaderBytes = 1 << 20

type Server struct {
	httpServer *http.Server
}

// NewServer создаёт HTTP-сервер. WriteTimeout общий для всех маршрутов,
// обработчик ингестии продлевает свой дедлайн сам.
func NewServer(handler http.Handler, cfg *cfg.HTTPConfig) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: cfg.ReadTimeout,
			WriteTimeout:      cfg.WriteTimeout,
			IdleTimeout:       cfg.IdleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		},
	}
}

func (s *Server) Run() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
