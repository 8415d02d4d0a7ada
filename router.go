package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pochemuchka/pochemuchka/pkg/config"
	"github.com/pochemuchka/pochemuchka/pkg/handler"
	"github.com/pochemuchka/pochemuchka/pkg/service"
	"github.com/pochemuchka/pochemuchka/pkg/store"
	"github.com/pochemuchka/pochemuchka/pkg/utils"
)

type Server struct {
	ginEngine *gin.Engine
	logger    *slog.Logger
	cfg       *config.AppConfig
}

func NewServer(cfg *config.AppConfig, dispatcher *service.Dispatcher, media *service.MediaRouter, st *store.Degradable) *Server {
	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery())

	server := &Server{
		ginEngine: ginEngine,
		logger:    utils.GetLogger(),
		cfg:       cfg,
	}

	healthHandler := handler.NewHealthHandler(st)
	healthHandler.RegisterRoutes(ginEngine)

	turnHandler := handler.NewTurnHandler(dispatcher, media, st, server.logger)

	// API group
	// /v1
	v1 := ginEngine.Group("/v1")
	turnHandler.RegisterRoutes(v1)

	return server
}

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host(), s.cfg.Port())
	srv := &http.Server{Addr: addr, Handler: s.ginEngine}

	// Listen first so a busy port fails immediately.
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("server listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
