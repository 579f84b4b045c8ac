// Package httpapi exposes the engine over HTTP: webhook entry points for the
// bridge agent plus the command/query surface consumed by the desktop UI.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/londonerlim84/unomatix-kiwoomapi/internal/logger"

	"github.com/gin-gonic/gin"
)

type Server struct {
	addr string
	srv  *http.Server
}

type ServerConfig struct {
	Addr     string
	Handlers *Handlers
}

func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Handlers == nil {
		return nil, errors.New("http server requires handlers")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8090"
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	cfg.Handlers.Register(router.Group("/api"))

	return &Server{
		addr: cfg.Addr,
		srv:  &http.Server{Addr: cfg.Addr, Handler: router},
	}, nil
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infof("http: listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debugf("http: %s %s -> %d (%v)",
			c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
