// Package serving hosts a trained model behind the /ping and /invocations
// endpoints used by managed inference containers.
package serving

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"xgbdeploy/internal/data"
	"xgbdeploy/internal/models"
)

type Server struct {
	model  models.Model
	logger *zap.Logger
	apiKey string
	srv    *http.Server
}

func New(m models.Model, logger *zap.Logger) *Server {
	return &Server{model: m, logger: logger, apiKey: os.Getenv("API_KEY")}
}

func (s *Server) WithAPIKey(key string) *Server {
	s.apiKey = key
	return s
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ping", s.handlePing)
	api := r.Group("/")
	api.Use(s.apiKeyMiddleware)
	api.POST("/invocations", s.handleInvocations)
	return r
}

func (s *Server) apiKeyMiddleware(c *gin.Context) {
	if s.apiKey == "" {
		c.Next()
		return
	}
	if c.GetHeader("X-API-Key") != s.apiKey {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	c.Next()
}

func (s *Server) handlePing(c *gin.Context) {
	if s.model == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	c.JSON(http.StatusOK, gin.H{"model": s.model.Name()})
}

func (s *Server) handleInvocations(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "corpo ilegível"})
		return
	}
	rows, err := data.DecodeRows(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ps, err := s.model.PredictProba(rows)
	if err != nil {
		s.logger.Warn("Falha na predição", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, data.ContentTypeCSV, data.EncodeScores(ps))
}

// Start listens on addr and serves in the background. It returns the base
// URL of the endpoint, which resolves ":0" style addresses to the real port.
func (s *Server) Start(addr string) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	s.srv = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Endpoint encerrado com erro", zap.Error(err))
		}
	}()
	return "http://" + ln.Addr().String(), nil
}

func (s *Server) ListenAndServe(addr string) error {
	s.srv = &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	return s.srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}
