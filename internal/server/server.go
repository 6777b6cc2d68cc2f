package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meedamian/gptflo/internal/config"
	"github.com/meedamian/gptflo/internal/constants"
	"github.com/meedamian/gptflo/internal/generator"
	"github.com/meedamian/gptflo/internal/models"
	"github.com/meedamian/gptflo/internal/types"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"

	msgInvalidTopic = "Ingrese un tema"
	msgGeneric      = "Ocurrió un error durante su solicitud."
	msgMissingKey   = "La clave API de %s no está configurada, siga las instrucciones en README.md"
)

// QuestionGenerator produces the numbered questions for a topic
type QuestionGenerator interface {
	Generate(ctx context.Context, topic string) ([]string, error)
}

// Server serves the generation API and the embedded web form
type Server struct {
	logger    *slog.Logger
	config    config.Config
	generator QuestionGenerator
	provider  string
	model     string
	staticFS  fs.FS
	startTime time.Time
}

// New creates a new Server instance. A nil generator means the provider
// credential is missing; every generation request then fails with 500.
func New(logger *slog.Logger, cfg config.Config, info *types.ModelInfo, gen QuestionGenerator, staticFS fs.FS) *Server {
	return &Server{
		logger:    logger,
		config:    cfg,
		generator: gen,
		provider:  info.Provider,
		model:     info.Name,
		staticFS:  staticFS,
		startTime: time.Now(),
	}
}

// requestIDMiddleware reuses the caller's X-Request-ID or assigns a new one
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// slogMiddleware creates a Gin middleware that logs HTTP requests using slog
func (s *Server) slogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		// Process request
		c.Next()

		// Log after request is processed
		duration := time.Since(start)
		status := c.Writer.Status()

		// Choose log level based on status code
		logFunc := s.logger.Info
		if status >= 500 {
			logFunc = s.logger.Error
		} else if status >= 400 {
			logFunc = s.logger.Warn
		}

		logFunc("http request",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.Duration("duration", duration),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(requestIDKey)),
		)
	}
}

// Handler builds the gin engine with every route registered
func (s *Server) Handler() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestIDMiddleware())
	r.Use(s.slogMiddleware())

	// Serve embedded static files
	staticSubFS, err := fs.Sub(s.staticFS, "static")
	if err != nil {
		return nil, err
	}
	r.StaticFS("/static", http.FS(staticSubFS))

	// Serve index.html from embedded files
	r.GET("/", func(c *gin.Context) {
		data, err := fs.ReadFile(s.staticFS, "static/index.html")
		if err != nil {
			c.String(500, "Failed to load index.html")
			return
		}
		c.Data(200, "text/html; charset=utf-8", data)
	})

	r.POST("/api/generate", s.handleGenerate)

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":   "healthy",
			"uptime":   time.Since(s.startTime).String(),
			"provider": s.provider,
			"model":    s.model,
		})
	})

	// Random topic endpoint
	r.GET("/api/topics/random", func(c *gin.Context) {
		if len(constants.SampleTopics) == 0 {
			c.JSON(200, gin.H{"topic": ""})
			return
		}
		randomIndex := rand.Intn(len(constants.SampleTopics))
		c.JSON(200, gin.H{"topic": constants.SampleTopics[randomIndex]})
	})

	return r, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	gin.SetMode(gin.ReleaseMode)
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              s.config.ServerAddress,
		Handler:           handler,
		ReadHeaderTimeout: constants.ReadHeaderTimeoutSeconds * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", slog.String("addr", s.config.ServerAddress))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeoutSeconds*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type generateRequest struct {
	Topic string `json:"topic"`
}

func (s *Server) handleGenerate(c *gin.Context) {
	// Credential check comes before input validation
	if s.generator == nil {
		abortWithMessage(c, http.StatusInternalServerError, fmt.Sprintf(msgMissingKey, s.provider))
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, constants.MaxRequestBytes)

	// An unreadable body counts as a missing topic
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.Topic = ""
	}

	if strings.TrimSpace(req.Topic) == "" {
		abortWithMessage(c, http.StatusBadRequest, msgInvalidTopic)
		return
	}

	ctx := generator.WithRequestID(c.Request.Context(), c.GetString(requestIDKey))
	questions, err := s.generator.Generate(ctx, req.Topic)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": strings.Join(questions, "\n")})
}

// writeError maps a generation failure to the HTTP response
func (s *Server) writeError(c *gin.Context, err error) {
	logger := s.logger.With("request_id", c.GetString(requestIDKey))

	switch {
	case errors.Is(err, generator.ErrInvalidTopic):
		abortWithMessage(c, http.StatusBadRequest, msgInvalidTopic)
		return

	case errors.Is(err, models.ErrMissingAPIKey):
		abortWithMessage(c, http.StatusInternalServerError, fmt.Sprintf(msgMissingKey, s.provider))
		return
	}

	var upstream *models.UpstreamError
	if errors.As(err, &upstream) && upstream.StatusCode > 0 {
		logger.Warn("upstream error",
			slog.Int("status", upstream.StatusCode),
			slog.String("provider", upstream.Provider),
			slog.Any("error", err))

		// Mirror the provider's answer as-is
		if len(upstream.RawBody) > 0 && json.Valid(upstream.RawBody) {
			c.Data(upstream.StatusCode, "application/json; charset=utf-8", upstream.RawBody)
			return
		}
		message := http.StatusText(upstream.StatusCode)
		if upstream.Err != nil {
			message = upstream.Err.Error()
		}
		abortWithMessage(c, upstream.StatusCode, message)
		return
	}

	logger.Error("error with completion request", slog.Any("error", err))
	abortWithMessage(c, http.StatusInternalServerError, msgGeneric)
}

func abortWithMessage(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"message": message},
	})
}
