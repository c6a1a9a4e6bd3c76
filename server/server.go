// Package server exposes taskmesh over HTTP with gin: a health check, a
// synchronous chat endpoint, a Server-Sent Events chat stream and the
// Prometheus metrics endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/taskmesh"
	"github.com/hupe1980/taskmesh/core"
	"github.com/hupe1980/taskmesh/graph"
	"github.com/hupe1980/taskmesh/logging"
	"github.com/hupe1980/taskmesh/relay"
)

// Mesh runs chat turns. *taskmesh.TaskMesh implements it.
type Mesh interface {
	Stream(ctx context.Context, history []core.Message, data graph.Data) (<-chan relay.Event, error)
	Chat(ctx context.Context, history []core.Message, data graph.Data) (taskmesh.Response, error)
}

// Options configures a Server.
type Options struct {
	// Addr is the listen address for ListenAndServe.
	Addr string
	// AllowedOrigins lists the origins allowed by CORS.
	AllowedOrigins []string
	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
	// RateLimit caps chat requests per second across all clients; 0
	// disables limiting.
	RateLimit float64
	// RateBurst is the burst size for RateLimit.
	RateBurst int
	Logger    logging.Logger
}

// Server is the HTTP front end.
type Server struct {
	mesh   Mesh
	opts   Options
	router *gin.Engine
}

// New creates a Server and registers its routes.
func New(mesh Mesh, optFns ...func(o *Options)) *Server {
	opts := Options{
		Addr:            ":8000",
		AllowedOrigins:  []string{"http://localhost:5173", "http://localhost:3000"},
		ShutdownTimeout: 10 * time.Second,
		RateBurst:       10,
		Logger:          logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	opts.Logger = logging.OrNoOp(opts.Logger)

	s := &Server{mesh: mesh, opts: opts}
	s.initRouter()

	return s
}

func (s *Server) initRouter() {
	s.router = gin.New()
	s.router.Use(gin.Recovery(), s.accessLog(), corsMiddleware(s.opts.AllowedOrigins))

	s.router.GET("/", s.handleRoot)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	if s.opts.RateLimit > 0 {
		api.Use(rateLimit(rate.NewLimiter(rate.Limit(s.opts.RateLimit), max(s.opts.RateBurst, 1))))
	}
	{
		api.POST("/chat", s.handleChat)
		api.POST("/chat/stream", s.handleChatStream)
		api.GET("/chat/ws", s.handleChatWS)
	}
}

// Handler returns the http.Handler serving all routes.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.opts.Logger.Info("server.started", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.opts.Logger.Info("server.stopping")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func rateLimit(l *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"detail": "too many requests"})
			return
		}
		c.Next()
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.opts.Logger.Info("server.request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Task Graph API is running"})
}

func (s *Server) handleChat(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}

	res, err := s.mesh.Chat(c.Request.Context(), req.History(), req.Graph)
	if err != nil {
		var turnErr *taskmesh.TurnError
		if !errors.As(err, &turnErr) {
			s.opts.Logger.Error("server.chat.failed", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{"detail": err.Error()})
			return
		}
		// the apology and the graph are still a valid reply
		s.opts.Logger.Warn("server.chat.turn_failed", "error", turnErr.Message)
	}

	c.JSON(http.StatusOK, ChatResponse{MessageResponse: res.Response, GraphData: res.Graph})
}

func (s *Server) handleChatStream(c *gin.Context) {
	req, ok := s.bind(c)
	if !ok {
		return
	}

	events, err := s.mesh.Stream(c.Request.Context(), req.History(), req.Graph)
	if err != nil {
		s.opts.Logger.Error("server.stream.rejected", "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"detail": err.Error()})
		return
	}

	setSSEHeaders(c.Writer)
	c.Status(http.StatusOK)

	w, err := newSSEWriter(c.Writer)
	if err != nil {
		s.opts.Logger.Error("server.stream.unsupported", "error", err.Error())
		return
	}

	for ev := range events {
		if err := w.WriteEvent(ev); err != nil {
			s.opts.Logger.Warn("server.stream.write_failed", "error", err.Error())
			return
		}
	}
}

// bind decodes and validates the chat request, answering 422 on failure.
func (s *Server) bind(c *gin.Context) (ChatRequest, bool) {
	var req ChatRequest

	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "failed to read request body"})
		return req, false
	}

	if err := binding.JSON.BindBody(raw, &req); err != nil {
		s.opts.Logger.Error("server.request.invalid", "error", err.Error(), "body", string(raw))
		c.JSON(http.StatusUnprocessableEntity, ValidationErrorResponse{
			Detail: validationDetails(err),
			Body:   string(raw),
		})
		return req, false
	}

	return req, true
}

func validationDetails(err error) []ValidationDetail {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ValidationDetail, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationDetail{
				Loc:  []string{"body", fe.Namespace()},
				Msg:  fmt.Sprintf("failed on the %q rule", fe.Tag()),
				Type: fe.Tag(),
			})
		}
		return out
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	switch {
	case errors.As(err, &syntaxErr):
		return []ValidationDetail{{Loc: []string{"body"}, Msg: err.Error(), Type: "json_invalid"}}
	case errors.As(err, &typeErr):
		return []ValidationDetail{{Loc: []string{"body", typeErr.Field}, Msg: err.Error(), Type: "type_error"}}
	}

	return []ValidationDetail{{Loc: []string{"body"}, Msg: err.Error(), Type: "value_error"}}
}
