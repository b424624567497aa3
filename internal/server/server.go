// Package server exposes the invoice pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tnvoice/elfatoora/internal/model"
	"github.com/tnvoice/elfatoora/internal/pipeline"
	"github.com/tnvoice/elfatoora/internal/schema"
)

// Config holds server configuration
type Config struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Debug        bool
}

// Server represents the HTTP API server
type Server struct {
	config   *Config
	router   *gin.Engine
	pipeline *pipeline.Pipeline
	log      zerolog.Logger
}

// NewServer creates a new API server around an initialized pipeline.
func NewServer(config *Config, pipe *pipeline.Pipeline, log zerolog.Logger) *Server {
	if !config.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestID())
	router.Use(requestLogger(log))

	s := &Server{
		config:   config,
		router:   router,
		pipeline: pipe,
		log:      log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/generate", s.handleGenerate)
		v1.POST("/generate/unsigned", s.handleGenerateUnsigned)
		v1.POST("/validate", s.handleValidate)
		v1.POST("/validate/xml", s.handleValidateXML)
		v1.POST("/verify", s.handleVerify)
		v1.POST("/parse", s.handleParse)
		v1.GET("/certificate", s.handleCertificate)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}
	return srv.ListenAndServe()
}

// Handler returns the http.Handler for use with custom servers
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestID tags every request with a unique id, honoring an
// incoming X-Request-ID from an upstream proxy.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// requestLogger emits one structured line per request.
func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("request_id", c.GetString("request_id")).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("request")
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"signing": s.pipeline.CanSign(),
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleGenerate(c *gin.Context) {
	s.generate(c, true)
}

func (s *Server) handleGenerateUnsigned(c *gin.Context) {
	s.generate(c, false)
}

func (s *Server) generate(c *gin.Context, sign bool) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	inv, err := req.ToModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var result *pipeline.Result
	if sign {
		result, err = s.pipeline.Generate(ctx, inv)
	} else {
		result, err = s.pipeline.GenerateUnsigned(ctx, inv)
	}
	if err != nil {
		c.JSON(statusFor(err), errorBody(err))
		return
	}

	c.JSON(http.StatusOK, GenerateResponse{
		InvoiceNumber: result.InvoiceNumber,
		Signed:        result.Signed,
		SignedAt:      result.SignedAt,
		XML:           string(result.XML),
		Totals:        totalsResponse(result.Totals),
		Warnings:      result.Warnings,
	})
}

func (s *Server) handleValidate(c *gin.Context) {
	var req InvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	inv, err := req.ToModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}

	verrs := s.pipeline.Validate(inv)
	resp := ValidateResponse{Valid: !verrs.HasErrors()}
	for _, v := range verrs.Violations {
		resp.Violations = append(resp.Violations, ViolationResponse{
			Field: v.Field, Code: v.Code, Message: v.Message,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleValidateXML(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	variant := schema.Unsigned
	if c.Query("variant") == "signed" {
		variant = schema.Signed
	}
	violations, err := s.pipeline.ValidateXML(body, variant)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody(err))
		return
	}
	resp := ValidateResponse{Valid: len(violations) == 0}
	for _, v := range violations {
		resp.Violations = append(resp.Violations, ViolationResponse{
			Field: v.Location, Code: v.Rule, Message: v.Message,
		})
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleVerify(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	result, err := s.pipeline.VerifySignature(body)
	if result == nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody(err))
		return
	}
	// An invalid signature is a successful verification with a
	// negative outcome, not a transport error.
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleParse(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || len(body) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty request body"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	inv, err := s.pipeline.Parse(ctx, body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, NewInvoiceResponse(inv))
}

func (s *Server) handleCertificate(c *gin.Context) {
	info, err := s.pipeline.CertificateInfo()
	if err != nil {
		c.JSON(http.StatusNotFound, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, info)
}

// errorBody renders domain and validation errors with their stable
// codes; anything else becomes a bare message.
func errorBody(err error) gin.H {
	var verrs *model.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]ViolationResponse, 0, len(verrs.Violations))
		for _, v := range verrs.Violations {
			out = append(out, ViolationResponse{Field: v.Field, Code: v.Code, Message: v.Message})
		}
		return gin.H{"error": "validation failed", "violations": out}
	}
	var derr *model.DomainError
	if errors.As(err, &derr) {
		return gin.H{"error": derr.Message, "code": derr.Code, "field": derr.Field}
	}
	return gin.H{"error": err.Error()}
}

// statusFor maps pipeline failures to HTTP statuses: invalid input is
// 422, everything else is a server-side 500.
func statusFor(err error) int {
	var verrs *model.ValidationErrors
	var derr *model.DomainError
	if errors.As(err, &verrs) || errors.As(err, &derr) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
