// Package api exposes the trust layer over HTTP.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"

	"github.com/stoik/trustlayer/internal/models"
	"github.com/stoik/trustlayer/internal/report"
	"github.com/stoik/trustlayer/internal/scoring"
)

// Options configures the HTTP layer
type Options struct {
	RateLimit float64
	RateBurst int
}

// Server holds the HTTP handlers
type Server struct {
	generator *report.Generator
	source    report.EmailSource
	logger    *slog.Logger
	limiter   *ipLimiter
}

// NewServer creates the API. source is used to generate reports on demand for
// threads that have none yet; it may be nil.
func NewServer(generator *report.Generator, source report.EmailSource, logger *slog.Logger, opts Options) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		generator: generator,
		source:    source,
		logger:    logger,
		limiter:   newIPLimiter(opts.RateLimit, opts.RateBurst),
	}
}

// Router builds the gin engine
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.handleHealth)

	v1 := r.Group("/v1/trust")
	{
		v1.GET("/reports", s.handleListReports)
		v1.POST("/reports", s.limiter.middleware(), s.handleCreateReport)
		v1.GET("/reports/:thread_id", s.handleGetReport)
		v1.GET("/stats", s.handleStats)
		v1.GET("/plugins", s.handlePlugins)
		v1.GET("/scoring/rules", s.handleRules)
	}
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

// reportResponse is the wire shape of a report
type reportResponse struct {
	ReportID       string           `json:"report_id"`
	ThreadID       string           `json:"thread_id"`
	SenderEmail    string           `json:"sender_email"`
	SenderDomain   string           `json:"sender_domain"`
	Score          int              `json:"score"`
	RiskLevel      models.RiskLevel `json:"risk_level"`
	Summary        string           `json:"summary"`
	Findings       []models.Finding `json:"findings"`
	RulesetVersion string           `json:"ruleset_version"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

func toResponse(r *models.TrustReport) reportResponse {
	findings := r.Findings
	if findings == nil {
		findings = []models.Finding{}
	}
	return reportResponse{
		ReportID:       r.ReportID,
		ThreadID:       r.ThreadID,
		SenderEmail:    r.SenderEmail,
		SenderDomain:   r.SenderDomain,
		Score:          r.Score,
		RiskLevel:      r.RiskLevel,
		Summary:        r.Summary,
		Findings:       findings,
		RulesetVersion: r.RulesetVersion,
		GeneratedAt:    r.CreatedAt,
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"plugins": s.generator.Registry().Healthcheck(c.Request.Context()),
	})
}

func (s *Server) handleGetReport(c *gin.Context) {
	ctx := c.Request.Context()
	threadID := c.Param("thread_id")

	rep, err := s.generator.GetReport(ctx, threadID)
	if err != nil {
		s.internalError(c, "failed to load report", err)
		return
	}
	if rep != nil {
		c.JSON(http.StatusOK, toResponse(rep))
		return
	}

	rep, err = s.generator.GenerateForThread(ctx, threadID, s.source)
	if errors.Is(err, report.ErrEmailNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found", "thread_id": threadID})
		return
	}
	if err != nil {
		s.internalError(c, "failed to generate report", err)
		return
	}
	c.JSON(http.StatusOK, toResponse(rep))
}

type createReportRequest struct {
	MessageID    string         `json:"message_id"`
	ThreadID     string         `json:"thread_id"`
	SenderEmail  string         `json:"sender_email" binding:"required"`
	SenderDomain string         `json:"sender_domain"`
	ReturnPath   string         `json:"return_path"`
	ReplyTo      string         `json:"reply_to"`
	Subject      string         `json:"subject"`
	BodyText     string         `json:"body_text"`
	BodyHTML     string         `json:"body_html"`
	Snippet      string         `json:"snippet"`
	Headers      map[string]any `json:"headers"`
	URLs         []string       `json:"urls"`
}

// headerValues accepts a single string or a list per header name
func headerValues(raw map[string]any) map[string][]string {
	out := make(map[string][]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = []string{val}
		case []any:
			vals := make([]string, 0, len(val))
			for _, item := range val {
				vals = append(vals, cast.ToString(item))
			}
			out[k] = vals
		default:
			out[k] = []string{cast.ToString(val)}
		}
	}
	return out
}

func (s *Server) handleCreateReport(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vc := &models.VerificationContext{
		MessageID:     req.MessageID,
		ThreadID:      req.ThreadID,
		SenderEmail:   req.SenderEmail,
		SenderDomain:  req.SenderDomain,
		ReturnPath:    req.ReturnPath,
		ReplyTo:       req.ReplyTo,
		RawHeaders:    headerValues(req.Headers),
		Subject:       req.Subject,
		BodyText:      req.BodyText,
		BodyHTML:      req.BodyHTML,
		Snippet:       req.Snippet,
		ExtractedURLs: req.URLs,
		ReceivedAt:    time.Now().UTC(),
	}
	if vc.ReturnPath == "" {
		if v := vc.HeaderValues("Return-Path"); len(v) > 0 {
			vc.ReturnPath = v[0]
		}
	}

	rep, err := s.generator.GenerateReport(c.Request.Context(), vc)
	if err != nil {
		s.internalError(c, "failed to generate report", err)
		return
	}
	c.JSON(http.StatusOK, toResponse(rep))
}

func (s *Server) handleListReports(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	risk := models.RiskLevel(c.Query("risk_level"))
	if risk != "" && !risk.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid risk_level"})
		return
	}

	reports, err := s.generator.ListReports(c.Request.Context(), limit, risk)
	if err != nil {
		s.internalError(c, "failed to list reports", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

func (s *Server) handleStats(c *gin.Context) {
	stats, err := s.generator.Stats(c.Request.Context())
	if err != nil {
		s.internalError(c, "failed to compute stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handlePlugins(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"plugins": s.generator.Registry().List()})
}

func (s *Server) handleRules(c *gin.Context) {
	engine := s.generator.Engine()
	rules := make(map[string]gin.H)
	for _, r := range engine.Rules() {
		rules[r.ID] = gin.H{
			"points_delta": r.PointsDelta,
			"description":  r.Description,
			"severity":     r.Severity,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"ruleset_version": engine.RulesetVersion(),
		"score_bounds": gin.H{
			"start": scoring.StartScore,
			"min":   scoring.MinScore,
			"max":   scoring.MaxScore,
		},
		"rules":       rules,
		"risk_levels": scoring.Bands(),
	})
}

func (s *Server) internalError(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}
