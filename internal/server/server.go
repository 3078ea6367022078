// Package server exposes the consensus kernel over HTTP: a sync
// analyze endpoint, an NDJSON streaming variant, and the market-data
// and watchlist collaborator surfaces the frontend consumes.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/investlens/lenscore/config"
	"github.com/investlens/lenscore/internal/debate"
	"github.com/investlens/lenscore/internal/logger"
	"github.com/investlens/lenscore/internal/marketdata"
	"github.com/investlens/lenscore/internal/models"
	"github.com/investlens/lenscore/internal/quant"
	"github.com/investlens/lenscore/internal/watchlist"
)

// MarketData is the read-side market surface the HTTP handlers consume.
type MarketData interface {
	GetSnapshot(ctx context.Context, ticker string) (*models.MarketSnapshot, error)
	GetHistory(ctx context.Context, ticker, period string) (*models.History, error)
}

type Server struct {
	cfg    *config.Config
	orch   *debate.Orchestrator
	market MarketData
	watch  *watchlist.Store
	engine *gin.Engine
}

func New(cfg *config.Config, orch *debate.Orchestrator, market MarketData, watch *watchlist.Store) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    cfg,
		orch:   orch,
		market: market,
		watch:  watch,
		engine: gin.Default(),
	}

	s.engine.Use(corsMiddleware())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.getRoot)
	s.engine.GET("/health", s.getHealth)

	api := s.engine.Group("/api/v1")
	api.GET("/quote/:ticker", s.getQuote)
	api.GET("/market/history/:ticker", s.getHistory)
	api.GET("/market/prediction/:ticker", s.getPrediction)
	api.POST("/analyze", s.postAnalyze)
	api.POST("/analyze/stream", s.postAnalyzeStream)
	api.GET("/watchlist", s.getWatchlist)
	api.POST("/watchlist", s.postWatchlist)
	api.DELETE("/watchlist/:ticker", s.deleteWatchlist)
}

func (s *Server) Run() error {
	return s.engine.Run(s.cfg.Addr())
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-LLM-API-Key, X-LLM-Base-URL, X-LLM-Model")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (s *Server) getRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "online", "system": "InvestLens Consensus Kernel"})
}

func (s *Server) getHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) getQuote(c *gin.Context) {
	snapshot, err := s.market.GetSnapshot(c.Request.Context(), c.Param("ticker"))
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no data found for ticker"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "market data unavailable"})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

func (s *Server) getHistory(c *gin.Context) {
	period := c.DefaultQuery("period", "6mo")
	hist, err := s.market.GetHistory(c.Request.Context(), c.Param("ticker"), period)
	if err != nil {
		if errors.Is(err, marketdata.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no historical data found for ticker"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "market data unavailable"})
		return
	}
	c.JSON(http.StatusOK, hist)
}

func (s *Server) getPrediction(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("days", "7"))
	if err != nil || days < 1 || days > 90 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 90"})
		return
	}

	hist, err := s.market.GetHistory(c.Request.Context(), c.Param("ticker"), "1mo")
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "insufficient data for prediction"})
		return
	}

	forecast, err := quant.Predict(hist, days, nil)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "insufficient data for prediction"})
		return
	}
	c.JSON(http.StatusOK, forecast)
}

// modelConfigPayload is the wire shape of one model config. Keys come
// in on this type only and never leave the process in any response.
type modelConfigPayload struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	APIKey   string `json:"api_key"`
	Model    string `json:"model"`
	Enabled  *bool  `json:"enabled"`
	Judge    bool   `json:"judge"`
}

type analyzeRequest struct {
	Ticker       string               `json:"ticker" binding:"required"`
	FocusAreas   []string             `json:"focus_areas"`
	ModelConfigs []modelConfigPayload `json:"model_configs"`
	QuantMode    bool                 `json:"quant_mode"`
}

// buildDebateRequest resolves the model-config fan-out set for one
// request: explicit body configs win, then header overrides, then the
// server's default backend.
func (s *Server) buildDebateRequest(c *gin.Context, req analyzeRequest) debate.Request {
	configs := make([]models.ModelConfig, 0, len(req.ModelConfigs))
	for i, p := range req.ModelConfigs {
		enabled := true
		if p.Enabled != nil {
			enabled = *p.Enabled
		}
		provider := p.Provider
		if provider == "" {
			provider = s.cfg.LLMProvider
		}
		cfg := models.ModelConfig{
			ID:       p.ID,
			Name:     p.Name,
			Provider: provider,
			BaseURL:  p.BaseURL,
			APIKey:   p.APIKey,
			Model:    p.Model,
			Enabled:  enabled,
			Judge:    p.Judge,
		}
		if cfg.ID == "" {
			cfg.ID = "config-" + strconv.Itoa(i)
		}
		if cfg.Name == "" {
			cfg.Name = cfg.Model
		}
		configs = append(configs, cfg)
	}

	if len(configs) == 0 {
		cfg := models.ModelConfig{
			ID:       "default",
			Provider: s.cfg.LLMProvider,
			BaseURL:  s.cfg.LLMBaseURL,
			APIKey:   s.cfg.LLMAPIKey,
			Model:    s.cfg.LLMModel,
			Enabled:  true,
		}
		if v := c.GetHeader("X-LLM-API-Key"); v != "" {
			cfg.APIKey = v
		}
		if v := c.GetHeader("X-LLM-Base-URL"); v != "" {
			cfg.BaseURL = v
		}
		if v := c.GetHeader("X-LLM-Model"); v != "" {
			cfg.Model = v
		}
		cfg.Name = cfg.Model
		configs = append(configs, cfg)
	}

	return debate.Request{
		Ticker:     strings.ToUpper(strings.TrimSpace(req.Ticker)),
		FocusAreas: req.FocusAreas,
		Configs:    configs,
		Quant:      req.QuantMode,
	}
}

func (s *Server) postAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	report, err := s.orch.Analyze(c.Request.Context(), s.buildDebateRequest(c, req))
	if err != nil {
		status, msg := classifyDebateError(err)
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ticker":             report.Ticker,
		"price_context":      report.PriceContext,
		"summary":            report.Summary,
		"bullish_case":       report.BullishCase,
		"bearish_case":       report.BearishCase,
		"confidence_score":   report.ConfidenceScore,
		"sentiment_analysis": report.SentimentAnalysis,
	})
}

func (s *Server) postAnalyzeStream(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	// The run is detached from the request context: a client that
	// disconnects mid-stream stops receiving events, but in-flight
	// provider calls are allowed to finish.
	runCtx := context.WithoutCancel(c.Request.Context())
	events := s.orch.Run(runCtx, s.buildDebateRequest(c, req))

	writer := newEventStreamWriter(c)
	for ev := range events {
		if !writer.WriteEvent(ev) {
			logger.Info(runCtx, "stream client disconnected, draining remaining events", "ticker", req.Ticker)
			// Keep draining so the orchestrator can finish.
			for range events {
			}
			return
		}
		if ev.Terminal() {
			return
		}
	}
}

func classifyDebateError(err error) (int, string) {
	var stageErr *debate.StageExhaustedError
	switch {
	case errors.Is(err, debate.ErrContextUnavailable):
		return http.StatusNotFound, "market context unavailable for ticker"
	case errors.As(err, &stageErr):
		return http.StatusBadGateway, stageErr.Error()
	default:
		return http.StatusBadRequest, err.Error()
	}
}

func (s *Server) getWatchlist(c *gin.Context) {
	entries, err := s.watch.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load watchlist"})
		return
	}
	if entries == nil {
		entries = []watchlist.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (s *Server) postWatchlist(c *gin.Context) {
	var body struct {
		Ticker string `json:"ticker" binding:"required"`
		Name   string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}
	entry, err := s.watch.Add(c.Request.Context(), body.Ticker, body.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update watchlist"})
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) deleteWatchlist(c *gin.Context) {
	if err := s.watch.Remove(c.Request.Context(), c.Param("ticker")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update watchlist"})
		return
	}
	c.Status(http.StatusNoContent)
}
