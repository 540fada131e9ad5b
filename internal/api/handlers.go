package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"smc-advisor/internal/analysis"
	"smc-advisor/internal/autopilot"
	"smc-advisor/internal/confluence"
	"smc-advisor/internal/database"
	"smc-advisor/internal/indicators"
	"smc-advisor/internal/logging"
	"smc-advisor/internal/market"
	"smc-advisor/internal/marketdata"
	"smc-advisor/internal/patterns"
)

const (
	maxCandleLimit   = 1000
	maxAnalysisTFs   = 4
	patternLookback  = 5
	healthTimeout    = 2 * time.Second
	defaultListLimit = 50
)

// handleHealth returns server health status
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	dbStatus := "disabled"
	if s.deps.Store != nil {
		dbStatus = "healthy"
		if err := s.deps.Store.HealthCheck(ctx); err != nil {
			logging.FromContext(c.Request.Context()).WithError(err).Warn("Database health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"database":          dbStatus,
		"websocket_clients": s.hub.GetClientCount(),
		"time":              time.Now().UTC().Format(time.RFC3339),
	})
}

// handleListModalities returns the configured modality profiles
func (s *Server) handleListModalities(c *gin.Context) {
	type modalityInfo struct {
		autopilot.ModalityProfile
		Description string `json:"description"`
	}

	var out []modalityInfo
	for _, m := range autopilot.AllModalities() {
		p, ok := s.deps.Tuning.Profiles[m]
		if !ok {
			continue
		}
		out = append(out, modalityInfo{ModalityProfile: p, Description: autopilot.GetModalityDescription(m)})
	}
	successResponse(c, out)
}

// ============================================================================
// TRADES
// ============================================================================

type generateRequest struct {
	Modality string `json:"modality" binding:"required"`
}

// handleGenerateTrade generates a trade for the requested modality
func (s *Server) handleGenerateTrade(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: modality is required")
		return
	}
	modality, ok := autopilot.ValidateModality(req.Modality)
	if !ok {
		errorResponse(c, http.StatusBadRequest, "Unknown modality: "+req.Modality)
		return
	}

	log := logging.FromContext(c.Request.Context()).WithField("modality", string(modality))
	trade, err := s.deps.Generator.Generate(c.Request.Context(), modality)
	if err != nil {
		switch {
		case errors.Is(err, autopilot.ErrUnknownModality):
			errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, autopilot.ErrNoCandidate):
			log.WithError(err).Warn("No trade candidate available")
			errorResponse(c, http.StatusServiceUnavailable, "No candidate produced usable market data")
		default:
			log.WithError(err).Error("Trade generation failed")
			errorResponse(c, http.StatusInternalServerError, "Trade generation failed")
		}
		return
	}

	if s.deps.EventBus != nil {
		s.deps.EventBus.PublishTradeGenerated(trade.ID, trade.Symbol, string(trade.Direction),
			string(trade.Modality), trade.EntryPrice, trade.SignalStrength, trade.Caution)
	}
	successResponse(c, trade)
}

// handleListTrades returns stored trades, newest first
func (s *Server) handleListTrades(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	trades, err := s.deps.Store.ListTradeCandidates(c.Request.Context(), limit)
	if err != nil {
		logging.FromContext(c.Request.Context()).WithError(err).Error("Failed to list trades")
		errorResponse(c, http.StatusInternalServerError, "Failed to list trades")
		return
	}
	successResponse(c, trades)
}

// handleGetTrade returns one stored trade
func (s *Server) handleGetTrade(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}

	trade, err := s.deps.Store.GetTradeCandidate(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			errorResponse(c, http.StatusNotFound, "Trade not found")
			return
		}
		logging.FromContext(c.Request.Context()).WithError(err).Error("Failed to get trade")
		errorResponse(c, http.StatusInternalServerError, "Failed to get trade")
		return
	}
	successResponse(c, trade)
}

// ============================================================================
// REVERSALS
// ============================================================================

// handleEvaluateReversal evaluates an open position for a reversal
func (s *Server) handleEvaluateReversal(c *gin.Context) {
	var pos autopilot.Position
	if err := c.ShouldBindJSON(&pos); err != nil {
		errorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	pos.Symbol = strings.ToUpper(strings.TrimSpace(pos.Symbol))
	pos.Side = market.Side(strings.ToUpper(string(pos.Side)))
	if pos.Symbol == "" {
		errorResponse(c, http.StatusBadRequest, "symbol is required")
		return
	}
	if m, ok := autopilot.ValidateModality(string(pos.Modality)); ok {
		pos.Modality = m
	}

	log := logging.FromContext(c.Request.Context()).WithFields(map[string]interface{}{
		"symbol": pos.Symbol,
		"side":   string(pos.Side),
	})
	signal, err := s.deps.Reversals.Evaluate(c.Request.Context(), pos)
	if err != nil {
		switch {
		case errors.Is(err, autopilot.ErrInvalidPosition), errors.Is(err, autopilot.ErrUnknownModality):
			errorResponse(c, http.StatusBadRequest, err.Error())
		default:
			log.WithError(err).Error("Reversal evaluation failed")
			errorResponse(c, http.StatusBadGateway, "Market data unavailable")
		}
		return
	}

	if s.deps.EventBus != nil {
		s.deps.EventBus.PublishReversal(signal.ID, signal.Symbol, string(signal.Side),
			string(signal.RecommendedAction), signal.Confidence, signal.DetectedReversal, signal.Signals)
	}
	successResponse(c, signal)
}

// handleListReversals returns stored reversal evaluations
func (s *Server) handleListReversals(c *gin.Context) {
	if !s.requireStore(c) {
		return
	}
	limit, ok := queryLimit(c)
	if !ok {
		return
	}

	symbol := strings.ToUpper(c.Query("symbol"))
	signals, err := s.deps.Store.ListReversalSignals(c.Request.Context(), symbol, limit)
	if err != nil {
		logging.FromContext(c.Request.Context()).WithError(err).Error("Failed to list reversal signals")
		errorResponse(c, http.StatusInternalServerError, "Failed to list reversal signals")
		return
	}
	successResponse(c, signals)
}

// ============================================================================
// ANALYSIS
// ============================================================================

// IntervalAnalysis is the full reading of one symbol on one interval
type IntervalAnalysis struct {
	Interval   string                         `json:"interval"`
	Candles    int                            `json:"candles"`
	LastClose  float64                        `json:"last_close"`
	Indicators indicators.TechnicalIndicators `json:"indicators"`
	Sentiment  confluence.Sentiment           `json:"sentiment"`
	Snapshot   analysis.Snapshot              `json:"snapshot"`
	Patterns   []patterns.DetectedPattern     `json:"patterns"`
}

// handleAnalysis returns indicators, sentiment and zones for a symbol on one
// or more intervals (?interval=1h,4h)
func (s *Server) handleAnalysis(c *gin.Context) {
	symbol := strings.ToUpper(strings.TrimSpace(c.Param("symbol")))

	timeframes, err := parseTimeframes(c.DefaultQuery("interval", string(marketdata.TF1h)))
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	limit := s.config.DefaultCandleLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxCandleLimit {
			errorResponse(c, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	log := logging.FromContext(c.Request.Context()).WithField("symbol", symbol)
	data, err := s.deps.Analysis.FetchTimeframes(c.Request.Context(), symbol, timeframes, limit)
	if err != nil {
		log.WithError(err).Error("Failed to fetch candles for analysis")
		errorResponse(c, http.StatusBadGateway, "Market data unavailable")
		return
	}

	results := make(map[string]IntervalAnalysis, len(timeframes))
	for _, tf := range timeframes {
		res, err := s.analyze(string(tf), data.Data[tf])
		if err != nil {
			log.WithError(err).Error("Exchange returned invalid candles", "interval", string(tf))
			errorResponse(c, http.StatusBadGateway, "Invalid candle data for "+string(tf))
			return
		}
		results[string(tf)] = res
	}

	successResponse(c, gin.H{
		"symbol":    symbol,
		"timestamp": data.Timestamp,
		"intervals": results,
	})
}

// analyze derives everything for one candle series
func (s *Server) analyze(interval string, candles []market.Candle) (IntervalAnalysis, error) {
	snap, err := analysis.Analyze(candles, s.deps.Tuning.Params)
	if err != nil {
		return IntervalAnalysis{}, err
	}
	ind := indicators.Compute(candles, s.deps.Tuning.Indicators)
	sentiment := s.scorer.Score(confluence.Input{
		Candles:    candles,
		Indicators: ind,
		Snapshot:   &snap,
	})

	res := IntervalAnalysis{
		Interval:   interval,
		Candles:    len(candles),
		Indicators: ind,
		Sentiment:  sentiment,
		Snapshot:   snap,
		Patterns:   []patterns.DetectedPattern{},
	}
	if last, ok := market.Last(candles); ok {
		res.LastClose = last.Close
	}
	for _, p := range patterns.Detect(candles) {
		if p.Index >= len(candles)-patternLookback {
			res.Patterns = append(res.Patterns, p)
		}
	}
	return res, nil
}

func parseTimeframes(raw string) ([]marketdata.Timeframe, error) {
	var out []marketdata.Timeframe
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		if !marketdata.ValidTimeframe(part) {
			return nil, errors.New("unsupported interval: " + part)
		}
		seen[part] = true
		out = append(out, marketdata.Timeframe(part))
	}
	if len(out) == 0 {
		return nil, errors.New("at least one interval is required")
	}
	if len(out) > maxAnalysisTFs {
		return nil, errors.New("at most 4 intervals per request")
	}
	return out, nil
}

// requireStore answers 503 when persistence is not configured
func (s *Server) requireStore(c *gin.Context) bool {
	if s.deps.Store == nil {
		errorResponse(c, http.StatusServiceUnavailable, "Trade history requires a database")
		return false
	}
	return true
}

// queryLimit parses ?limit=, answering 400 on garbage
func queryLimit(c *gin.Context) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return defaultListLimit, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		errorResponse(c, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}
