package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	boterrors "github.com/ducminhle1904/smart-ea/internal/errors"
	"github.com/ducminhle1904/smart-ea/internal/journal"
	"github.com/ducminhle1904/smart-ea/internal/logger"
	"github.com/ducminhle1904/smart-ea/internal/strategy"
)

const (
	defaultBalance    = 10000.0
	defaultConfidence = 1.0
	dashboardLogs     = 20
)

type lotRequest struct {
	Balance      *float64 `json:"balance"`
	RiskPerTrade *float64 `json:"risk_per_trade"`
	Confidence   *float64 `json:"confidence"`
}

type updateRequest struct {
	Strategy string   `json:"strategy" binding:"required"`
	Win      *bool    `json:"win" binding:"required"`
	Profit   *float64 `json:"profit"`
}

type logRequest struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message" binding:"required"`
	Data    map[string]interface{} `json:"data"`
}

func (s *Server) handleStrategy(c *gin.Context) {
	rec, err := s.advisor.Recommend(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy":   rec.Strategy,
		"confidence": rec.Confidence,
		"signals":    rec.Signals,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.advisor.Status())
}

func (s *Server) handleRiskLot(c *gin.Context) {
	var req lotRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	balance := valueOr(req.Balance, defaultBalance)
	riskPerTrade := valueOr(req.RiskPerTrade, s.riskPerTrade)
	confidence := valueOr(req.Confidence, defaultConfidence)

	sizing, err := s.advisor.SizeLot(c.Request.Context(), balance, riskPerTrade, confidence)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sizing)
}

func (s *Server) handleUpdate(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	name, err := strategy.ParseName(req.Strategy)
	if err != nil {
		s.fail(c, err)
		return
	}

	rec, err := s.advisor.RecordOutcome(c.Request.Context(), name, *req.Win, valueOr(req.Profit, 0))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "updated",
		"strategy": rec,
		"risk":     s.advisor.Engine().Snapshot(),
	})
}

func (s *Server) handleLog(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "journal not configured"})
		return
	}
	var req logRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	level := logger.LogLevelInfo
	if req.Level != "" {
		level = logger.ParseLevel(req.Level)
	}

	if err := s.events.Log(c.Request.Context(), level, req.Message, req.Data); err != nil {
		s.fail(c, boterrors.WrapError(err, boterrors.ErrorCategoryStorage, "api", "log"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "logged"})
}

func (s *Server) handleDashboard(c *gin.Context) {
	st := s.advisor.Status()
	var logs []journal.Event
	if s.events != nil {
		var err error
		if logs, err = s.events.Recent(c.Request.Context(), dashboardLogs); err != nil {
			s.logger.Warning("dashboard: recent events unavailable: %v", err)
		}
	}
	c.HTML(http.StatusOK, "dashboard", gin.H{
		"Strategies": st.Strategies,
		"Risk":       st.Risk,
		"Logs":       logs,
	})
}

func (s *Server) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, boterrors.ErrInvalidStrategy),
		errors.Is(err, boterrors.ErrInvalidBalance),
		errors.Is(err, boterrors.ErrValidation):
		status = http.StatusBadRequest
	default:
		s.logger.LogError(fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path), err)
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
