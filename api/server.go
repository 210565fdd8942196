// Package api implements the read-only status/admin HTTP surface: current
// clock phase, today's Pick (if any), the Trading State Machine's state,
// and recent trade log entries. Grounded on SynapseStrike/api/tactics.go's
// handler calling convention — a *Server holding its dependencies,
// handleX(c *gin.Context) methods, gin.H JSON envelopes — adapted from
// tactic CRUD to a read-only status surface (§4.9/§4.8 expose no mutating
// HTTP operations; only the Runner mutates state).
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"daytrader/clock"
	"daytrader/metrics"
	"daytrader/prediction"
	"daytrader/store"
	"daytrader/trader"
)

// StatusProvider is the read-only view the Runner exposes into its live
// state; kept as an interface so this package never imports runner/
// (avoiding an import cycle, since runner/ is what wires api/ up).
type StatusProvider interface {
	CurrentPhase() clock.Signal
	CurrentDate() int
	TodayPick() *prediction.Pick
	MachineState() trader.State
}

// Server holds the engine's read-only dependencies and builds the gin
// router (§6 "a read-only status/admin HTTP surface").
type Server struct {
	status StatusProvider
	trades *store.TradeLog
}

// NewServer wires a Server against the Runner's live status and the trade
// log store.
func NewServer(status StatusProvider, trades *store.TradeLog) *Server {
	return &Server{status: status, trades: trades}
}

// Router builds the gin engine with all read-only routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealth)
	r.GET("/status", s.handleStatus)
	r.GET("/trades", s.handleTrades)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
	return r
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleStatus reports the clock phase, today's date, any Pick, and the
// State Machine's current state — the engine's whole externally visible
// state in one read-only call.
func (s *Server) handleStatus(c *gin.Context) {
	pick := s.status.TodayPick()
	var pickJSON gin.H
	if pick != nil {
		pickJSON = gin.H{"stock": pick.Stock, "score": pick.Score}
	}
	c.JSON(http.StatusOK, gin.H{
		"phase":         s.status.CurrentPhase().String(),
		"date":          s.status.CurrentDate(),
		"pick":          pickJSON,
		"machine_state": s.status.MachineState().String(),
	})
}

// handleTrades lists recent trade log rows, newest first, optionally
// limited by a ?limit= query parameter (default 50).
func (s *Server) handleTrades(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			limit = n
		}
	}
	trades, err := s.trades.Recent(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"trades": trades})
}

func parsePositiveInt(s string) (int, error) {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, errNotANumber
		}
		n = n*10 + int(r-'0')
	}
	if n <= 0 {
		return 0, errNotANumber
	}
	return n, nil
}

var errNotANumber = httpParseErr("not a positive integer")

type httpParseErr string

func (e httpParseErr) Error() string { return string(e) }
