package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pair-analytics/src/analysis"
	"pair-analytics/src/helpers"
	"pair-analytics/src/models"
)

// -----------------------------------------------------------------------------
// Request parsing
// -----------------------------------------------------------------------------

// parsePairRequest reads the analytics query string, filling blanks from the
// analytics defaults. Malformed numbers are InvalidParameter.
func (s *AnalyticsServer) parsePairRequest(c *gin.Context) (analysis.PairRequest, error) {
	def := s.Config.Analytics
	req := analysis.PairRequest{
		SymbolX:   c.DefaultQuery("symbol_x", def.DefaultSymbolX),
		SymbolY:   c.DefaultQuery("symbol_y", def.DefaultSymbolY),
		Timeframe: c.DefaultQuery("timeframe", def.DefaultTimeframe),
	}

	var err error
	if req.ZWindow, err = queryInt(c, "z_window", 0); err != nil {
		return req, err
	}
	if req.CorrWindow, err = queryInt(c, "corr_window", 0); err != nil {
		return req, err
	}
	lookback, err := queryInt(c, "lookback_minutes", def.LookbackMinutes)
	if err != nil {
		return req, err
	}
	req.Lookback = time.Duration(lookback) * time.Minute

	if raw := c.Query("stationarity"); raw != "" {
		if req.WithStationarity, err = strconv.ParseBool(raw); err != nil {
			return req, helpers.NewError(helpers.KindInvalidParameter, "request", "stationarity must be a boolean, got %q", raw)
		}
	}
	return req, nil
}

func queryInt(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, helpers.NewError(helpers.KindInvalidParameter, "request", "%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *AnalyticsServer) getHealth(c *gin.Context) {
	st := models.MHealthStatus{Status: "ok", Store: "unknown", Backend: s.Config.Storage.DBType}
	if s.Control != nil {
		st = s.Control.CheckHealth(c.Request.Context())
	}

	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":        st.Status,
		"store":         st.Store,
		"backend":       st.Backend,
		"sources":       st.Sources,
		"connections":   s.clientCount.Load(),
		"subscriptions": s.Refresher.Active(),
	})
}

// -----------------------------------------------------------------------------

func (s *AnalyticsServer) getConfig(c *gin.Context) {
	symbols := s.Config.Ingestion.Symbols
	if s.Control != nil {
		symbols = s.Control.Symbols()
	}
	a := s.Config.Analytics
	c.JSON(http.StatusOK, gin.H{
		"timeframes": analysis.Timeframes(),
		"symbols":    symbols,
		"defaults": gin.H{
			"symbol_x":     a.DefaultSymbolX,
			"symbol_y":     a.DefaultSymbolY,
			"timeframe":    a.DefaultTimeframe,
			"z_window":     a.ZWindow,
			"corr_window":  a.CorrWindow,
			"entry_zscore": a.EntryZScore,
		},
		"refresh": s.Config.Refresh,
	})
}

// -----------------------------------------------------------------------------

func (s *AnalyticsServer) getAnalytics(c *gin.Context) {
	req, err := s.parsePairRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	ttl := s.Refresher.Interval(0)
	payload, _, err := s.Refresher.Compute(c.Request.Context(), req, ttl)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", payload)
}

// -----------------------------------------------------------------------------

func (s *AnalyticsServer) exportCSV(c *gin.Context) {
	req, err := s.parsePairRequest(c)
	if err != nil {
		writeError(c, err)
		return
	}

	result, err := s.Runner.Run(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("%s_%s_%s.csv", result.SymbolX, result.SymbolY,
		strings.ReplaceAll(strings.ToLower(result.Timeframe), " ", ""))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)
	if err := analysis.WriteCSV(c.Writer, result); err != nil {
		s.Logger.Error("CSV export failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

func (s *AnalyticsServer) getSources(c *gin.Context) {
	sources := []models.MSourceStatus{}
	if s.Control != nil {
		if list := s.Control.ListSources(); list != nil {
			sources = list
		}
	}
	c.JSON(http.StatusOK, gin.H{"sources": sources})
}

// -----------------------------------------------------------------------------

type symbolsBody struct {
	Symbols []string `json:"symbols"`
}

func (s *AnalyticsServer) putSymbols(c *gin.Context) {
	if s.Control == nil {
		c.JSON(http.StatusNotImplemented, &models.MErrorBody{Kind: "Unavailable", Message: "no ingestion control attached"})
		return
	}

	var body symbolsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, &models.MErrorBody{Kind: string(helpers.KindInvalidParameter), Message: err.Error()})
		return
	}

	if err := s.Control.UpdateSymbols(body.Symbols); err != nil {
		code := http.StatusInternalServerError
		if status.Code(err) == codes.InvalidArgument {
			code = http.StatusBadRequest
		}
		c.JSON(code, &models.MErrorBody{Kind: status.Code(err).String(), Message: status.Convert(err).Message()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"symbols": s.Control.Symbols()})
}
