package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"praxis/internal/csvseries"
	"praxis/internal/metrics"
	"praxis/internal/model"
	"praxis/internal/risk"
	"praxis/internal/stats"
)

// calculateRiskRequest mirrors model.SimulationRequest with pointers so that
// absent fields can be told apart from zero values.
type calculateRiskRequest struct {
	InitialInvestment *float64 `json:"initial_investment" validate:"required"`
	ExpectedReturn    *float64 `json:"expected_return" validate:"required"`
	Volatility        *float64 `json:"volatility" validate:"required"`
	TimeHorizon       *int     `json:"time_horizon" validate:"required"`
}

func (r calculateRiskRequest) toModel() model.SimulationRequest {
	return model.SimulationRequest{
		InitialInvestment: *r.InitialInvestment,
		ExpectedReturn:    *r.ExpectedReturn,
		Volatility:        *r.Volatility,
		TimeHorizon:       *r.TimeHorizon,
	}
}

func validationBody(verrs risk.ValidationErrors) gin.H {
	return gin.H{"error": "validation failed", "details": verrs}
}

func (s *Server) countSimulation(outcome string) {
	if s.metrics != nil {
		s.metrics.Simulations.WithLabelValues(outcome).Inc()
	}
}

func (s *Server) countVolatility(source, outcome string) {
	if s.metrics != nil {
		s.metrics.VolatilityEstimates.WithLabelValues(source, outcome).Inc()
	}
}

// evaluate turns a raw JSON simulation request into a status and body. It is
// shared by the HTTP and websocket endpoints.
func (s *Server) evaluate(data []byte) (int, any) {
	var req calculateRiskRequest
	if err := json.Unmarshal(data, &req); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			s.countSimulation(metrics.OutcomeInvalid)
			return http.StatusUnprocessableEntity, validationBody(risk.ValidationErrors{{
				Field:   typeErr.Field,
				Tag:     "type",
				Value:   typeErr.Value,
				Message: fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type),
			}})
		}
		s.countSimulation(metrics.OutcomeInvalid)
		return http.StatusBadRequest, gin.H{"error": "malformed JSON body: " + err.Error()}
	}
	if err := s.engine.Validator().Struct(req); err != nil {
		return s.simulationError(err)
	}

	start := time.Now()
	report, err := s.engine.Run(req.toModel())
	if err != nil {
		return s.simulationError(err)
	}
	if !encodable(report) {
		s.countSimulation(metrics.OutcomeInvalid)
		return http.StatusUnprocessableEntity, validationBody(risk.ValidationErrors{{
			Field:   "time_horizon",
			Tag:     "finite",
			Value:   strconv.Itoa(*req.TimeHorizon),
			Message: "simulated values overflow the float64 range; reduce initial_investment, expected_return, volatility or time_horizon",
		}})
	}
	s.countSimulation(metrics.OutcomeOK)
	if s.metrics != nil {
		s.metrics.SimulationDuration.Observe(time.Since(start).Seconds())
	}
	return http.StatusOK, report
}

// encodable reports whether every number in report can be written as JSON.
func encodable(report *model.RiskReport) bool {
	m := report.RiskMetrics
	values := []float64{m.Mean, m.Median, m.P5, m.P95, m.StdDev}
	for _, p := range report.SimulationResults {
		values = append(values, p.FinalValue)
	}
	return len(stats.Finite(values)) == len(values)
}

func (s *Server) simulationError(err error) (int, any) {
	if verrs, ok := risk.AsValidation(err); ok {
		s.countSimulation(metrics.OutcomeInvalid)
		return http.StatusUnprocessableEntity, validationBody(verrs)
	}
	s.countSimulation(metrics.OutcomeError)
	s.logger.Error("Simulation failed", "error", err)
	return http.StatusInternalServerError, gin.H{"error": "simulation failed"}
}

func (s *Server) calculateRisk(c *gin.Context) {
	data, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read request body"})
		return
	}
	status, body := s.evaluate(data)
	c.JSON(status, body)
}

func (s *Server) preflight(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "CORS preflight successful"})
}

// readUpload extracts the configured column from the multipart "file" part.
// It writes the error response itself and returns ok=false on failure, except
// for a missing column, which is reported through missing.
func (s *Server) readUpload(c *gin.Context) (series model.ReturnSeries, missing bool, ok bool) {
	if limit := s.cfg.Upload.MaxBytes; limit > 0 {
		if c.Request.ContentLength > limit {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", limit)})
			return nil, false, false
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	}
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit)})
			return nil, false, false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' is required"})
		return nil, false, false
	}

	series, err = readSeries(header, s.column())
	switch {
	case err == nil:
		return series, false, true
	case errors.Is(err, csvseries.ErrMissingColumn):
		return nil, true, false
	}

	var rowErr *csvseries.RowError
	if errors.As(err, &rowErr) {
		c.JSON(http.StatusUnprocessableEntity, validationBody(risk.ValidationErrors{{
			Field:   rowErr.Column,
			Tag:     "number",
			Value:   rowErr.Value,
			Message: rowErr.Error(),
		}}))
		return nil, false, false
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid CSV: " + err.Error()})
	return nil, false, false
}

func readSeries(header *multipart.FileHeader, column string) (model.ReturnSeries, error) {
	f, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()
	return csvseries.Read(f, column)
}

func (s *Server) column() string {
	if s.cfg.Upload.Column == "" {
		return risk.SeriesField
	}
	return s.cfg.Upload.Column
}

func (s *Server) uploadCSV(c *gin.Context) {
	series, missing, ok := s.readUpload(c)
	if missing {
		s.countVolatility("upload", metrics.OutcomeInvalid)
		c.JSON(http.StatusOK, gin.H{"error": fmt.Sprintf("CSV must contain a '%s' column.", s.column())})
		return
	}
	if !ok {
		s.countVolatility("upload", metrics.OutcomeInvalid)
		return
	}

	vol, err := risk.EstimateVolatility(series)
	if err != nil {
		s.volatilityError(c, "upload", err)
		return
	}
	s.countVolatility("upload", metrics.OutcomeOK)
	c.JSON(http.StatusOK, gin.H{"calculated_volatility": vol})
}

func (s *Server) volatilityError(c *gin.Context, source string, err error) {
	if verrs, ok := risk.AsValidation(err); ok {
		s.countVolatility(source, metrics.OutcomeInvalid)
		c.JSON(http.StatusUnprocessableEntity, validationBody(verrs))
		return
	}
	s.countVolatility(source, metrics.OutcomeError)
	s.logger.Error("Volatility estimate failed", "source", source, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "volatility estimate failed"})
}

type symbolParams struct {
	Symbol string `uri:"symbol" json:"symbol" validate:"required,max=32,excludesall=/ "`
}

type seriesQuery struct {
	Limit int `form:"limit" json:"limit" validate:"gte=0"`
}

func (s *Server) bindSymbol(c *gin.Context) (string, bool) {
	var p symbolParams
	if err := c.ShouldBindUri(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	if err := s.engine.Validator().Struct(p); err != nil {
		if verrs, ok := risk.AsValidation(err); ok {
			c.JSON(http.StatusUnprocessableEntity, validationBody(verrs))
			return "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return "", false
	}
	return p.Symbol, true
}

func (s *Server) storeSeries(c *gin.Context) {
	symbol, ok := s.bindSymbol(c)
	if !ok {
		return
	}
	series, missing, ok := s.readUpload(c)
	if missing {
		c.JSON(http.StatusUnprocessableEntity, validationBody(risk.ValidationErrors{{
			Field:   s.column(),
			Tag:     "required",
			Message: fmt.Sprintf("CSV must contain a '%s' column.", s.column()),
		}}))
		return
	}
	if !ok {
		return
	}
	if len(series) == 0 {
		c.JSON(http.StatusUnprocessableEntity, validationBody(risk.ValidationErrors{{
			Field:   s.column(),
			Tag:     "min",
			Value:   "0",
			Message: fmt.Sprintf("%s must contain at least 1 observation", s.column()),
		}}))
		return
	}

	now := time.Now()
	obs := make([]model.PriceObservation, len(series))
	for i, level := range series {
		obs[i] = model.PriceObservation{Symbol: symbol, Level: level, ObservedAt: now}
	}
	if err := s.repo.AppendObservations(c.Request.Context(), obs); err != nil {
		s.logger.Error("Failed to store series", "symbol", symbol, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store series"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"symbol": symbol, "stored": len(obs)})
}

func (s *Server) seriesVolatility(c *gin.Context) {
	symbol, ok := s.bindSymbol(c)
	if !ok {
		return
	}
	var q seriesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusUnprocessableEntity, validationBody(risk.ValidationErrors{{
			Field:   "limit",
			Tag:     "type",
			Value:   c.Query("limit"),
			Message: "limit must be an integer",
		}}))
		return
	}
	if err := s.engine.Validator().Struct(q); err != nil {
		s.volatilityError(c, "stored", err)
		return
	}

	series, err := s.repo.LoadSeries(c.Request.Context(), symbol, q.Limit)
	if err != nil {
		s.volatilityError(c, "stored", fmt.Errorf("load series %s: %w", symbol, err))
		return
	}
	vol, err := risk.EstimateVolatility(series)
	if err != nil {
		s.volatilityError(c, "stored", err)
		return
	}
	s.countVolatility("stored", metrics.OutcomeOK)
	c.JSON(http.StatusOK, gin.H{
		"symbol":                symbol,
		"observations":          len(series),
		"calculated_volatility": vol,
	})
}
