package ui

import (
	"context"
	"errors"
	"net/http"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	apperrors "github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/errors"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/profiling"

	"github.com/gin-gonic/gin"
)

// reduceBody is a ReduceResponse, optionally with its fidelity report.
type reduceBody struct {
	contracts.ReduceResponse
	Report *profiling.FidelityReport `json:"report,omitempty"`
}

func (s *Server) handleReduce(c *gin.Context) {
	var req contracts.ReduceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.InvalidInput("invalid reduce request: "+err.Error()))
		return
	}
	s.reduce(c, req)
}

func (s *Server) handleRawReduce(c *gin.Context) {
	var raw contracts.RawReduceRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		s.respondError(c, apperrors.InvalidInput("invalid reduce request: "+err.Error()))
		return
	}
	s.reduce(c, s.engine.NormalizeReduce(raw))
}

func (s *Server) reduce(c *gin.Context, req contracts.ReduceRequest) {
	reply, err := s.pool.Do(c.Request.Context(), consumerFrom(c), contracts.Envelope{
		Kind:   contracts.KindReduce,
		Reduce: &req,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if reply.Error != "" || reply.Reduce == nil {
		s.respondError(c, apperrors.InternalError(reply.Error))
		return
	}

	body := reduceBody{ReduceResponse: *reply.Reduce}
	if c.Query("report") == "1" {
		report, err := s.engine.Fidelity(req, *reply.Reduce)
		if err != nil {
			s.logger.Warn("fidelity report failed: %v", err)
		} else {
			body.Report = &report
		}
	}
	c.JSON(http.StatusOK, body)
}

func (s *Server) handleReconstruct(c *gin.Context) {
	var req contracts.ReconstructRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, apperrors.InvalidInput("invalid reconstruct request: "+err.Error()))
		return
	}
	s.reconstruct(c, req)
}

func (s *Server) handleRawReconstruct(c *gin.Context) {
	var raw contracts.RawReconstructRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		s.respondError(c, apperrors.InvalidInput("invalid reconstruct request: "+err.Error()))
		return
	}
	s.reconstruct(c, s.engine.NormalizeReconstruct(raw))
}

func (s *Server) reconstruct(c *gin.Context, req contracts.ReconstructRequest) {
	reply, err := s.pool.Do(c.Request.Context(), consumerFrom(c), contracts.Envelope{
		Kind:        contracts.KindReconstruct,
		Reconstruct: &req,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	if reply.Error != "" || reply.Reconstruct == nil {
		s.respondError(c, apperrors.InternalError(reply.Error))
		return
	}
	c.JSON(http.StatusOK, reply.Reconstruct)
}

// respondError maps application error codes onto HTTP statuses
func (s *Server) respondError(c *gin.Context, err error) {
	code := apperrors.GetCode(err)

	status := http.StatusInternalServerError
	switch {
	case code == apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case code == apperrors.CodeBusy, code == apperrors.CodeQueueClosed:
		status = http.StatusServiceUnavailable
		c.Header("Retry-After", "1")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusRequestTimeout
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	} else {
		s.logger.Debug("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}
