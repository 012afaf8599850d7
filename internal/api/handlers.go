package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/medrag-mcp-server/internal/caching"
	"github.com/medrag-mcp-server/internal/domain"
	"github.com/medrag-mcp-server/internal/history"
	"github.com/medrag-mcp-server/internal/middleware"
	"github.com/medrag-mcp-server/internal/service"
)

// ResolveRequest is the body of POST /api/v1/resolve. A missing or blank
// query is reported as EMPTY_QUERY by the resolver.
type ResolveRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

// ResolveResponse is a resolution plus search links for further reading.
type ResolveResponse struct {
	*domain.ResolutionResult
	service.SearchLinks
	Query     string `json:"query"`
	HistoryID string `json:"history_id,omitempty"`
}

// StatsResponse reports usage of the cascade.
type StatsResponse struct {
	Conditions int                    `json:"conditions"`
	Aliases    int                    `json:"aliases"`
	Queries    int64                  `json:"queries"`
	ByStage    map[domain.Stage]int64 `json:"by_stage,omitempty"`
	Cache      *caching.Stats         `json:"cache,omitempty"`
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	catalog := s.resolver.Catalog()
	status := "healthy"
	code := http.StatusOK

	checks := gin.H{
		"knowledge": gin.H{
			"conditions": catalog.Base.Len(),
			"aliases":    catalog.Aliases.Len(),
			"source":     catalog.Source,
		},
	}
	if s.cache != nil {
		healthy := s.cache.IsHealthy(c.Request.Context())
		checks["cache"] = gin.H{"healthy": healthy, "stats": s.cache.Stats()}
		if !healthy {
			status = "degraded"
		}
	}
	checks["history"] = gin.H{"enabled": s.history != nil}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"version":   Version,
		"checks":    checks,
	})
}

// handleResolve runs the cascade for one query and records it.
func (s *Server) handleResolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeInvalidInput, "Request body must be a JSON object", err.Error())
		return
	}

	result, err := s.resolver.Resolve(c.Request.Context(), req.Query)
	if err != nil {
		var emptyErr *domain.EmptyQueryError
		if errors.As(err, &emptyErr) {
			s.respondError(c, http.StatusBadRequest, domain.ErrCodeEmptyQuery, emptyErr.Error(), "")
			return
		}
		s.respondError(c, http.StatusInternalServerError, domain.ErrCodeInternalServer, "Resolution failed", "")
		return
	}
	c.Set("resolution_stage", string(result.Stage))

	resp := ResolveResponse{
		ResolutionResult: result,
		SearchLinks:      service.NewSearchLinks(req.Query),
		Query:            req.Query,
	}

	if s.history != nil {
		record := history.NewRecord(req.UserID, req.Query, result, s.configManager.GetConfig().History.SummaryLength)
		if err := s.history.Save(c.Request.Context(), record); err != nil {
			// Recording is best effort; the answer is still returned.
			s.logger.WithError(err).WithField("correlation_id", c.GetString(middleware.CorrelationIDKey)).
				Warn("Failed to record query history")
		} else {
			resp.HistoryID = record.ID
		}
	}

	c.JSON(http.StatusOK, resp)
}

// handleClassify reports the category a fallback answer would use.
func (s *Server) handleClassify(c *gin.Context) {
	classification, err := s.resolver.Classify(c.Query("q"))
	if err != nil {
		s.respondError(c, http.StatusBadRequest, domain.ErrCodeEmptyQuery, err.Error(), "")
		return
	}
	c.JSON(http.StatusOK, classification)
}

func (s *Server) handleListConditions(c *gin.Context) {
	names := s.resolver.Catalog().Names()
	c.JSON(http.StatusOK, gin.H{
		"conditions": names,
		"count":      len(names),
	})
}

func (s *Server) handleGetCondition(c *gin.Context) {
	entry, err := s.resolver.Catalog().ByCanonical(c.Param("name"))
	if err != nil {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, err.Error(), "")
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) handleListHistory(c *gin.Context) {
	if !s.requireHistory(c) {
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var (
		records []*history.Record
		err     error
	)
	if userID := c.Query("user_id"); userID != "" {
		records, err = s.history.ListByUser(c.Request.Context(), userID, limit, offset)
	} else {
		records, err = s.history.List(c.Request.Context(), limit, offset)
	}
	if err != nil {
		s.databaseError(c, err)
		return
	}
	if records == nil {
		records = []*history.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"records": records,
		"count":   len(records),
		"limit":   limit,
		"offset":  offset,
	})
}

func (s *Server) handleGetHistory(c *gin.Context) {
	if !s.requireHistory(c) {
		return
	}
	record, err := s.history.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, domain.ErrNotFound) {
		s.respondError(c, http.StatusNotFound, domain.ErrCodeNotFound, "History record not found", "")
		return
	}
	if err != nil {
		s.databaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleExportHistory(c *gin.Context) {
	if !s.requireHistory(c) {
		return
	}
	c.Header("Content-Type", "application/json")
	c.Header("Content-Disposition", `attachment; filename="history.json"`)
	if err := s.history.ExportJSON(c.Request.Context(), c.Writer); err != nil {
		s.logger.WithError(err).Error("History export failed")
		c.Status(http.StatusInternalServerError)
	}
}

func (s *Server) handleStats(c *gin.Context) {
	catalog := s.resolver.Catalog()
	resp := StatsResponse{
		Conditions: catalog.Base.Len(),
		Aliases:    catalog.Aliases.Len(),
	}

	if s.history != nil {
		ctx := c.Request.Context()
		count, err := s.history.Count(ctx)
		if err != nil {
			s.databaseError(c, err)
			return
		}
		byStage, err := s.history.StageCounts(ctx)
		if err != nil {
			s.databaseError(c, err)
			return
		}
		resp.Queries = count
		resp.ByStage = byStage
	}
	if s.cache != nil {
		stats := s.cache.Stats()
		resp.Cache = &stats
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) requireHistory(c *gin.Context) bool {
	if s.history != nil {
		return true
	}
	s.respondError(c, http.StatusServiceUnavailable, domain.ErrCodeUnavailable, "Query history is disabled", "")
	return false
}

func (s *Server) databaseError(c *gin.Context, err error) {
	s.logger.WithFields(logrus.Fields{
		"correlation_id": c.GetString(middleware.CorrelationIDKey),
		"path":           c.FullPath(),
	}).WithError(err).Error("History store failed")
	s.respondError(c, http.StatusInternalServerError, domain.ErrCodeDatabaseError, "History store unavailable", "")
}

func (s *Server) respondError(c *gin.Context, status int, code, message, details string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, details, c.GetString(middleware.CorrelationIDKey)))
}
