package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sembase/faqd/internal/retrieval"
	"github.com/sembase/faqd/internal/store"
)

// handleSearch serves GET /search/:email.
//
// Logical errors (no query) come back as a 200 body, matching the contract
// the original clients were built against. show_list=yes bypasses retrieval
// and returns the tenant's full FAQ listing.
func (s *Server) handleSearch(c echo.Context) error {
	ctx := c.Request().Context()
	email := c.Param("email")

	if c.QueryParam("show_list") == "yes" {
		docs, err := s.faqs.List(ctx, email)
		if err != nil {
			s.logger.Error("faq listing failed", zap.String("owner", email), zap.Error(err))
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "FAQ store unavailable"})
		}
		return c.JSON(http.StatusOK, ListResponse{Results: docs})
	}

	query := strings.TrimSpace(c.QueryParam("query"))
	if query == "" {
		return c.JSON(http.StatusOK, ErrorResponse{Error: "No query provided"})
	}

	maxResults := s.config.DefaultMaxResults
	if raw := c.QueryParam("max_results"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusOK, ErrorResponse{Error: "Invalid max_results"})
		}
		maxResults = parsed
	}

	results, err := s.queries.Query(ctx, email, query, maxResults)
	if err != nil {
		s.logger.Error("faq query failed",
			zap.String("owner", email),
			zap.Error(err),
		)
		if errors.Is(err, retrieval.ErrInvalidArgument) {
			return c.JSON(http.StatusOK, ErrorResponse{Error: "No query provided"})
		}
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "FAQ search unavailable"})
	}

	return c.JSON(http.StatusOK, SearchResponse{
		Results:    results,
		Query:      query,
		Email:      email,
		MaxResults: maxResults,
	})
}

// handleAdd serves POST /faqs/:email.
func (s *Server) handleAdd(c echo.Context) error {
	email := c.Param("email")

	var req AddRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
	}
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Question and answer are required"})
	}

	doc, err := s.faqs.Add(c.Request().Context(), email, req.Question, req.Answer)
	if err != nil {
		s.logger.Error("faq insert failed", zap.String("owner", email), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "FAQ store unavailable"})
	}

	return c.JSON(http.StatusCreated, doc)
}

// handleDelete serves DELETE /faqs/:email/:id.
func (s *Server) handleDelete(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Document id is required"})
	}

	err := s.faqs.Delete(c.Request().Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{Error: "FAQ not found"})
	case err != nil:
		s.logger.Error("faq delete failed", zap.String("id", id), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "FAQ store unavailable"})
	}

	return c.NoContent(http.StatusNoContent)
}
