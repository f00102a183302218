package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/reviewdeck/internal/engine"
	"github.com/reviewdeck/internal/providers"
	"github.com/reviewdeck/pkg/models"
)

// deriveRequest models the incoming POST payload for direct derivations.
type deriveRequest struct {
	CacheKey string           `json:"cache_key,omitempty"`
	DiffText string           `json:"diff_text"`
	Comments []models.Comment `json:"comments"`
}

// derivePullRequestRequest asks the server to fetch the inputs from a host
// first.
type derivePullRequestRequest struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// derive computes derived data for a caller-supplied diff and comment list.
func (s *Server) derive(c echo.Context) error {
	var req deriveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.DiffText) == "" && len(req.Comments) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "diff_text or comments is required"})
	}

	return s.respondDerived(c, engine.Request{
		CacheKey: req.CacheKey,
		DiffText: req.DiffText,
		Comments: req.Comments,
	})
}

// deriveFromPullRequest fetches a pull request's diff and comments from the
// named host provider, then runs the same pipeline.
func (s *Server) deriveFromPullRequest(c echo.Context) error {
	var req derivePullRequestRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	host, ok := s.providers[req.Provider]
	if !ok {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown provider: " + req.Provider})
	}

	input, err := providers.FetchReviewInput(c.Request().Context(), host, req.URL)
	if err != nil {
		s.log.Error().Err(err).Str("provider", req.Provider).Str("url", req.URL).Msg("Failed to fetch review input")
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}

	return s.respondDerived(c, engine.Request{
		DiffText: input.DiffText,
		Comments: input.Comments,
	})
}

func (s *Server) respondDerived(c echo.Context, req engine.Request) error {
	result, err := s.engine.Compute(c.Request().Context(), req)
	if err != nil {
		return c.JSON(deriveErrorStatus(err), map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, result)
}

// deriveErrorStatus maps the engine error taxonomy onto HTTP statuses:
// transient unavailability is 503 so clients retry, explicit compute
// failures (bad diff text) are the caller's fault at 422.
func deriveErrorStatus(err error) int {
	var computeErr *engine.ComputeError
	switch {
	case errors.Is(err, engine.ErrUnavailable), errors.Is(err, engine.ErrTerminated):
		return http.StatusServiceUnavailable
	case errors.As(err, &computeErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
