package v1

import (
	"fmt"
	"net/http"

	"log/slog"

	"github.com/labstack/echo/v4"
)

// SearchRequest is the body of the direct search endpoint.
type SearchRequest struct {
	Query    string `json:"query"`
	ParkCode string `json:"park_code"`
	TopK     int    `json:"top_k"`
}

func (r *SearchRequest) validate() error {
	if r.Query == "" {
		return fmt.Errorf("query is required")
	}
	if r.TopK == 0 {
		r.TopK = defaultSearchTopK
	}
	if r.TopK < 1 || r.TopK > maxSearchTopK {
		return fmt.Errorf("top_k must be between 1 and %d", maxSearchTopK)
	}
	return nil
}

// Search runs retrieval directly, with no generation step.
func (s *APIV1Service) Search(c echo.Context) error {
	request := &SearchRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed request body")
	}
	if err := request.validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	results, err := s.Pipeline.Search(c.Request().Context(), request.Query, request.TopK, request.ParkCode)
	if err != nil {
		slog.Error("search request failed", "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, results)
}
