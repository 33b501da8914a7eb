package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/parksage/parksage/parks"
)

// ParksResponse lists the parks the directory knows about.
type ParksResponse struct {
	Parks []parks.Park `json:"parks"`
	Count int          `json:"count"`
}

// ListParks returns the park directory, sorted by code.
func (s *APIV1Service) ListParks(c echo.Context) error {
	list := s.Directory.List()
	return c.JSON(http.StatusOK, &ParksResponse{Parks: list, Count: len(list)})
}
