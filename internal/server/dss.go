package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/lib/pq"

	"github.com/fra-atlas/backend/internal/dss"
	"github.com/fra-atlas/backend/internal/store"
	"github.com/fra-atlas/backend/models"
)

// DssHandler exposes the eligibility check and scheme administration.
type DssHandler struct {
	Store *store.Store
	Orch  *dss.Orchestrator
}

// Register mounts the routes; scheme creation requires auth.
func (h *DssHandler) Register(g *echo.Group, authMW echo.MiddlewareFunc) {
	g.GET("/check", h.check)
	g.GET("/schemes", h.listSchemes)
	g.POST("/schemes", h.createScheme, authMW)
}

func (h *DssHandler) check(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	if query == "" {
		dssQueries.WithLabelValues("bad_request").Inc()
		return echo.NewHTTPError(http.StatusBadRequest, "query parameter 'q' is required")
	}

	resp, err := h.Orch.Check(c.Request().Context(), query)
	if err != nil {
		dssQueries.WithLabelValues("failed").Inc()
		// DSS failures keep the same envelope as successes.
		return c.JSON(http.StatusUnprocessableEntity, dss.CheckResponse{
			Status:  "error",
			Message: err.Error(),
		})
	}
	dssQueries.WithLabelValues("ok").Inc()
	return c.JSON(http.StatusOK, resp)
}

func (h *DssHandler) createScheme(c echo.Context) error {
	var req CreateSchemeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "scheme name is required")
	}

	id, err := h.Store.InsertScheme(c.Request().Context(), models.Scheme{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Eligibility: req.Eligibility,
	})
	if err != nil {
		var pgErr *pq.Error
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return echo.NewHTTPError(http.StatusConflict, "scheme already exists")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, IDResponse{ID: id})
}

func (h *DssHandler) listSchemes(c echo.Context) error {
	schemes, err := h.Store.ListSchemes(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if schemes == nil {
		schemes = []models.Scheme{}
	}
	return c.JSON(http.StatusOK, schemes)
}
