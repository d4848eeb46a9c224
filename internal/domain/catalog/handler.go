package catalog

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ohs/ohs/internal/platform/apperr"
	"github.com/ohs/ohs/internal/platform/auth"
	"github.com/ohs/ohs/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// entryPaths maps the URL segment of each simple catalog to its kind.
var entryPaths = map[string]Kind{
	"exam-types":         KindExamType,
	"exclusion-criteria": KindExclusionCriterion,
	"immunizations":      KindImmunization,
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/catalog")

	read := g.Group("", auth.ReadAccess())
	read.GET("/hazards", h.ListHazards)
	read.GET("/hazards/:id", h.GetHazard)

	write := g.Group("", auth.WriteAccess())
	write.POST("/hazards", h.CreateHazard)
	write.PUT("/hazards/:id", h.UpdateHazard)
	write.DELETE("/hazards/:id", h.DeleteHazard)

	for path, kind := range entryPaths {
		read.GET("/"+path, h.ListEntries(kind))
		read.GET("/"+path+"/:id", h.GetEntry(kind))
		write.POST("/"+path, h.CreateEntry(kind))
		write.DELETE("/"+path+"/:id", h.DeleteEntry(kind))
	}
}

func httpError(err error) error {
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Hazard handlers --

func (h *Handler) CreateHazard(c echo.Context) error {
	var hz HazardFactor
	if err := c.Bind(&hz); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateHazard(c.Request().Context(), &hz); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, hz)
}

func (h *Handler) GetHazard(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	hz, err := h.svc.GetHazard(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, hz)
}

func (h *Handler) ListHazards(c echo.Context) error {
	pg := pagination.FromContext(c)
	f := HazardFilter{
		Query:      c.QueryParam("q"),
		Category:   HazardCategory(c.QueryParam("category")),
		ActiveOnly: c.QueryParam("active") == "true",
	}
	items, total, err := h.svc.ListHazards(c.Request().Context(), f, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateHazard(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var hz HazardFactor
	if err := c.Bind(&hz); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	hz.ID = id
	if err := h.svc.UpdateHazard(c.Request().Context(), &hz); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, hz)
}

func (h *Handler) DeleteHazard(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteHazard(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Simple catalog handlers --

func (h *Handler) CreateEntry(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		var e Entry
		if err := c.Bind(&e); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		e.Kind = kind
		e.Active = true
		if err := h.svc.CreateEntry(c.Request().Context(), &e); err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusCreated, e)
	}
}

func (h *Handler) GetEntry(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		e, err := h.svc.GetEntry(c.Request().Context(), kind, id)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, e)
	}
}

func (h *Handler) ListEntries(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		pg := pagination.FromContext(c)
		items, total, err := h.svc.ListEntries(c.Request().Context(), kind, c.QueryParam("q"), pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
}

func (h *Handler) DeleteEntry(kind Kind) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := parseID(c)
		if err != nil {
			return err
		}
		if err := h.svc.DeleteEntry(c.Request().Context(), kind, id); err != nil {
			return httpError(err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
