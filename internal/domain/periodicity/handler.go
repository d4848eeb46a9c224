package periodicity

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ohs/ohs/internal/platform/apperr"
	"github.com/ohs/ohs/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the read-only periodicity endpoints. The
// justification preview computes text but stores nothing.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/positions/:position_id", auth.ReadAccess())
	g.GET("/periodicity", h.Suggest)
	g.POST("/periodicity/justification", h.Justify)
	g.GET("/indicators", h.Indicators)
}

func httpError(err error) error {
	return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
}

func positionParam(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("position_id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid position_id")
	}
	return id, nil
}

func (h *Handler) Suggest(c echo.Context) error {
	positionID, err := positionParam(c)
	if err != nil {
		return err
	}
	var months *int
	if v := c.QueryParam("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid months")
		}
		months = &n
	}
	out, err := h.svc.Suggest(c.Request().Context(), positionID, months, ParseFormat(c.QueryParam("format")))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}

type justifyRequest struct {
	Months  int           `json:"months"`
	Format  string        `json:"format"`
	Hazards []HazardScore `json:"hazards"`
}

type justifyResponse struct {
	PositionID    uuid.UUID `json:"position_id"`
	Months        int       `json:"months"`
	Format        Format    `json:"format"`
	Justification string    `json:"justification"`
}

func (h *Handler) Justify(c echo.Context) error {
	positionID, err := positionParam(c)
	if err != nil {
		return err
	}
	var req justifyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	format := ParseFormat(req.Format)
	text, err := h.svc.JustifyFromInputs(c.Request().Context(), positionID, req.Months, req.Hazards, format)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, justifyResponse{
		PositionID:    positionID,
		Months:        req.Months,
		Format:        format,
		Justification: text,
	})
}

func (h *Handler) Indicators(c echo.Context) error {
	positionID, err := positionParam(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Indicators(c.Request().Context(), positionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}
