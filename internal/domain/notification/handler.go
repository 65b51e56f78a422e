package notification

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/fault"
	"github.com/medibook/medibook/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/notifications", h.List)
	api.POST("/notifications/read-all", h.MarkAllRead)
}

func actorID(c echo.Context) (uuid.UUID, error) {
	actor := auth.ActorFromContext(c.Request().Context())
	id, err := uuid.Parse(actor.ID)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, "unknown actor")
	}
	return id, nil
}

func (h *Handler) List(c echo.Context) error {
	id, err := actorID(c)
	if err != nil {
		return err
	}
	p := pagination.FromContext(c)
	page, err := h.svc.List(c.Request().Context(), id, p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, page)
}

func (h *Handler) MarkAllRead(c echo.Context) error {
	id, err := actorID(c)
	if err != nil {
		return err
	}
	if err := h.svc.MarkAllRead(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
