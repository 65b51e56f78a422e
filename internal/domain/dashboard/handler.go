package dashboard

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/fault"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.Get)
}

// Get dispatches on the caller's role: admins see the clinic-wide view,
// doctors and patients see their own.
func (h *Handler) Get(c echo.Context) error {
	actor := auth.ActorFromContext(c.Request().Context())

	var (
		stats Stats
		err   error
	)
	switch actor.Role {
	case auth.RoleAdmin:
		stats, err = h.svc.ForAdmin(c.Request().Context())
	case auth.RoleDoctor, auth.RolePatient:
		id, parseErr := uuid.Parse(actor.ID)
		if parseErr != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "unknown actor")
		}
		if actor.Role == auth.RoleDoctor {
			stats, err = h.svc.ForDoctor(c.Request().Context(), id)
		} else {
			stats, err = h.svc.ForPatient(c.Request().Context(), id)
		}
	default:
		return echo.NewHTTPError(http.StatusForbidden, "no dashboard for this role")
	}
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
