package scheduling

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medibook/medibook/internal/platform/auth"
	"github.com/medibook/medibook/internal/platform/fault"
	"github.com/medibook/medibook/pkg/pagination"
)

type Handler struct {
	slots *SlotService
	appts *AppointmentService
}

func NewHandler(slots *SlotService, appts *AppointmentService) *Handler {
	return &Handler{slots: slots, appts: appts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	manage := auth.RequireRole(auth.RoleDoctor, auth.RoleAdmin)

	api.POST("/slots", h.CreateSlot, manage)
	api.PUT("/slots/:id", h.UpdateSlot, manage)
	api.DELETE("/slots/:id", h.DeleteSlot, manage)
	api.GET("/doctors/:id/slots", h.ListDoctorSlots, manage)
	api.GET("/doctors/:id/slots/available", h.ListAvailableSlots)

	api.POST("/appointments", h.Book, auth.RequireRole(auth.RolePatient))
	api.GET("/appointments", h.ListAll, auth.RequireRole(auth.RoleAdmin))
	api.GET("/appointments/recent", h.ListRecent, auth.RequireRole(auth.RoleAdmin))
	api.GET("/appointments/:id", h.Get)
	api.DELETE("/appointments/:id", h.Cancel)
	api.PATCH("/appointments/:id/status", h.UpdateStatus, manage)
	api.PATCH("/appointments/:id/comment", h.AddComment, manage)
	api.GET("/doctors/:id/appointments", h.ListByDoctor, manage)
	api.GET("/patients/:id/appointments", h.ListByPatient)
}

func pathID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// -- Slot handlers --

func (h *Handler) CreateSlot(c echo.Context) error {
	var in SlotInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	slot, err := h.slots.Create(c.Request().Context(), actor, in)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, slot)
}

func (h *Handler) UpdateSlot(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in SlotInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	slot, err := h.slots.Update(c.Request().Context(), actor, id, in)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, slot)
}

func (h *Handler) DeleteSlot(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c.Request().Context())
	if err := h.slots.Delete(c.Request().Context(), actor, id); err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListDoctorSlots(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c.Request().Context())
	slots, err := h.slots.ListByDoctor(c.Request().Context(), actor, doctorID)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, slots)
}

func (h *Handler) ListAvailableSlots(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	slots, err := h.slots.ListAvailable(c.Request().Context(), doctorID)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, slots)
}

// -- Appointment handlers --

type bookRequest struct {
	SlotID uuid.UUID `json:"slot_id"`
	Notes  string    `json:"notes"`
}

func (h *Handler) Book(c echo.Context) error {
	var req bookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.SlotID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "slot_id is required")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	detail, err := h.appts.Book(c.Request().Context(), actor, req.SlotID, req.Notes)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, detail)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c.Request().Context())
	detail, err := h.appts.Get(c.Request().Context(), actor, id)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, detail)
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req cancelRequest
	_ = c.Bind(&req) // body is optional on cancel
	actor := auth.ActorFromContext(c.Request().Context())
	if err := h.appts.Cancel(c.Request().Context(), actor, id, req.Reason); err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	detail, err := h.appts.UpdateStatus(c.Request().Context(), actor, id, req.Status)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, detail)
}

type commentRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) AddComment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req commentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	detail, err := h.appts.AddDoctorComment(c.Request().Context(), actor, id, req.Comment)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) ListAll(c echo.Context) error {
	p := pagination.FromContext(c)
	details, total, err := h.appts.All(c.Request().Context(), p.Limit, p.Offset)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(details, total, p))
}

func (h *Handler) ListRecent(c echo.Context) error {
	n, _ := strconv.Atoi(c.QueryParam("n"))
	details, err := h.appts.Recent(c.Request().Context(), n)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, details)
}

func (h *Handler) ListByDoctor(c echo.Context) error {
	doctorID, err := pathID(c)
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c.Request().Context())
	details, err := h.appts.ByDoctor(c.Request().Context(), actor, doctorID)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, details)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := pathID(c)
	if err != nil {
		return err
	}
	actor := auth.ActorFromContext(c.Request().Context())
	details, err := h.appts.ByPatient(c.Request().Context(), actor, patientID)
	if err != nil {
		return echo.NewHTTPError(fault.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, details)
}
