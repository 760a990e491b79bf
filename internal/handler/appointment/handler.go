package appointment

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicdesk/booking-api/internal/handler"
	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/service/appointment"
	"github.com/clinicdesk/booking-api/internal/service/booking"
	"github.com/clinicdesk/booking-api/pkg/errors"
)

type Handler struct {
	booking *booking.Service
	service *appointment.Service
}

func NewHandler(booking *booking.Service, service *appointment.Service) *Handler {
	return &Handler{booking: booking, service: service}
}

// RegisterRoutes mounts the shared appointment endpoints. Role checks
// that cannot be expressed at the routing level happen in the services.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.POST("/:id/cancel", h.CancelAppointment)
		appointments.POST("/:id/confirm", h.ConfirmAppointment)
		appointments.POST("/:id/complete", h.CompleteAppointment)
	}
}

// RegisterBookingRoutes mounts the patient booking endpoint.
func (h *Handler) RegisterBookingRoutes(r *gin.RouterGroup) {
	r.POST("/bookings", h.Book)
}

// RegisterAdminRoutes mounts the admin edit/delete endpoints.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.PUT("/:id", h.RescheduleAppointment)
		appointments.DELETE("/:id", h.DeleteAppointment)
	}
}

func (h *Handler) Book(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	var req model.BookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, errors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.booking.Book(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) ListAppointments(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	filters, err := parseFilters(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	appointments, err := h.service.List(c.Request.Context(), actor, filters)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(appointments))
}

func (h *Handler) GetAppointment(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid appointment ID", err))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	h.lifecycle(c, h.booking.Cancel)
}

func (h *Handler) ConfirmAppointment(c *gin.Context) {
	h.lifecycle(c, h.booking.Confirm)
}

func (h *Handler) CompleteAppointment(c *gin.Context) {
	h.lifecycle(c, h.booking.Complete)
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid appointment ID", err))
		return
	}

	var req model.RescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, errors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.service.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) DeleteAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid appointment ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) lifecycle(c *gin.Context, fn func(ctx context.Context, actor model.Actor, id uuid.UUID) error) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid appointment ID", err))
		return
	}

	if err := fn(c.Request.Context(), actor, id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func parseFilters(c *gin.Context) (*model.AppointmentFilters, error) {
	filters := &model.AppointmentFilters{
		Search: c.Query("search"),
	}

	if status := c.Query("status"); status != "" {
		filters.Status = model.AppointmentStatus(status)
	}
	if raw := c.Query("doctor_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.BadRequest("invalid doctor_id filter", err)
		}
		filters.DoctorID = id
	}
	if raw := c.Query("patient_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, errors.BadRequest("invalid patient_id filter", err)
		}
		filters.PatientID = id
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, errors.BadRequest("invalid date filter, expected YYYY-MM-DD", err)
		}
		filters.Date = &date
	}
	return filters, nil
}
