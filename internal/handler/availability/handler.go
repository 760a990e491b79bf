package availability

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicdesk/booking-api/internal/handler"
	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/service/availability"
	"github.com/clinicdesk/booking-api/pkg/errors"
)

// Handler exposes a doctor's own schedule management.
type Handler struct {
	service *availability.Service
}

func NewHandler(service *availability.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	slots := r.Group("/availability")
	{
		slots.GET("", h.ListOwn)
		slots.POST("", h.Create)
		slots.POST("/quick-add", h.QuickAdd)
		slots.POST("/copy-week", h.CopyWeek)
		slots.PATCH("/:id/toggle", h.Toggle)
		slots.DELETE("/:id", h.Delete)
	}
}

func (h *Handler) ListOwn(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	slots, err := h.service.ListForDoctor(c.Request.Context(), actor.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slots))
}

func (h *Handler) Create(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	var req model.CreateAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, errors.BadRequest(err.Error(), err))
		return
	}

	slot, err := h.service.Create(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(slot))
}

func (h *Handler) QuickAdd(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	var req model.QuickAddRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handler.Error(c, errors.BadRequest(err.Error(), err))
		return
	}

	slot, err := h.service.QuickAdd(c.Request.Context(), actor.UserID, &req)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(slot))
}

func (h *Handler) CopyWeek(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	created, err := h.service.CopyWeek(c.Request.Context(), actor.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"created": created}))
}

func (h *Handler) Toggle(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid slot ID", err))
		return
	}

	slot, err := h.service.Toggle(c.Request.Context(), actor.UserID, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(slot))
}

func (h *Handler) Delete(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid slot ID", err))
		return
	}

	if err := h.service.Delete(c.Request.Context(), actor.UserID, id); err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
