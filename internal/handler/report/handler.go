package report

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicdesk/booking-api/internal/handler"
	"github.com/clinicdesk/booking-api/internal/service/report"
)

type Handler struct {
	service *report.Service
}

func NewHandler(service *report.Service) *Handler {
	return &Handler{service: service}
}

// RegisterAdminRoutes mounts the admin dashboard stats endpoint.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.AdminStats)
}

// RegisterDoctorRoutes mounts the doctor dashboard stats endpoint.
func (h *Handler) RegisterDoctorRoutes(r *gin.RouterGroup) {
	r.GET("/stats", h.DoctorStats)
}

func (h *Handler) AdminStats(c *gin.Context) {
	stats, err := h.service.AdminStats(c.Request.Context())
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}

func (h *Handler) DoctorStats(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	stats, err := h.service.DoctorStats(c.Request.Context(), actor.UserID)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(stats))
}
