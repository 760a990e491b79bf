package prescription

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicdesk/booking-api/internal/handler"
	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/internal/service/prescription"
	"github.com/clinicdesk/booking-api/pkg/errors"
)

// maxUploadSize caps prescription files at 10 MB.
const maxUploadSize = 10 << 20

type Handler struct {
	service *prescription.Service
}

func NewHandler(service *prescription.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	prescriptions := r.Group("/prescriptions")
	{
		prescriptions.GET("", h.List)
		prescriptions.GET("/:id", h.Get)
		prescriptions.GET("/:id/download", h.Download)
	}
}

// RegisterDoctorRoutes mounts the upload endpoint for doctors.
func (h *Handler) RegisterDoctorRoutes(r *gin.RouterGroup) {
	r.POST("/prescriptions", h.Upload)
}

func (h *Handler) Upload(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	appointmentID, err := uuid.Parse(c.PostForm("appointment_id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid appointment ID", err))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		handler.Error(c, errors.BadRequest("prescription file is required", err))
		return
	}
	if fileHeader.Size > maxUploadSize {
		handler.Error(c, errors.BadRequest("file exceeds the 10MB limit", nil))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		handler.Error(c, errors.BadRequest("failed to read uploaded file", err))
		return
	}
	defer file.Close()

	p, err := h.service.Upload(c.Request.Context(), actor.UserID, appointmentID, fileHeader.Filename, file, c.PostForm("notes"))
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(p))
}

// List returns the caller's prescriptions: written ones for doctors,
// received ones for patients.
func (h *Handler) List(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	var prescriptions []*model.Prescription
	switch actor.Role {
	case model.RoleDoctor:
		prescriptions, err = h.service.ListForDoctor(c.Request.Context(), actor.UserID)
	case model.RolePatient:
		prescriptions, err = h.service.ListForPatient(c.Request.Context(), actor.UserID)
	default:
		handler.Error(c, errors.Forbidden("prescription listing is per doctor or patient"))
		return
	}
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(prescriptions))
}

func (h *Handler) Get(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid prescription ID", err))
		return
	}

	p, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(p))
}

func (h *Handler) Download(c *gin.Context) {
	actor, err := handler.ActorFrom(c)
	if err != nil {
		handler.Error(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		handler.Error(c, errors.BadRequest("invalid prescription ID", err))
		return
	}

	p, rc, err := h.service.Download(c.Request.Context(), actor, id)
	if err != nil {
		handler.Error(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", `attachment; filename="`+p.FileName+`"`)
	c.DataFromReader(http.StatusOK, -1, "application/octet-stream", rc, nil)
}
