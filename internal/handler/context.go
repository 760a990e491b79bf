package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicdesk/booking-api/internal/model"
	"github.com/clinicdesk/booking-api/pkg/errors"
)

// Context keys set by the auth middleware.
const (
	ContextUserID = "user_id"
	ContextEmail  = "user_email"
	ContextRole   = "user_role"
)

// ActorFrom reads the authenticated caller's identity from the request
// context.
func ActorFrom(c *gin.Context) (model.Actor, error) {
	userID, err := uuid.Parse(c.GetString(ContextUserID))
	if err != nil {
		return model.Actor{}, errors.Unauthorized("not authenticated")
	}

	role := model.Role(c.GetString(ContextRole))
	if !role.Valid() {
		return model.Actor{}, errors.Unauthorized("not authenticated")
	}

	return model.Actor{UserID: userID, Role: role}, nil
}
