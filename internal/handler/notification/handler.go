package notification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/model"
	"github.com/jwalitptl/notify-engine/internal/service/notification"
	apperrors "github.com/jwalitptl/notify-engine/pkg/errors"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterValidation("priority", validPriority)
		v.RegisterValidation("channel", validChannel)
	}
}

func validPriority(fl validator.FieldLevel) bool {
	switch model.Priority(fl.Field().String()) {
	case model.PriorityEmergency, model.PriorityBreaking, model.PriorityUrgent,
		model.PriorityHigh, model.PriorityNormal, model.PriorityLow:
		return true
	}
	return false
}

func validChannel(fl validator.FieldLevel) bool {
	switch model.Channel(fl.Field().String()) {
	case model.ChannelMobilePush, model.ChannelWebPush, model.ChannelEmail,
		model.ChannelSMS, model.ChannelInApp, model.ChannelSocket:
		return true
	}
	return false
}

type Handler struct {
	service *notification.Service
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	notifications := r.Group("/notifications")
	{
		notifications.POST("", h.Submit)
		notifications.GET("/:id", h.GetNotification)
		notifications.POST("/:id/opened", h.TrackOpened)
		notifications.POST("/:id/clicked", h.TrackClicked)
	}
}

func (h *Handler) Submit(c *gin.Context) {
	var req model.NotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	n, err := h.service.Submit(c.Request.Context(), &req)
	if err != nil {
		switch {
		case apperrors.IsValidation(err):
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		case apperrors.IsSuppressed(err):
			// A suppression is a deliberate non-delivery outcome, not a
			// fault.
			c.JSON(http.StatusConflict, handler.NewSkippedResponse(err.Error()))
		case apperrors.IsScheduling(err):
			c.JSON(http.StatusBadGateway, handler.NewErrorResponse(err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, handler.NewErrorResponse(err.Error()))
		}
		return
	}

	c.JSON(http.StatusCreated, handler.NewSuccessResponse(n))
}

func (h *Handler) GetNotification(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	n, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(n))
}

func (h *Handler) TrackOpened(c *gin.Context) {
	h.track(c, h.service.TrackOpened)
}

func (h *Handler) TrackClicked(c *gin.Context) {
	h.track(c, h.service.TrackClicked)
}

func (h *Handler) track(c *gin.Context, fn func(ctx context.Context, id uuid.UUID) error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid notification ID"))
		return
	}

	if err := fn(c.Request.Context(), id); err != nil {
		// Forward-only status machine: a rejected transition is a
		// client error, not a server fault.
		c.JSON(http.StatusConflict, handler.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
