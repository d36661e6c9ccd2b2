package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/notification"
)

// NotificationHandler expone el envío manual de notificaciones.
type NotificationHandler struct {
	dispatcher *notification.Dispatcher
}

// NewNotificationHandler construye el handler.
func NewNotificationHandler(dispatcher *notification.Dispatcher) *NotificationHandler {
	return &NotificationHandler{dispatcher: dispatcher}
}

// Send godoc
// @Summary      Enviar notificación al propio usuario
// @Description  Best-effort: si el usuario no tiene conexión activa delivered=false.
// @Tags         notifications
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SendNotificationRequest  true  "message, type"
// @Success      200   {object}  dto.SendNotificationResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/notifications [post]
func (h *NotificationHandler) Send(c *fiber.Ctx) error {
	var in dto.SendNotificationRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c)
	}
	t := notification.Type(in.Type)
	if strings.TrimSpace(in.Message) == "" || !t.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "message y un type válido son requeridos"})
	}
	delivered := h.dispatcher.Dispatch(c.UserContext(), GetUserID(c), in.Message, t)
	return c.JSON(dto.SendNotificationResponse{Delivered: delivered})
}
