package dto

// SendNotificationRequest POST /api/notifications.
type SendNotificationRequest struct {
	Message string `json:"message" validate:"required"`
	Type    string `json:"type" validate:"required,oneof=DEAL_CREATED DEAL_WON DEAL_NEGOTIATION"`
}

// SendNotificationResponse resultado best-effort del envío.
type SendNotificationResponse struct {
	Delivered bool `json:"delivered"`
}
