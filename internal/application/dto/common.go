package dto

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MessageResponse respuesta simple con un mensaje (ej. eliminación).
type MessageResponse struct {
	Message string `json:"message"`
}

// OwnerResponse propietario resumido de un lead o deal.
type OwnerResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
