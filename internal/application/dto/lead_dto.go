package dto

import "time"

// CreateLeadRequest entrada para crear un lead. OwnerID solo lo puede fijar un ADMIN para otro usuario.
type CreateLeadRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
	Company string `json:"company"`
	Status  string `json:"status"`
	OwnerID *int64 `json:"owner_id"`
}

// UpdateLeadRequest actualización parcial de un lead; los campos nil no se tocan.
type UpdateLeadRequest struct {
	Name    *string `json:"name"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Phone   *string `json:"phone"`
	Company *string `json:"company"`
	Status  *string `json:"status"`
}

// LeadResponse salida de un lead.
type LeadResponse struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Phone     string         `json:"phone,omitempty"`
	Company   string         `json:"company"`
	Status    string         `json:"status"`
	OwnerID   int64          `json:"owner_id"`
	Owner     *OwnerResponse `json:"owner,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// LeadListResponse listado de leads.
type LeadListResponse struct {
	Data []LeadResponse `json:"data"`
}
