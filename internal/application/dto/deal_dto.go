package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout formato de expected_close_date en la API (también se acepta RFC3339 en la entrada).
const DateLayout = "2006-01-02"

// CreateDealRequest entrada para crear un deal.
// close_probability solo se usa cuando la etapa no tiene probabilidad fija.
type CreateDealRequest struct {
	Name              string           `json:"name" validate:"required"`
	DealValue         *decimal.Decimal `json:"deal_value"`
	ExpectedCloseDate *string          `json:"expected_close_date"`
	CloseProbability  *int             `json:"close_probability" validate:"omitempty,min=0,max=100"`
	Stage             *string          `json:"stage"`
	OwnerID           *int64           `json:"owner_id"`
}

// UpdateDealRequest actualización parcial de un deal; forecast_value y close_probability se recalculan siempre.
type UpdateDealRequest struct {
	Name              *string          `json:"name"`
	DealValue         *decimal.Decimal `json:"deal_value"`
	ExpectedCloseDate *string          `json:"expected_close_date"`
	CloseProbability  *int             `json:"close_probability" validate:"omitempty,min=0,max=100"`
	Stage             *string          `json:"stage"`
}

// DealResponse salida de un deal.
type DealResponse struct {
	ID                string          `json:"id"`
	Name              string          `json:"name"`
	DealValue         decimal.Decimal `json:"deal_value"`
	ForecastValue     decimal.Decimal `json:"forecast_value"`
	ExpectedCloseDate *string         `json:"expected_close_date"`
	CloseProbability  int             `json:"close_probability"`
	Stage             string          `json:"stage"`
	OwnerID           int64           `json:"owner_id"`
	Owner             *OwnerResponse  `json:"owner,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// DealListResponse listado de deals.
type DealListResponse struct {
	Data []DealResponse `json:"data"`
}
