package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/crm-api/internal/domain/access"
	"github.com/jhoicas/crm-api/internal/domain/entity"
)

// DealSearch filtro de texto libre para deals: nombre (substring, sin distinguir mayúsculas) o etapa.
type DealSearch struct {
	Term   string
	Stages []entity.DealStage
}

// StageCount conteo agrupado por etapa.
type StageCount struct {
	Stage entity.DealStage
	Count int
}

// MonthlyForecastResult suma de forecast_value de un mes calendario.
// Month es el primer día del mes; FirstCloseDate la fecha más temprana del grupo (orden).
type MonthlyForecastResult struct {
	Month              time.Time
	FirstCloseDate     time.Time
	TotalForecastValue decimal.Decimal
}

// DealRepository define el puerto de persistencia para Deal.
type DealRepository interface {
	Create(ctx context.Context, deal *entity.Deal) error
	GetByID(ctx context.Context, id string) (*entity.Deal, error)
	// GetForUpdate bloquea la fila dentro de la transacción en curso (si el motor lo soporta).
	GetForUpdate(ctx context.Context, id string) (*entity.Deal, error)
	// List devuelve los deals visibles ordenados por created_at ascendente.
	List(ctx context.Context, scope access.Scope, search DealSearch) ([]*entity.Deal, error)
	Update(ctx context.Context, deal *entity.Deal) error
	Delete(ctx context.Context, id string) error
	CountByStage(ctx context.Context, scope access.Scope) ([]StageCount, error)
	MonthlyForecast(ctx context.Context, scope access.Scope) ([]MonthlyForecastResult, error)
}

// TxRunner ejecuta fn dentro de una transacción con un DealRepository atado a ella.
// Commit si fn devuelve nil, Rollback en otro caso.
type TxRunner interface {
	RunDeals(ctx context.Context, fn func(deals DealRepository) error) error
}
