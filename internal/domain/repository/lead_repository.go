package repository

import (
	"context"

	"github.com/jhoicas/crm-api/internal/domain/access"
	"github.com/jhoicas/crm-api/internal/domain/entity"
)

// LeadSearch filtro de texto libre para leads. Term vacío = sin filtro.
// Statuses son los estados cuyo nombre contiene Term (case-folded); se evalúan con OR junto a los campos de texto.
type LeadSearch struct {
	Term     string
	Statuses []entity.LeadStatus
}

// StatusCount conteo agrupado por estado.
type StatusCount struct {
	Status entity.LeadStatus
	Count  int
}

// LeadRepository define el puerto de persistencia para Lead.
// Todas las lecturas de colección reciben el Scope de visibilidad del solicitante.
type LeadRepository interface {
	Create(ctx context.Context, lead *entity.Lead) error
	GetByID(ctx context.Context, id string) (*entity.Lead, error)
	List(ctx context.Context, scope access.Scope, search LeadSearch) ([]*entity.Lead, error)
	Update(ctx context.Context, lead *entity.Lead) error
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context, scope access.Scope) ([]StatusCount, error)
}
