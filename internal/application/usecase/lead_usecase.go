package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/access"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

// LeadUseCase aplica reglas de negocio para leads.
type LeadUseCase struct {
	repo  repository.LeadRepository
	users repository.UserRepository
}

// NewLeadUseCase construye el caso de uso con los puertos de persistencia.
func NewLeadUseCase(repo repository.LeadRepository, users repository.UserRepository) *LeadUseCase {
	return &LeadUseCase{repo: repo, users: users}
}

// Create crea un lead. Sin status explícito queda en NEW.
func (uc *LeadUseCase) Create(ctx context.Context, p entity.Principal, in dto.CreateLeadRequest) (*dto.LeadResponse, error) {
	ownerID, err := access.CanCreateFor(p, in.OwnerID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name es requerido", domain.ErrInvalidInput)
	}
	status := entity.LeadStatusNew
	if in.Status != "" {
		status = entity.LeadStatus(in.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: status desconocido %q", domain.ErrInvalidInput, in.Status)
		}
	}
	if ownerID != p.ID {
		u, err := uc.users.GetByID(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		if u == nil {
			return nil, fmt.Errorf("%w: owner %d", domain.ErrUserNotFound, ownerID)
		}
	}

	now := time.Now().UTC()
	lead := &entity.Lead{
		ID:        uuid.New().String(),
		Name:      name,
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Company:   strings.TrimSpace(in.Company),
		Status:    status,
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := uc.repo.Create(ctx, lead); err != nil {
		return nil, err
	}
	return LeadToResponse(lead), nil
}

// Get obtiene un lead aplicando la visibilidad por rol.
func (uc *LeadUseCase) Get(ctx context.Context, p entity.Principal, id string) (*dto.LeadResponse, error) {
	if err := checkRecordID(id); err != nil {
		return nil, err
	}
	lead, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.ErrNotFound
	}
	if err := access.CanView(p, lead.OwnerID, ownerRole(lead.Owner)); err != nil {
		return nil, err
	}
	return LeadToResponse(lead), nil
}

// List devuelve los leads visibles; search filtra por nombre, email, teléfono, empresa o estado.
func (uc *LeadUseCase) List(ctx context.Context, p entity.Principal, search string) (*dto.LeadListResponse, error) {
	term := strings.TrimSpace(search)
	leads, err := access.Visible(ctx, p, func(ctx context.Context, scope access.Scope) ([]*entity.Lead, error) {
		return uc.repo.List(ctx, scope, repository.LeadSearch{
			Term:     term,
			Statuses: entity.MatchingLeadStatuses(term),
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.LeadResponse, 0, len(leads))
	for _, l := range leads {
		out = append(out, *LeadToResponse(l))
	}
	return &dto.LeadListResponse{Data: out}, nil
}

// Update actualización parcial. Solo ADMIN o el SALES_REP propietario.
func (uc *LeadUseCase) Update(ctx context.Context, p entity.Principal, id string, in dto.UpdateLeadRequest) (*dto.LeadResponse, error) {
	lead, err := uc.mutable(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name no puede quedar vacío", domain.ErrInvalidInput)
		}
		lead.Name = name
	}
	if in.Email != nil {
		lead.Email = strings.TrimSpace(*in.Email)
	}
	if in.Phone != nil {
		lead.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Company != nil {
		lead.Company = strings.TrimSpace(*in.Company)
	}
	if in.Status != nil {
		status := entity.LeadStatus(*in.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%w: status desconocido %q", domain.ErrInvalidInput, *in.Status)
		}
		lead.Status = status
	}
	lead.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, lead); err != nil {
		return nil, err
	}
	return LeadToResponse(lead), nil
}

// Remove elimina el lead (hard delete).
func (uc *LeadUseCase) Remove(ctx context.Context, p entity.Principal, id string) error {
	if _, err := uc.mutable(ctx, p, id); err != nil {
		return err
	}
	return uc.repo.Delete(ctx, id)
}

func (uc *LeadUseCase) mutable(ctx context.Context, p entity.Principal, id string) (*entity.Lead, error) {
	if err := checkRecordID(id); err != nil {
		return nil, err
	}
	lead, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if lead == nil {
		return nil, domain.ErrNotFound
	}
	if err := access.CanMutate(p, lead.OwnerID); err != nil {
		return nil, err
	}
	return lead, nil
}

// LeadToResponse convierte la entidad en su DTO de salida.
func LeadToResponse(l *entity.Lead) *dto.LeadResponse {
	if l == nil {
		return nil
	}
	return &dto.LeadResponse{
		ID:        l.ID,
		Name:      l.Name,
		Email:     l.Email,
		Phone:     l.Phone,
		Company:   l.Company,
		Status:    string(l.Status),
		OwnerID:   l.OwnerID,
		Owner:     toOwnerResponse(l.Owner),
		CreatedAt: l.CreatedAt,
		UpdatedAt: l.UpdatedAt,
	}
}
