// Package access concentra la decisión de visibilidad por rol sobre leads y deals.
// Los casos de uso nunca derivan el filtro por su cuenta: piden un Scope y lo pasan al repositorio.
package access

import (
	"context"

	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
)

// Kind tipo de alcance.
type Kind int

const (
	// KindAll sin filtro (ADMIN).
	KindAll Kind = iota + 1
	// KindOwnerRole registros cuyo propietario tiene el rol OwnerRole (SALES_MANAGER → equipo de SALES_REP).
	KindOwnerRole
	// KindOwner registros con owner_id == OwnerID (SALES_REP).
	KindOwner
)

// Scope filtro de visibilidad. El valor cero no es válido; usar ScopeFor.
type Scope struct {
	Kind      Kind
	OwnerID   int64
	OwnerRole entity.Role
}

// ScopeFor traduce el principal en su alcance de lectura.
// Un rol desconocido devuelve domain.ErrForbidden.
func ScopeFor(p entity.Principal) (Scope, error) {
	switch p.Role {
	case entity.RoleAdmin:
		return Scope{Kind: KindAll}, nil
	case entity.RoleSalesManager:
		return Scope{Kind: KindOwnerRole, OwnerRole: entity.RoleSalesRep}, nil
	case entity.RoleSalesRep:
		return Scope{Kind: KindOwner, OwnerID: p.ID}, nil
	default:
		return Scope{}, domain.ErrForbidden
	}
}

// Allows aplica el mismo criterio a un único registro.
func (s Scope) Allows(ownerID int64, ownerRole entity.Role) bool {
	switch s.Kind {
	case KindAll:
		return true
	case KindOwnerRole:
		return ownerRole == s.OwnerRole
	case KindOwner:
		return ownerID == s.OwnerID
	default:
		return false
	}
}

// Visible ejecuta accessor con el alcance del principal: devuelve solo lo que el principal puede ver.
func Visible[T any](ctx context.Context, p entity.Principal, accessor func(context.Context, Scope) ([]T, error)) ([]T, error) {
	scope, err := ScopeFor(p)
	if err != nil {
		return nil, err
	}
	return accessor(ctx, scope)
}

// CanView verifica la lectura de un registro concreto.
func CanView(p entity.Principal, ownerID int64, ownerRole entity.Role) error {
	scope, err := ScopeFor(p)
	if err != nil {
		return err
	}
	if !scope.Allows(ownerID, ownerRole) {
		return domain.ErrForbidden
	}
	return nil
}

// CanMutate verifica update/delete: ADMIN siempre, SALES_REP solo lo propio.
// SALES_MANAGER tiene acceso de solo lectura.
func CanMutate(p entity.Principal, ownerID int64) error {
	switch p.Role {
	case entity.RoleAdmin:
		return nil
	case entity.RoleSalesRep:
		if ownerID != p.ID {
			return domain.ErrForbidden
		}
		return nil
	default:
		return domain.ErrForbidden
	}
}

// CanCreateFor verifica la creación: SALES_MANAGER no crea; un no-ADMIN solo crea para sí mismo.
// Devuelve el owner efectivo (explicitOwner o el propio principal).
func CanCreateFor(p entity.Principal, explicitOwner *int64) (int64, error) {
	switch p.Role {
	case entity.RoleAdmin, entity.RoleSalesRep:
	default:
		return 0, domain.ErrForbidden
	}
	if explicitOwner == nil {
		return p.ID, nil
	}
	if !p.IsAdmin() && *explicitOwner != p.ID {
		return 0, domain.ErrForbidden
	}
	return *explicitOwner, nil
}
