package entity

import "time"

// Role rol comercial de un usuario.
type Role string

// Roles válidos para User.
const (
	RoleAdmin        Role = "ADMIN"
	RoleSalesManager Role = "SALES_MANAGER"
	RoleSalesRep     Role = "SALES_REP"
)

// Valid indica si el rol es uno de los conocidos.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSalesManager, RoleSalesRep:
		return true
	}
	return false
}

// User representa un usuario del CRM.
type User struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string // bcrypt hash, nunca plano en dominio después de persistir
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal es el actor autenticado de una petición. Se deriva del token, no se persiste.
type Principal struct {
	ID   int64
	Role Role
}

// IsAdmin atajo para el rol ADMIN.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// Owner resumen del propietario que se adjunta a leads y deals al leerlos.
type Owner struct {
	ID    int64
	Name  string
	Email string
	Role  Role
}
