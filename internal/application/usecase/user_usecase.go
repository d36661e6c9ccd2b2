package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

// UserUseCase aplica reglas de negocio para usuarios.
type UserUseCase struct {
	repo            repository.UserRepository
	defaultPassword string
}

// NewUserUseCase construye el caso de uso. defaultPassword se asigna a los usuarios creados sin password.
func NewUserUseCase(repo repository.UserRepository, defaultPassword string) *UserUseCase {
	return &UserUseCase{repo: repo, defaultPassword: defaultPassword}
}

// Create crea un usuario (solo ADMIN). Email duplicado → ErrEmailAlreadyExists.
func (uc *UserUseCase) Create(ctx context.Context, p entity.Principal, in dto.CreateUserRequest) (*dto.UserResponse, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name y email son requeridos", domain.ErrInvalidInput)
	}
	role := entity.Role(in.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("%w: role desconocido %q", domain.ErrInvalidInput, in.Role)
	}
	existing, err := uc.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	password := in.Password
	if password == "" {
		password = uc.defaultPassword
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &entity.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	return UserToResponse(user), nil
}

// List lista todos los usuarios (solo ADMIN).
func (uc *UserUseCase) List(ctx context.Context, p entity.Principal) ([]dto.UserResponse, error) {
	if !p.IsAdmin() {
		return nil, domain.ErrForbidden
	}
	users, err := uc.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, *UserToResponse(u))
	}
	return out, nil
}

// Get obtiene un usuario. ADMIN ve a cualquiera; el resto solo a sí mismo.
func (uc *UserUseCase) Get(ctx context.Context, p entity.Principal, id int64) (*dto.UserResponse, error) {
	if !p.IsAdmin() && p.ID != id {
		return nil, domain.ErrForbidden
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return UserToResponse(user), nil
}

// Me devuelve el usuario autenticado.
func (uc *UserUseCase) Me(ctx context.Context, p entity.Principal) (*dto.MeResponse, error) {
	user, err := uc.Get(ctx, p, p.ID)
	if err != nil {
		return nil, err
	}
	return &dto.MeResponse{User: *user}, nil
}

// Update actualización parcial. Un no-ADMIN solo se edita a sí mismo y no puede cambiar su rol.
func (uc *UserUseCase) Update(ctx context.Context, p entity.Principal, id int64, in dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if !p.IsAdmin() && (p.ID != id || in.Role != nil) {
		return nil, domain.ErrForbidden
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name no puede quedar vacío", domain.ErrInvalidInput)
		}
		user.Name = name
	}
	if in.Email != nil {
		email := normalizeEmail(*in.Email)
		if email == "" {
			return nil, fmt.Errorf("%w: email no puede quedar vacío", domain.ErrInvalidInput)
		}
		if email != user.Email {
			other, err := uc.repo.GetByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if other != nil {
				return nil, domain.ErrEmailAlreadyExists
			}
			user.Email = email
		}
	}
	if in.Role != nil {
		role := entity.Role(*in.Role)
		if !role.Valid() {
			return nil, fmt.Errorf("%w: role desconocido %q", domain.ErrInvalidInput, *in.Role)
		}
		user.Role = role
	}
	user.UpdatedAt = time.Now().UTC()
	if err := uc.repo.Update(ctx, user); err != nil {
		return nil, err
	}
	return UserToResponse(user), nil
}

// Delete elimina un usuario (solo ADMIN). Un ADMIN no puede eliminarse a sí mismo.
func (uc *UserUseCase) Delete(ctx context.Context, p entity.Principal, id int64) error {
	if !p.IsAdmin() {
		return domain.ErrForbidden
	}
	if p.ID == id {
		return fmt.Errorf("%w: no puede eliminar su propio usuario", domain.ErrConflict)
	}
	user, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil {
		return domain.ErrUserNotFound
	}
	return uc.repo.Delete(ctx, id)
}

// HashPassword bcrypt con el coste por defecto.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserToResponse convierte la entidad en su DTO de salida (sin hash).
func UserToResponse(u *entity.User) *dto.UserResponse {
	if u == nil {
		return nil
	}
	return &dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
