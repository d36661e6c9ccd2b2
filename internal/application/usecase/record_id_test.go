package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/usecase"
	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

// errUUIDSyntax lo que devuelve Postgres (SQLSTATE 22P02) al comparar una columna UUID con texto arbitrario.
var errUUIDSyntax = errors.New(`ERROR: invalid input syntax for type uuid: "no-es-uuid" (SQLSTATE 22P02)`)

type uuidColumnDeals struct{ repository.DealRepository }

func (uuidColumnDeals) GetByID(context.Context, string) (*entity.Deal, error)      { return nil, errUUIDSyntax }
func (uuidColumnDeals) GetForUpdate(context.Context, string) (*entity.Deal, error) { return nil, errUUIDSyntax }
func (uuidColumnDeals) Delete(context.Context, string) error                       { return errUUIDSyntax }

type uuidColumnTx struct{}

func (uuidColumnTx) RunDeals(_ context.Context, fn func(repository.DealRepository) error) error {
	return fn(uuidColumnDeals{})
}

type uuidColumnLeads struct{ repository.LeadRepository }

func (uuidColumnLeads) GetByID(context.Context, string) (*entity.Lead, error) { return nil, errUUIDSyntax }
func (uuidColumnLeads) Delete(context.Context, string) error                 { return errUUIDSyntax }

func TestDeal_IDMalformadoEsNotFound(t *testing.T) {
	uc := usecase.NewDealUseCase(uuidColumnDeals{}, nil, uuidColumnTx{}, &recordingNotifier{}, nil)
	ctx := context.Background()
	admin := entity.Principal{ID: 1, Role: entity.RoleAdmin}

	for _, id := range []string{"no-es-uuid", "", "123"} {
		_, err := uc.Get(ctx, admin, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)

		_, err = uc.Update(ctx, admin, id, dto.UpdateDealRequest{Name: strPtr("x")})
		assert.ErrorIs(t, err, domain.ErrNotFound, id)

		assert.ErrorIs(t, uc.Remove(ctx, admin, id), domain.ErrNotFound, id)
	}
}

func TestLead_IDMalformadoEsNotFound(t *testing.T) {
	uc := usecase.NewLeadUseCase(uuidColumnLeads{}, nil)
	ctx := context.Background()
	admin := entity.Principal{ID: 1, Role: entity.RoleAdmin}

	_, err := uc.Get(ctx, admin, "no-es-uuid")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.Update(ctx, admin, "no-es-uuid", dto.UpdateLeadRequest{Name: strPtr("x")})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, uc.Remove(ctx, admin, "no-es-uuid"), domain.ErrNotFound)
}
