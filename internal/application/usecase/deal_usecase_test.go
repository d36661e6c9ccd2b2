package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/notification"
	"github.com/jhoicas/crm-api/internal/domain"
)

func money(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDeal_CicloNegociacionAGanado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.deals.Create(ctx, f.repA, dto.CreateDealRequest{
		Name:      "Acme",
		DealValue: money("1000"),
		Stage:     strPtr("NEGOTIATION"),
	})
	require.NoError(t, err)
	assert.Equal(t, 50, created.CloseProbability)
	assert.True(t, decimal.NewFromInt(500).Equal(created.ForecastValue))
	assert.Equal(t, f.repA.ID, created.OwnerID)

	updated, err := f.deals.Update(ctx, f.repA, created.ID, dto.UpdateDealRequest{Stage: strPtr("CLOSED_WON")})
	require.NoError(t, err)
	assert.Equal(t, "CLOSED_WON", updated.Stage)
	assert.Equal(t, 100, updated.CloseProbability)
	assert.True(t, decimal.NewFromInt(1000).Equal(updated.ForecastValue))

	got, err := f.deals.Get(ctx, f.admin, created.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1000).Equal(got.ForecastValue))
	require.NotNil(t, got.Owner)
	assert.Equal(t, "ana@crm.test", got.Owner.Email)

	assert.Equal(t, []sent{
		{UserID: f.repA.ID, Message: "Nuevo deal creado: Acme", Type: notification.TypeDealCreated},
		{UserID: f.repA.ID, Message: "Deal ganado: Acme", Type: notification.TypeDealWon},
	}, f.notifier.all())
}

func TestDeal_CreateSinEtapaUsaCloseProbability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.deals.Create(ctx, f.repA, dto.CreateDealRequest{
		Name:              "Globex",
		DealValue:         money("200"),
		CloseProbability:  intPtr(25),
		ExpectedCloseDate: strPtr("2026-03-15"),
	})
	require.NoError(t, err)
	assert.Equal(t, "PROSPECT", d.Stage)
	assert.Equal(t, 25, d.CloseProbability)
	assert.True(t, decimal.NewFromInt(50).Equal(d.ForecastValue))
	require.NotNil(t, d.ExpectedCloseDate)
	assert.Equal(t, "2026-03-15", *d.ExpectedCloseDate)

	// la etapa con probabilidad fija ignora close_probability
	d, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{
		Name:             "Initech",
		DealValue:        money("100"),
		Stage:            strPtr("PROPOSAL_SENT"),
		CloseProbability: intPtr(90),
	})
	require.NoError(t, err)
	assert.Equal(t, 30, d.CloseProbability)
}

func TestDeal_CreateValidaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "X", Stage: strPtr("WON")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "X", CloseProbability: intPtr(101)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "X", DealValue: money("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "X", ExpectedCloseDate: strPtr("15/03/2026")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.deals.Create(ctx, f.manager, dto.CreateDealRequest{Name: "X"})
	assert.ErrorIs(t, err, domain.ErrForbidden, "el manager es de solo lectura")

	_, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "X", OwnerID: idPtr(f.repB.ID)})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = f.deals.Create(ctx, f.admin, dto.CreateDealRequest{Name: "X", OwnerID: idPtr(999)})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestDeal_AdminCreaParaOtroUsuario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.deals.Create(ctx, f.admin, dto.CreateDealRequest{Name: "Acme", OwnerID: idPtr(f.repB.ID)})
	require.NoError(t, err)
	assert.Equal(t, f.repB.ID, d.OwnerID)

	_, err = f.deals.Get(ctx, f.repB, d.ID)
	assert.NoError(t, err)
	require.Len(t, f.notifier.all(), 1)
	assert.Equal(t, f.admin.ID, f.notifier.all()[0].UserID, "DEAL_CREATED va al solicitante")
}

func TestDeal_VisibilidadPorRol(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "De Ana"})
	require.NoError(t, err)
	_, err = f.deals.Create(ctx, f.repB, dto.CreateDealRequest{Name: "De Beto"})
	require.NoError(t, err)
	_, err = f.deals.Create(ctx, f.admin, dto.CreateDealRequest{Name: "Del admin"})
	require.NoError(t, err)

	_, err = f.deals.Get(ctx, f.repB, a.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	list, err := f.deals.List(ctx, f.repA, "")
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "De Ana", list.Data[0].Name)

	list, err = f.deals.List(ctx, f.manager, "")
	require.NoError(t, err)
	assert.Len(t, list.Data, 2, "el manager ve los deals de los SALES_REP")

	list, err = f.deals.List(ctx, f.admin, "")
	require.NoError(t, err)
	assert.Len(t, list.Data, 3)

	_, err = f.deals.Get(ctx, f.admin, "no-existe")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeal_MutacionSoloPropietarioOAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "Acme", DealValue: money("1000")})
	require.NoError(t, err)

	_, err = f.deals.Update(ctx, f.repB, d.ID, dto.UpdateDealRequest{Name: strPtr("Robado")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.deals.Update(ctx, f.manager, d.ID, dto.UpdateDealRequest{Name: strPtr("Manager")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.ErrorIs(t, f.deals.Remove(ctx, f.repB, d.ID), domain.ErrForbidden)

	got, err := f.deals.Get(ctx, f.repA, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name, "la transacción revertida no deja cambios")

	upd, err := f.deals.Update(ctx, f.admin, d.ID, dto.UpdateDealRequest{CloseProbability: intPtr(40)})
	require.NoError(t, err)
	assert.Equal(t, 40, upd.CloseProbability)
	assert.True(t, decimal.NewFromInt(400).Equal(upd.ForecastValue))

	require.NoError(t, f.deals.Remove(ctx, f.repA, d.ID))
	_, err = f.deals.Get(ctx, f.repA, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, f.deals.Remove(ctx, f.repA, d.ID), domain.ErrNotFound)
}

func TestDeal_UpdateConservaProbabilidadYRecalculaForecast(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "Acme", DealValue: money("1000"), Stage: strPtr("PROPOSAL_SENT")})
	require.NoError(t, err)

	upd, err := f.deals.Update(ctx, f.repA, d.ID, dto.UpdateDealRequest{DealValue: money("2000")})
	require.NoError(t, err)
	assert.Equal(t, 30, upd.CloseProbability)
	assert.True(t, decimal.NewFromInt(600).Equal(upd.ForecastValue))

	// pasar a NEGOTIATION no recalcula la probabilidad desde la etapa
	upd, err = f.deals.Update(ctx, f.repA, d.ID, dto.UpdateDealRequest{Stage: strPtr("NEGOTIATION")})
	require.NoError(t, err)
	assert.Equal(t, 30, upd.CloseProbability)

	upd, err = f.deals.Update(ctx, f.repA, d.ID, dto.UpdateDealRequest{ExpectedCloseDate: strPtr("2026-05-01T10:00:00Z")})
	require.NoError(t, err)
	require.NotNil(t, upd.ExpectedCloseDate)
	assert.Equal(t, "2026-05-01", *upd.ExpectedCloseDate)

	upd, err = f.deals.Update(ctx, f.repA, d.ID, dto.UpdateDealRequest{ExpectedCloseDate: strPtr("")})
	require.NoError(t, err)
	assert.Nil(t, upd.ExpectedCloseDate)

	_, err = f.deals.Update(ctx, f.repA, d.ID, dto.UpdateDealRequest{Name: strPtr(" ")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	sentList := f.notifier.all()
	require.Len(t, sentList, 2)
	assert.Equal(t, notification.TypeDealNegotiation, sentList[1].Type)
	assert.Equal(t, "Deal en negociación: Acme", sentList[1].Message)
}

func TestDeal_BusquedaPorNombreOEtapa(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "Acme Corp", Stage: strPtr("NEGOTIATION")})
	require.NoError(t, err)
	_, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "Globex", Stage: strPtr("CLOSED_WON")})
	require.NoError(t, err)
	_, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "100%_real"})
	require.NoError(t, err)

	list, err := f.deals.List(ctx, f.repA, "acme")
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Acme Corp", list.Data[0].Name)

	list, err = f.deals.List(ctx, f.repA, "closed")
	require.NoError(t, err)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "Globex", list.Data[0].Name)

	list, err = f.deals.List(ctx, f.repA, "%_")
	require.NoError(t, err)
	require.Len(t, list.Data, 1, "los comodines se buscan literalmente")
	assert.Equal(t, "100%_real", list.Data[0].Name)
}

func TestDeal_BusquedaSinDistinguirMayusculasNoASCII(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "ÑANDÚ Corp"})
	require.NoError(t, err)
	_, err = f.deals.Create(ctx, f.repA, dto.CreateDealRequest{Name: "Globex"})
	require.NoError(t, err)

	for _, term := range []string{"ñandú", "ÑANDÚ", "Ñandú corp"} {
		list, err := f.deals.List(ctx, f.repA, term)
		require.NoError(t, err)
		require.Len(t, list.Data, 1, term)
		assert.Equal(t, "ÑANDÚ Corp", list.Data[0].Name)
	}
}
