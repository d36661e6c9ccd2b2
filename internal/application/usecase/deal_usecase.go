package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/crm-api/internal/application/dto"
	"github.com/jhoicas/crm-api/internal/application/notification"
	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/access"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// notifier es lo único que DealUseCase necesita del dispatcher.
type notifier interface {
	Dispatch(ctx context.Context, userID int64, message string, t notification.Type) bool
}

// DealUseCase reglas de negocio de deals: propiedad, probabilidad por etapa y forecast.
type DealUseCase struct {
	repo     repository.DealRepository
	users    repository.UserRepository
	tx       repository.TxRunner
	notifier notifier
	log      *logger.Logger
}

// NewDealUseCase construye el caso de uso. log puede ser nil.
func NewDealUseCase(
	repo repository.DealRepository,
	users repository.UserRepository,
	tx repository.TxRunner,
	notifier notifier,
	log *logger.Logger,
) *DealUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &DealUseCase{repo: repo, users: users, tx: tx, notifier: notifier, log: log.Component("deals")}
}

// Create crea un deal.
//
// Probabilidad: PROPOSAL_SENT=30, NEGOTIATION=50, CLOSED_WON=100, CLOSED_LOST=0; cualquier otra etapa
// (o sin etapa) usa close_probability o 0. forecast = deal_value × probabilidad / 100.
// Tras persistir envía DEAL_CREATED a la conexión del propio solicitante (best-effort).
func (uc *DealUseCase) Create(ctx context.Context, p entity.Principal, in dto.CreateDealRequest) (*dto.DealResponse, error) {
	ownerID, err := access.CanCreateFor(p, in.OwnerID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name es requerido", domain.ErrInvalidInput)
	}
	if ownerID != p.ID {
		if err := uc.ensureUserExists(ctx, ownerID); err != nil {
			return nil, err
		}
	}

	stage := entity.DealStageProspect
	var requested entity.DealStage
	if in.Stage != nil {
		requested = entity.DealStage(*in.Stage)
		if !requested.Valid() {
			return nil, fmt.Errorf("%w: stage desconocido %q", domain.ErrInvalidInput, *in.Stage)
		}
		stage = requested
	}

	probability, fixed := entity.StageProbability(requested)
	if !fixed && in.CloseProbability != nil {
		if err := validateProbability(*in.CloseProbability); err != nil {
			return nil, err
		}
		probability = *in.CloseProbability
	}

	dealValue := decimal.Zero
	if in.DealValue != nil {
		if in.DealValue.IsNegative() {
			return nil, fmt.Errorf("%w: deal_value no puede ser negativo", domain.ErrInvalidInput)
		}
		dealValue = *in.DealValue
	}

	var closeDate *time.Time
	if in.ExpectedCloseDate != nil {
		if closeDate, err = parseDate(*in.ExpectedCloseDate); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	deal := &entity.Deal{
		ID:                uuid.New().String(),
		Name:              name,
		DealValue:         dealValue,
		ExpectedCloseDate: closeDate,
		CloseProbability:  probability,
		Stage:             stage,
		OwnerID:           ownerID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	deal.Recalculate()

	if err := uc.repo.Create(ctx, deal); err != nil {
		return nil, err
	}
	uc.log.Info().Str("deal_id", deal.ID).Int64("owner_id", ownerID).Str("stage", string(stage)).Msg("deal creado")

	uc.notifier.Dispatch(ctx, p.ID, fmt.Sprintf("Nuevo deal creado: %s", deal.Name), notification.TypeDealCreated)

	return DealToResponse(deal), nil
}

// Get obtiene un deal aplicando la visibilidad por rol.
func (uc *DealUseCase) Get(ctx context.Context, p entity.Principal, id string) (*dto.DealResponse, error) {
	if err := checkRecordID(id); err != nil {
		return nil, err
	}
	deal, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, domain.ErrNotFound
	}
	if err := access.CanView(p, deal.OwnerID, ownerRole(deal.Owner)); err != nil {
		return nil, err
	}
	return DealToResponse(deal), nil
}

// List devuelve los deals visibles, opcionalmente filtrados por nombre o etapa.
func (uc *DealUseCase) List(ctx context.Context, p entity.Principal, search string) (*dto.DealListResponse, error) {
	term := strings.TrimSpace(search)
	deals, err := access.Visible(ctx, p, func(ctx context.Context, scope access.Scope) ([]*entity.Deal, error) {
		return uc.repo.List(ctx, scope, repository.DealSearch{
			Term:   term,
			Stages: entity.MatchingDealStages(term),
		})
	})
	if err != nil {
		return nil, err
	}
	out := make([]dto.DealResponse, 0, len(deals))
	for _, d := range deals {
		out = append(out, *DealToResponse(d))
	}
	return &dto.DealListResponse{Data: out}, nil
}

// Update aplica una actualización parcial dentro de una transacción.
//
// close_probability: CLOSED_WON fuerza 100; si no, el valor enviado o el almacenado
// (nunca se recalcula desde la etapa). forecast_value se recalcula siempre.
func (uc *DealUseCase) Update(ctx context.Context, p entity.Principal, id string, in dto.UpdateDealRequest) (*dto.DealResponse, error) {
	if err := checkRecordID(id); err != nil {
		return nil, err
	}
	var (
		updated   *entity.Deal
		prevStage entity.DealStage
	)
	err := uc.tx.RunDeals(ctx, func(deals repository.DealRepository) error {
		deal, err := deals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if deal == nil {
			return domain.ErrNotFound
		}
		if err := access.CanMutate(p, deal.OwnerID); err != nil {
			return err
		}
		prevStage = deal.Stage

		if err := applyDealPatch(deal, in); err != nil {
			return err
		}
		deal.UpdatedAt = time.Now().UTC()
		if err := deals.Update(ctx, deal); err != nil {
			return err
		}
		updated = deal
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.notifyStageTransition(ctx, prevStage, updated)
	return DealToResponse(updated), nil
}

// Remove elimina un deal (hard delete) con las mismas verificaciones que Update.
func (uc *DealUseCase) Remove(ctx context.Context, p entity.Principal, id string) error {
	if err := checkRecordID(id); err != nil {
		return err
	}
	return uc.tx.RunDeals(ctx, func(deals repository.DealRepository) error {
		deal, err := deals.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if deal == nil {
			return domain.ErrNotFound
		}
		if err := access.CanMutate(p, deal.OwnerID); err != nil {
			return err
		}
		return deals.Delete(ctx, id)
	})
}

func applyDealPatch(deal *entity.Deal, in dto.UpdateDealRequest) error {
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return fmt.Errorf("%w: name no puede quedar vacío", domain.ErrInvalidInput)
		}
		deal.Name = name
	}
	if in.DealValue != nil {
		if in.DealValue.IsNegative() {
			return fmt.Errorf("%w: deal_value no puede ser negativo", domain.ErrInvalidInput)
		}
		deal.DealValue = *in.DealValue
	}
	if in.ExpectedCloseDate != nil {
		d, err := parseDate(*in.ExpectedCloseDate)
		if err != nil {
			return err
		}
		deal.ExpectedCloseDate = d
	}
	if in.Stage != nil {
		stage := entity.DealStage(*in.Stage)
		if !stage.Valid() {
			return fmt.Errorf("%w: stage desconocido %q", domain.ErrInvalidInput, *in.Stage)
		}
		deal.Stage = stage
	}

	switch {
	case in.Stage != nil && entity.DealStage(*in.Stage) == entity.DealStageClosedWon:
		deal.CloseProbability = 100
	case in.CloseProbability != nil:
		if err := validateProbability(*in.CloseProbability); err != nil {
			return err
		}
		deal.CloseProbability = *in.CloseProbability
	}
	deal.Recalculate()
	return nil
}

// notifyStageTransition avisa al propietario cuando el deal entra en NEGOTIATION o CLOSED_WON.
func (uc *DealUseCase) notifyStageTransition(ctx context.Context, prev entity.DealStage, deal *entity.Deal) {
	if deal == nil || prev == deal.Stage {
		return
	}
	switch deal.Stage {
	case entity.DealStageClosedWon:
		uc.notifier.Dispatch(ctx, deal.OwnerID, fmt.Sprintf("Deal ganado: %s", deal.Name), notification.TypeDealWon)
	case entity.DealStageNegotiation:
		uc.notifier.Dispatch(ctx, deal.OwnerID, fmt.Sprintf("Deal en negociación: %s", deal.Name), notification.TypeDealNegotiation)
	}
}

func (uc *DealUseCase) ensureUserExists(ctx context.Context, id int64) error {
	u, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u == nil {
		return fmt.Errorf("%w: owner %d", domain.ErrUserNotFound, id)
	}
	return nil
}

// checkRecordID los ids de leads y deals son UUID; cualquier otro valor no existe.
func checkRecordID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return domain.ErrNotFound
	}
	return nil
}

func validateProbability(v int) error {
	if v < 0 || v > 100 {
		return fmt.Errorf("%w: close_probability debe estar entre 0 y 100", domain.ErrInvalidInput)
	}
	return nil
}

// parseDate acepta "2006-01-02" o RFC3339. Cadena vacía borra la fecha.
func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(dto.DateLayout, s); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("%w: expected_close_date inválida %q", domain.ErrInvalidInput, s)
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

func ownerRole(o *entity.Owner) entity.Role {
	if o == nil {
		return ""
	}
	return o.Role
}

func toOwnerResponse(o *entity.Owner) *dto.OwnerResponse {
	if o == nil {
		return nil
	}
	return &dto.OwnerResponse{ID: o.ID, Name: o.Name, Email: o.Email}
}

// DealToResponse convierte la entidad en su DTO de salida.
func DealToResponse(d *entity.Deal) *dto.DealResponse {
	if d == nil {
		return nil
	}
	var closeDate *string
	if d.ExpectedCloseDate != nil {
		s := d.ExpectedCloseDate.Format(dto.DateLayout)
		closeDate = &s
	}
	return &dto.DealResponse{
		ID:                d.ID,
		Name:              d.Name,
		DealValue:         d.DealValue,
		ForecastValue:     d.ForecastValue,
		ExpectedCloseDate: closeDate,
		CloseProbability:  d.CloseProbability,
		Stage:             string(d.Stage),
		OwnerID:           d.OwnerID,
		Owner:             toOwnerResponse(d.Owner),
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}
