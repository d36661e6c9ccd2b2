package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/access"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

var _ repository.DealRepository = (*DealRepo)(nil)

const dealSelect = `
	SELECT d.id, d.name, d.deal_value, d.forecast_value, d.expected_close_date, d.close_probability,
	       d.stage, d.owner_id, d.created_at, d.updated_at,
	       u.id, u.name, u.email, u.role
	FROM deals d
	JOIN users u ON u.id = d.owner_id`

// DealRepo implementación de DealRepository (usable con pool o tx).
type DealRepo struct {
	q Querier
}

// NewDealRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDealRepository(q Querier) *DealRepo {
	return &DealRepo{q: q}
}

// Create persiste un nuevo deal.
func (r *DealRepo) Create(ctx context.Context, deal *entity.Deal) error {
	query := `
		INSERT INTO deals (id, name, deal_value, forecast_value, expected_close_date, close_probability,
		                   stage, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		deal.ID, deal.Name, deal.DealValue, deal.ForecastValue, deal.ExpectedCloseDate, deal.CloseProbability,
		string(deal.Stage), deal.OwnerID, deal.CreatedAt, deal.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("insert deal: %w", err)
	}
	return nil
}

// GetByID obtiene un deal con el resumen de su propietario.
func (r *DealRepo) GetByID(ctx context.Context, id string) (*entity.Deal, error) {
	return r.getOne(ctx, dealSelect+` WHERE d.id = $1`, id)
}

// GetForUpdate igual que GetByID pero bloquea la fila del deal hasta el fin de la transacción.
func (r *DealRepo) GetForUpdate(ctx context.Context, id string) (*entity.Deal, error) {
	return r.getOne(ctx, dealSelect+` WHERE d.id = $1 FOR UPDATE OF d`, id)
}

func (r *DealRepo) getOne(ctx context.Context, query, id string) (*entity.Deal, error) {
	d, err := scanDeal(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return d, nil
}

// List deals visibles según scope, filtrados por search, ordenados por creación ascendente.
func (r *DealRepo) List(ctx context.Context, scope access.Scope, search repository.DealSearch) ([]*entity.Deal, error) {
	var args queryArgs
	where := scopePredicate(scope, "d", &args)
	if search.Term != "" {
		stages := make([]string, 0, len(search.Stages))
		for _, s := range search.Stages {
			stages = append(stages, string(s))
		}
		where += fmt.Sprintf(` AND (d.name ILIKE %s OR d.stage = ANY(%s))`,
			args.add(likePattern(search.Term)), args.add(stages))
	}
	rows, err := r.q.Query(ctx, dealSelect+` WHERE `+where+` ORDER BY d.created_at ASC, d.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer rows.Close()
	var list []*entity.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan deal: %w", err)
		}
		list = append(list, d)
	}
	return list, rows.Err()
}

// Update persiste todos los campos editables y derivados de un deal.
func (r *DealRepo) Update(ctx context.Context, deal *entity.Deal) error {
	query := `
		UPDATE deals SET name = $2, deal_value = $3, forecast_value = $4, expected_close_date = $5,
		                 close_probability = $6, stage = $7, updated_at = $8
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		deal.ID, deal.Name, deal.DealValue, deal.ForecastValue, deal.ExpectedCloseDate,
		deal.CloseProbability, string(deal.Stage), deal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina un deal por ID.
func (r *DealRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM deals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete deal: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByStage conteo de deals visibles agrupado por etapa.
func (r *DealRepo) CountByStage(ctx context.Context, scope access.Scope) ([]repository.StageCount, error) {
	var args queryArgs
	query := `
		SELECT d.stage, COUNT(*)
		FROM deals d
		JOIN users u ON u.id = d.owner_id
		WHERE ` + scopePredicate(scope, "d", &args) + `
		GROUP BY d.stage`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count deals by stage: %w", err)
	}
	defer rows.Close()
	var out []repository.StageCount
	for rows.Next() {
		var (
			stage string
			n     int
		)
		if err := rows.Scan(&stage, &n); err != nil {
			return nil, fmt.Errorf("scan stage count: %w", err)
		}
		out = append(out, repository.StageCount{Stage: entity.DealStage(stage), Count: n})
	}
	return out, rows.Err()
}

// MonthlyForecast SUM(forecast_value) por mes calendario (año + mes) de expected_close_date.
// Excluye deals sin fecha; ordena por la fecha más temprana de cada mes.
func (r *DealRepo) MonthlyForecast(ctx context.Context, scope access.Scope) ([]repository.MonthlyForecastResult, error) {
	var args queryArgs
	query := `
		SELECT date_trunc('month', d.expected_close_date)::date AS month,
		       MIN(d.expected_close_date)                         AS first_close_date,
		       COALESCE(SUM(d.forecast_value), 0)                 AS total
		FROM deals d
		JOIN users u ON u.id = d.owner_id
		WHERE d.expected_close_date IS NOT NULL AND ` + scopePredicate(scope, "d", &args) + `
		GROUP BY 1
		ORDER BY 2 ASC`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly forecast: %w", err)
	}
	defer rows.Close()
	var out []repository.MonthlyForecastResult
	for rows.Next() {
		var (
			month, first time.Time
			total        decimal.Decimal
		)
		if err := rows.Scan(&month, &first, &total); err != nil {
			return nil, fmt.Errorf("scan monthly forecast: %w", err)
		}
		out = append(out, repository.MonthlyForecastResult{Month: month, FirstCloseDate: first, TotalForecastValue: total})
	}
	return out, rows.Err()
}

func scanDeal(row pgx.Row) (*entity.Deal, error) {
	var (
		d         entity.Deal
		o         entity.Owner
		stage     string
		ownerRole string
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.DealValue, &d.ForecastValue, &d.ExpectedCloseDate, &d.CloseProbability,
		&stage, &d.OwnerID, &d.CreatedAt, &d.UpdatedAt,
		&o.ID, &o.Name, &o.Email, &ownerRole,
	)
	if err != nil {
		return nil, err
	}
	d.Stage = entity.DealStage(stage)
	o.Role = entity.Role(ownerRole)
	d.Owner = &o
	return &d, nil
}
