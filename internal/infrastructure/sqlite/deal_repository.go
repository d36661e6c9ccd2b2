package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

// DealRepo implementación de DealRepository sobre SQLite.
type DealRepo struct {
	q Querier
}

// NewDealRepository construye el adaptador. Pasar db o tx (Querier).
func NewDealRepository(q Querier) *DealRepo {
	return &DealRepo{q: q}
}

// Create persiste un nuevo deal.
func (r *DealRepo) Create(ctx context.Context, deal *entity.Deal) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO deals (id, name, deal_value, forecast_value, expected_close_date, close_probability,
		                   stage, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		deal.ID, deal.Name, deal.DealValue.String(), deal.ForecastValue.String(), formatDate(deal.ExpectedCloseDate),
		deal.CloseProbability, string(deal.Stage), deal.OwnerID,
		formatTimestamp(deal.CreatedAt), formatTimestamp(deal.UpdatedAt),
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
	d, err := scanDeal(r.q.QueryRowContext(ctx, dealSelect+` WHERE d.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get deal: %w", err)
	}
	return d, nil
}

// GetForUpdate en SQLite equivale a GetByID: la única conexión ya serializa la transacción.
func (r *DealRepo) GetForUpdate(ctx context.Context, id string) (*entity.Deal, error) {
	return r.GetByID(ctx, id)
}

// List deals visibles según scope, filtrados por search, ordenados por creación ascendente.
func (r *DealRepo) List(ctx context.Context, scope access.Scope, search repository.DealSearch) ([]*entity.Deal, error) {
	var args []any
	where := scopePredicate(scope, "d", &args)
	if search.Term != "" {
		cond := foldLike("d.name")
		args = append(args, likePattern(search.Term))
		if in := inList("d.stage", search.Stages, &args); in != "" {
			cond += " OR " + in
		}
		where += " AND (" + cond + ")"
	}
	rows, err := r.q.QueryContext(ctx, dealSelect+` WHERE `+where+` ORDER BY d.created_at ASC, d.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list deals: %w", err)
	}
	defer func() { _ = rows.Close() }()
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
	res, err := r.q.ExecContext(ctx, `
		UPDATE deals SET name = ?, deal_value = ?, forecast_value = ?, expected_close_date = ?,
		                 close_probability = ?, stage = ?, updated_at = ?
		WHERE id = ?`,
		deal.Name, deal.DealValue.String(), deal.ForecastValue.String(), formatDate(deal.ExpectedCloseDate),
		deal.CloseProbability, string(deal.Stage), formatTimestamp(deal.UpdatedAt), deal.ID,
	)
	if err != nil {
		return fmt.Errorf("update deal: %w", err)
	}
	return requireAffected(res, domain.ErrNotFound)
}

// Delete elimina un deal por ID.
func (r *DealRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete deal: %w", err)
	}
	return requireAffected(res, domain.ErrNotFound)
}

// CountByStage conteo de deals visibles agrupado por etapa.
func (r *DealRepo) CountByStage(ctx context.Context, scope access.Scope) ([]repository.StageCount, error) {
	var args []any
	query := `
		SELECT d.stage, COUNT(*)
		FROM deals d
		JOIN users u ON u.id = d.owner_id
		WHERE ` + scopePredicate(scope, "d", &args) + `
		GROUP BY d.stage`
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count deals by stage: %w", err)
	}
	defer func() { _ = rows.Close() }()
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

// MonthlyForecast suma forecast_value por mes (año + mes) de expected_close_date.
// La suma se hace en Go con decimal: SUM() de SQLite sobre TEXT pasaría por float.
func (r *DealRepo) MonthlyForecast(ctx context.Context, scope access.Scope) ([]repository.MonthlyForecastResult, error) {
	var args []any
	query := `
		SELECT d.expected_close_date, d.forecast_value
		FROM deals d
		JOIN users u ON u.id = d.owner_id
		WHERE d.expected_close_date IS NOT NULL AND ` + scopePredicate(scope, "d", &args) + `
		ORDER BY d.expected_close_date ASC`
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monthly forecast: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []repository.MonthlyForecastResult
	index := make(map[time.Time]int)
	for rows.Next() {
		var (
			closeDate string
			forecast  decimal.Decimal
		)
		if err := rows.Scan(&closeDate, &forecast); err != nil {
			return nil, fmt.Errorf("scan monthly forecast: %w", err)
		}
		date, err := time.Parse(dateLayout, closeDate)
		if err != nil {
			return nil, fmt.Errorf("parse expected_close_date %q: %w", closeDate, err)
		}
		month := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
		i, ok := index[month]
		if !ok {
			index[month] = len(out)
			out = append(out, repository.MonthlyForecastResult{Month: month, FirstCloseDate: date, TotalForecastValue: forecast})
			continue
		}
		out[i].TotalForecastValue = out[i].TotalForecastValue.Add(forecast)
	}
	return out, rows.Err()
}

func scanDeal(row rowScanner) (*entity.Deal, error) {
	var (
		d                    entity.Deal
		o                    entity.Owner
		closeDate            sql.NullString
		stage, ownerRole     string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&d.ID, &d.Name, &d.DealValue, &d.ForecastValue, &closeDate, &d.CloseProbability,
		&stage, &d.OwnerID, &createdAt, &updatedAt,
		&o.ID, &o.Name, &o.Email, &ownerRole,
	)
	if err != nil {
		return nil, err
	}
	d.Stage = entity.DealStage(stage)
	o.Role = entity.Role(ownerRole)
	d.Owner = &o
	if d.ExpectedCloseDate, err = parseDate(closeDate); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}
