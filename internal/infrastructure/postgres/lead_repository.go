package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/crm-api/internal/domain"
	"github.com/jhoicas/crm-api/internal/domain/access"
	"github.com/jhoicas/crm-api/internal/domain/entity"
	"github.com/jhoicas/crm-api/internal/domain/repository"
)

var _ repository.LeadRepository = (*LeadRepo)(nil)

const leadSelect = `
	SELECT l.id, l.name, l.email, l.phone, l.company, l.status, l.owner_id, l.created_at, l.updated_at,
	       u.id, u.name, u.email, u.role
	FROM leads l
	JOIN users u ON u.id = l.owner_id`

// LeadRepo implementación de LeadRepository (usable con pool o tx).
type LeadRepo struct {
	q Querier
}

// NewLeadRepository construye el adaptador. Pasar pool o tx (Querier).
func NewLeadRepository(q Querier) *LeadRepo {
	return &LeadRepo{q: q}
}

// Create persiste un nuevo lead.
func (r *LeadRepo) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (id, name, email, phone, company, status, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company, string(lead.Status), lead.OwnerID,
		lead.CreatedAt, lead.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

// GetByID obtiene un lead con el resumen de su propietario.
func (r *LeadRepo) GetByID(ctx context.Context, id string) (*entity.Lead, error) {
	l, err := scanLead(r.q.QueryRow(ctx, leadSelect+` WHERE l.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// List leads visibles según scope, filtrados por search, ordenados por creación ascendente.
func (r *LeadRepo) List(ctx context.Context, scope access.Scope, search repository.LeadSearch) ([]*entity.Lead, error) {
	var args queryArgs
	where := scopePredicate(scope, "l", &args)
	if search.Term != "" {
		p := args.add(likePattern(search.Term))
		statuses := make([]string, 0, len(search.Statuses))
		for _, s := range search.Statuses {
			statuses = append(statuses, string(s))
		}
		where += fmt.Sprintf(
			` AND (l.name ILIKE %[1]s OR l.email ILIKE %[1]s OR l.phone ILIKE %[1]s OR l.company ILIKE %[1]s OR l.status = ANY(%[2]s))`,
			p, args.add(statuses),
		)
	}
	rows, err := r.q.Query(ctx, leadSelect+` WHERE `+where+` ORDER BY l.created_at ASC, l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer rows.Close()
	var list []*entity.Lead
	for rows.Next() {
		l, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

// Update actualiza los campos editables de un lead.
func (r *LeadRepo) Update(ctx context.Context, lead *entity.Lead) error {
	query := `
		UPDATE leads SET name = $2, email = $3, phone = $4, company = $5, status = $6, updated_at = $7
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company, string(lead.Status), lead.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete elimina un lead por ID.
func (r *LeadRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CountByStatus conteo de leads visibles agrupado por estado.
func (r *LeadRepo) CountByStatus(ctx context.Context, scope access.Scope) ([]repository.StatusCount, error) {
	var args queryArgs
	query := `
		SELECT l.status, COUNT(*)
		FROM leads l
		JOIN users u ON u.id = l.owner_id
		WHERE ` + scopePredicate(scope, "l", &args) + `
		GROUP BY l.status`
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}
	defer rows.Close()
	var out []repository.StatusCount
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		out = append(out, repository.StatusCount{Status: entity.LeadStatus(status), Count: n})
	}
	return out, rows.Err()
}

func scanLead(row pgx.Row) (*entity.Lead, error) {
	var (
		l         entity.Lead
		o         entity.Owner
		status    string
		ownerRole string
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &status, &l.OwnerID, &l.CreatedAt, &l.UpdatedAt,
		&o.ID, &o.Name, &o.Email, &ownerRole,
	)
	if err != nil {
		return nil, err
	}
	l.Status = entity.LeadStatus(status)
	o.Role = entity.Role(ownerRole)
	l.Owner = &o
	return &l, nil
}
