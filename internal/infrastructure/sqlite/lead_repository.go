package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

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

// LeadRepo implementación de LeadRepository sobre SQLite.
type LeadRepo struct {
	q Querier
}

// NewLeadRepository construye el adaptador. Pasar db o tx (Querier).
func NewLeadRepository(q Querier) *LeadRepo {
	return &LeadRepo{q: q}
}

// Create persiste un nuevo lead.
func (r *LeadRepo) Create(ctx context.Context, lead *entity.Lead) error {
	_, err := r.q.ExecContext(ctx, `
		INSERT INTO leads (id, name, email, phone, company, status, owner_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.Name, lead.Email, lead.Phone, lead.Company, string(lead.Status), lead.OwnerID,
		formatTimestamp(lead.CreatedAt), formatTimestamp(lead.UpdatedAt),
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
	l, err := scanLead(r.q.QueryRowContext(ctx, leadSelect+` WHERE l.id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lead: %w", err)
	}
	return l, nil
}

// List leads visibles según scope, filtrados por search, ordenados por creación ascendente.
func (r *LeadRepo) List(ctx context.Context, scope access.Scope, search repository.LeadSearch) ([]*entity.Lead, error) {
	var args []any
	where := scopePredicate(scope, "l", &args)
	if search.Term != "" {
		p := likePattern(search.Term)
		cond := strings.Join([]string{foldLike("l.name"), foldLike("l.email"), foldLike("l.phone"), foldLike("l.company")}, " OR ")
		args = append(args, p, p, p, p)
		if in := inList("l.status", search.Statuses, &args); in != "" {
			cond += " OR " + in
		}
		where += " AND (" + cond + ")"
	}
	rows, err := r.q.QueryContext(ctx, leadSelect+` WHERE `+where+` ORDER BY l.created_at ASC, l.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	defer func() { _ = rows.Close() }()
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
	res, err := r.q.ExecContext(ctx, `
		UPDATE leads SET name = ?, email = ?, phone = ?, company = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		lead.Name, lead.Email, lead.Phone, lead.Company, string(lead.Status), formatTimestamp(lead.UpdatedAt), lead.ID,
	)
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	return requireAffected(res, domain.ErrNotFound)
}

// Delete elimina un lead por ID.
func (r *LeadRepo) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM leads WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	return requireAffected(res, domain.ErrNotFound)
}

// CountByStatus conteo de leads visibles agrupado por estado.
func (r *LeadRepo) CountByStatus(ctx context.Context, scope access.Scope) ([]repository.StatusCount, error) {
	var args []any
	query := `
		SELECT l.status, COUNT(*)
		FROM leads l
		JOIN users u ON u.id = l.owner_id
		WHERE ` + scopePredicate(scope, "l", &args) + `
		GROUP BY l.status`
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count leads by status: %w", err)
	}
	defer func() { _ = rows.Close() }()
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

func scanLead(row rowScanner) (*entity.Lead, error) {
	var (
		l                    entity.Lead
		o                    entity.Owner
		status, ownerRole    string
		createdAt, updatedAt string
	)
	err := row.Scan(
		&l.ID, &l.Name, &l.Email, &l.Phone, &l.Company, &status, &l.OwnerID, &createdAt, &updatedAt,
		&o.ID, &o.Name, &o.Email, &ownerRole,
	)
	if err != nil {
		return nil, err
	}
	l.Status = entity.LeadStatus(status)
	o.Role = entity.Role(ownerRole)
	l.Owner = &o
	if l.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if l.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &l, nil
}
