package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/crm-api/internal/domain/access"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return hasCode(err, "23505")
}

// isForeignKeyViolation verifica si un error es una violación de FK (23503).
func isForeignKeyViolation(err error) bool {
	return hasCode(err, "23503")
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}

// queryArgs acumula argumentos posicionales y devuelve el placeholder ($n) de cada uno.
type queryArgs []any

func (a *queryArgs) add(v any) string {
	*a = append(*a, v)
	return fmt.Sprintf("$%d", len(*a))
}

// scopePredicate traduce el Scope a SQL. alias es la tabla con owner_id; la tabla de usuarios se une como "u".
func scopePredicate(scope access.Scope, alias string, args *queryArgs) string {
	switch scope.Kind {
	case access.KindAll:
		return "TRUE"
	case access.KindOwnerRole:
		return "u.role = " + args.add(string(scope.OwnerRole))
	case access.KindOwner:
		return alias + ".owner_id = " + args.add(scope.OwnerID)
	default:
		return "FALSE"
	}
}

// likePattern "%term%" escapando los comodines de LIKE (escape por defecto: backslash).
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}
