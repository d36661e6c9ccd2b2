package sqlite

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"

	"github.com/jhoicas/crm-api/internal/domain/access"
)

// foldFunc función SQL de case folding Unicode. LIKE de SQLite solo ignora mayúsculas ASCII,
// así que columna y patrón se pliegan antes de comparar.
const foldFunc = "crm_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(foldFunc, 1, foldValue)
}

func foldValue(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return cases.Fold().String(v), nil
	case []byte:
		return cases.Fold().String(string(v)), nil
	default:
		return nil, fmt.Errorf("%s: tipo no soportado %T", foldFunc, v)
	}
}

// foldLike "crm_fold(col) LIKE ? ESCAPE '\'" para un patrón de likePattern.
func foldLike(col string) string {
	return foldFunc + "(" + col + `) LIKE ? ESCAPE '\'`
}

// scopePredicate traduce el Scope a SQL. alias es la tabla con owner_id; la tabla de usuarios se une como "u".
func scopePredicate(scope access.Scope, alias string, args *[]any) string {
	switch scope.Kind {
	case access.KindAll:
		return "1 = 1"
	case access.KindOwnerRole:
		*args = append(*args, string(scope.OwnerRole))
		return "u.role = ?"
	case access.KindOwner:
		*args = append(*args, scope.OwnerID)
		return alias + ".owner_id = ?"
	default:
		return "1 = 0"
	}
}

// inList "col IN (?, ?, ...)" para values; sin valores devuelve "" (no añade predicado).
func inList[T ~string](col string, values []T, args *[]any) string {
	if len(values) == 0 {
		return ""
	}
	marks := make([]string, len(values))
	for i, v := range values {
		marks[i] = "?"
		*args = append(*args, string(v))
	}
	return col + " IN (" + strings.Join(marks, ", ") + ")"
}

// likePattern "%term%" plegado y con los comodines escapados; se compara con foldLike.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(cases.Fold().String(term)) + "%"
}
