package sqlxrepos

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolation is the psql error code for unique constraint breaches.
const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a unique-index breach, optionally
// on a specific constraint.
func isUniqueViolation(err error, constraint ...string) bool {
	pqErr, ok := err.(*pq.Error)
	if !ok || pqErr.Code != uniqueViolation {
		return false
	}
	if len(constraint) > 0 {
		return pqErr.Constraint == constraint[0]
	}
	return true
}

// whereClause joins conditions with AND, or returns "" when there are none.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// arg appends v to args and returns its $N placeholder.
func arg(args *[]interface{}, v interface{}) string {
	*args = append(*args, v)
	return fmt.Sprintf("$%d", len(*args))
}

func joinSets(sets []string) string {
	return strings.Join(sets, ", ")
}
