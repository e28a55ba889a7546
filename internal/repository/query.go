package repository

import (
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/warden/warden/internal/model"
)

const userColumns = `id, email, username, hashed_password, full_name, is_active, is_superuser, created_at, updated_at`

// listQuery is a parameterized SELECT plus its matching COUNT.
type listQuery struct {
	selectSQL string
	countSQL  string
	args      []any // shared by both; selectSQL adds limit and offset
}

// whereBuilder accumulates AND-ed conditions with positional parameters.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// buildUserListQuery turns a validated query into SQL.
// Only columns in model.UserSortFields can reach ORDER BY.
func buildUserListQuery(q model.UserQuery) (*listQuery, error) {
	column, ok := model.UserSortFields[q.Sort.Field]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSort, q.Sort.Field)
	}
	direction := "ASC"
	if q.Sort.Desc() {
		direction = "DESC"
	}

	w := &whereBuilder{}
	if q.Filter.IsActive != nil {
		w.add("is_active = ?", *q.Filter.IsActive)
	}
	if q.Filter.IsSuperuser != nil {
		w.add("is_superuser = ?", *q.Filter.IsSuperuser)
	}
	if q.Filter.Email != "" {
		w.add(matchCondition("email", q.Filter.Email), q.Filter.Email)
	}
	if q.Filter.Username != "" {
		w.add(matchCondition("username", q.Filter.Username), q.Filter.Username)
	}
	if search := strings.TrimSpace(q.Search); search != "" {
		parts := make([]string, 0, len(model.UserSearchColumns))
		for _, col := range model.UserSearchColumns {
			parts = append(parts, fmt.Sprintf("COALESCE(%s, '') ILIKE ?", pq.QuoteIdentifier(col)))
		}
		w.add("("+strings.Join(parts, " OR ")+")", "%"+escapeLike(search)+"%")
	}

	where := w.sql()
	args := w.args
	limitPos, offsetPos := len(args)+1, len(args)+2

	selectSQL := fmt.Sprintf(
		"SELECT %s FROM users%s ORDER BY %s %s, id ASC LIMIT $%d OFFSET $%d",
		userColumns, where, pq.QuoteIdentifier(column), direction, limitPos, offsetPos,
	)
	countSQL := "SELECT COUNT(*) FROM users" + where

	return &listQuery{selectSQL: selectSQL, countSQL: countSQL, args: args}, nil
}

// matchCondition uses LIKE when the value carries an explicit '%' wildcard.
func matchCondition(column, value string) string {
	if strings.Contains(value, "%") {
		return column + " LIKE ?"
	}
	return column + " = ?"
}

// escapeLike escapes LIKE metacharacters so user search text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
