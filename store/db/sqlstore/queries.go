// Package sqlstore holds the entity queries shared by the SQLite and
// PostgreSQL drivers. The schemas are kept identical, so the dialects only
// differ in how bind parameters are written.
package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
)

// Placeholder renders the n-th (1-based) bind parameter.
type Placeholder func(n int) string

// Question renders "?" parameters (SQLite).
func Question(int) string {
	return "?"
}

// Dollar renders "$n" parameters (PostgreSQL).
func Dollar(n int) string {
	return fmt.Sprintf("$%d", n)
}

// Queries implements the entity half of store.Driver.
type Queries struct {
	db          *sql.DB
	placeholder Placeholder
}

func New(db *sql.DB, placeholder Placeholder) *Queries {
	return &Queries{db: db, placeholder: placeholder}
}

func (q *Queries) placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 0; i < n; i++ {
		list = append(list, q.placeholder(i+1))
	}
	return strings.Join(list, ", ")
}
