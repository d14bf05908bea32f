package database

import (
	"strconv"
	"strings"
)

const (
	PostgreSQL = "postgres"
	SQLite     = "sqlite"
)

// Dialect captures the SQL differences between the supported databases.
// Queries are written with PostgreSQL $N placeholders and rebound as needed.
type Dialect struct {
	Name   string
	Driver string
}

func Postgres() Dialect      { return Dialect{Name: PostgreSQL, Driver: "postgres"} }
func SQLiteDialect() Dialect { return Dialect{Name: SQLite, Driver: "sqlite"} }

// Rebind rewrites $N placeholders for drivers that only bind "?".
// Placeholders must appear in ascending order, each at most once.
func (d Dialect) Rebind(query string) string {
	if d.Name != SQLite {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query))
	for i := 0; i < len(query); i++ {
		c := query[i]
		if c == '$' {
			j := i + 1
			for j < len(query) && query[j] >= '0' && query[j] <= '9' {
				j++
			}
			if j > i+1 {
				sb.WriteByte('?')
				i = j - 1
				continue
			}
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

// ContainsFold returns a predicate matching column case-insensitively
// against the pattern bound at placeholder $n. The pattern escapes with '\'.
func (d Dialect) ContainsFold(column string, n int) string {
	op := "ILIKE"
	if d.Name == SQLite {
		// SQLite LIKE folds ASCII case only.
		op = "LIKE"
	}
	return column + " " + op + " $" + strconv.Itoa(n) + ` ESCAPE '\'`
}

// ContainsPattern wraps s in % wildcards after escaping LIKE metacharacters,
// so s matches as a literal substring.
func ContainsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
