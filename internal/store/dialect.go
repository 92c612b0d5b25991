package store

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	dialectSQLite   = "sqlite"
	dialectPostgres = "postgres"
)

type dialect struct {
	name   string
	driver string
	// forUpdate is appended to SELECTs that must take a row lock.
	forUpdate string
}

func dialectFor(name string) (dialect, error) {
	switch name {
	case dialectSQLite, "sqlite3", "":
		return dialect{name: dialectSQLite, driver: "sqlite3"}, nil
	case dialectPostgres, "pgx", "postgresql":
		return dialect{name: dialectPostgres, driver: "pgx", forUpdate: " FOR UPDATE"}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

// rebind rewrites ? placeholders into $n for PostgreSQL.
func (d dialect) rebind(query string) string {
	if d.name != dialectPostgres {
		return query
	}

	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
