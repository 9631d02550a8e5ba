package dialect

import "strconv"

// SQLite uses numbered ?NNN parameters so a value can be referenced by index.
type SQLite struct{}

func NewSQLiteDialect() Dialect {
	return &SQLite{}
}

func (SQLite) Name() string { return NameSQLite }

func (SQLite) Placeholder(n int) string {
	return "?" + strconv.Itoa(n)
}
