package dialect

// Dialect describes the positional parameter syntax of a target database.
type Dialect interface {
	Name() string
	// Placeholder renders the n-th (1-based) positional parameter.
	Placeholder(n int) string
}

// Names of the built-in dialects.
const (
	NamePostgres = "postgres"
	NameMySQL    = "mysql"
	NameTiDB     = "tidb"
	NameSQLite   = "sqlite"
)

// ByName returns a built-in dialect.
func ByName(name string) (Dialect, bool) {
	switch name {
	case NamePostgres, "postgresql", "pgx":
		return NewPostgresDialect(), true
	case NameMySQL:
		return NewMySQLDialect(), true
	case NameTiDB:
		return NewTiDBDialect(), true
	case NameSQLite, "sqlite3":
		return NewSQLiteDialect(), true
	}
	return nil, false
}
