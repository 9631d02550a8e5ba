package dialect

type MySQL struct{}

func NewMySQLDialect() Dialect {
	return &MySQL{}
}

func (MySQL) Name() string { return NameMySQL }

// Placeholder ignores n; MySQL binds strictly by position.
func (m MySQL) Placeholder(n int) string {
	return "?"
}
