package schema

import (
	"strings"
	"unicode"

	pluralizer "github.com/gertd/go-pluralize"
)

// pluralizeClient is shared; the client is read-only after construction.
var pluralizeClient = pluralizer.NewClient()

// NamingStrategy turns Go identifiers into table and column names.
type NamingStrategy interface {
	// ColumnName converts a Go field name to a column name.
	ColumnName(fieldName string) string
	// TableName converts a Go struct name to a table name.
	TableName(structName string) string
}

// Case is a naming convention.
type Case int

const (
	SnakeCase  Case = iota // user_id, blog_posts
	CamelCase              // userId, blogPosts
	PascalCase             // UserId, BlogPosts
)

// convention implements NamingStrategy for one case with optional pluralized tables.
type convention struct {
	columns Case
	tables  Case
	plural  bool
}

// NewNamingStrategy returns a strategy using columns for column names and
// tables for table names, pluralizing table names when plural is set.
func NewNamingStrategy(columns, tables Case, plural bool) NamingStrategy {
	return convention{columns: columns, tables: tables, plural: plural}
}

// DefaultNamingStrategy returns snake_case columns and plural snake_case tables.
func DefaultNamingStrategy() NamingStrategy {
	return NewNamingStrategy(SnakeCase, SnakeCase, true)
}

func (c convention) ColumnName(fieldName string) string {
	return convert(fieldName, c.columns)
}

func (c convention) TableName(structName string) string {
	name := convert(structName, c.tables)
	if c.plural {
		return pluralize(name)
	}
	return name
}

func convert(name string, to Case) string {
	switch to {
	case CamelCase:
		return toCamelCase(name)
	case PascalCase:
		return toPascalCase(name)
	default:
		return toSnakeCase(name)
	}
}

// toSnakeCase handles acronyms and digits: UserID -> user_id, HTTPServer ->
// http_server, OAuth2Token -> o_auth2_token.
func toSnakeCase(name string) string {
	if name == "" {
		return ""
	}
	if !hasUpperCase(name) {
		return name
	}

	var result strings.Builder
	result.Grow(len(name) + 4)

	runes := []rune(name)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			// aB -> a_b, a1B -> a1_b, ABc -> a_bc
			if unicode.IsLower(prev) || unicode.IsDigit(prev) ||
				(unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])) {
				result.WriteByte('_')
			}
		}
		result.WriteRune(unicode.ToLower(r))
	}
	return result.String()
}

func toCamelCase(name string) string {
	pascal := toPascalCase(name)
	if pascal == "" {
		return ""
	}
	runes := []rune(pascal)
	runes[0] = unicode.ToLower(runes[0])
	return string(runes)
}

func toPascalCase(name string) string {
	var result strings.Builder
	result.Grow(len(name))

	for _, part := range strings.Split(toSnakeCase(name), "_") {
		if part == "" {
			continue
		}
		runes := []rune(part)
		runes[0] = unicode.ToUpper(runes[0])
		result.WriteString(string(runes))
	}
	return result.String()
}

// pluralize pluralizes the last word of a snake, camel or Pascal cased name.
func pluralize(name string) string {
	if name == "" {
		return ""
	}

	// find the start of the last word
	cut := strings.LastIndexByte(name, '_') + 1
	if cut == 0 {
		runes := []rune(name)
		for i := len(runes) - 1; i > 0; i-- {
			if unicode.IsUpper(runes[i]) {
				cut = len(string(runes[:i]))
				break
			}
		}
	}

	head, last := name[:cut], name[cut:]
	plural := pluralizeClient.Plural(strings.ToLower(last))
	return head + preserveCase(last, plural)
}

func hasUpperCase(s string) bool {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// preserveCase applies the capitalization of original to result.
func preserveCase(original, result string) string {
	if original == "" || result == "" {
		return result
	}
	if strings.ToUpper(original) == original && len(original) > 1 {
		return strings.ToUpper(result)
	}
	if unicode.IsUpper([]rune(original)[0]) {
		runes := []rune(result)
		runes[0] = unicode.ToUpper(runes[0])
		return string(runes)
	}
	return result
}
