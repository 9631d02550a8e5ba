package schema

import (
	"fmt"
	"reflect"
	"strings"
)

// ParsedTag is the configuration read from one struct field's tag.
type ParsedTag struct {
	ColumnName string // explicit or derived from the field name
	Skip       bool   // db:"-"
	Type       string // SQL type override

	Null       bool
	NotNull    bool
	Default    string // SQL expression
	Primary    bool
	References string // table.column or table(column)
	Generator  string // registered IDGenerator name
}

// TagParser parses struct tags under one tag key.
type TagParser struct {
	key    string
	naming NamingStrategy
}

// NewTagParser returns a parser reading key, deriving column names with naming.
func NewTagParser(key string, naming NamingStrategy) *TagParser {
	if key == "" {
		key = "db"
	}
	if naming == nil {
		naming = DefaultNamingStrategy()
	}
	return &TagParser{key: key, naming: naming}
}

// ParseTag parses the tag of a field.
//
// Supported syntax:
//
//	`db:"column_name"`                    // basic column mapping
//	`db:"column:custom_name"`             // explicit column name
//	`db:"primary;not null"`               // flags
//	`db:"type:varchar(255);default:''"`   // type override with default
//	`db:"references:users.id"`            // foreign key
//	`db:"generator:uuid"`                 // key generation
//	`db:"-"`                              // skip field
func (p *TagParser) ParseTag(fieldName string, tag reflect.StructTag) (*ParsedTag, error) {
	value, _ := tag.Lookup(p.key)
	parsed := &ParsedTag{ColumnName: p.naming.ColumnName(fieldName)}

	switch {
	case value == "":
		return parsed, nil
	case value == "-":
		return &ParsedTag{Skip: true}, nil
	case !strings.ContainsAny(value, ";:") && !isFlag(value):
		parsed.ColumnName = value
		return parsed, nil
	}

	for _, option := range strings.Split(value, ";") {
		option = strings.TrimSpace(option)
		if option == "" {
			continue
		}
		if err := parsed.apply(option); err != nil {
			return nil, fmt.Errorf("field %s: %w", fieldName, err)
		}
	}
	if parsed.Null && parsed.NotNull {
		return nil, fmt.Errorf("field %s: both null and not null", fieldName)
	}
	return parsed, nil
}

func isFlag(option string) bool {
	switch option {
	case "primary", "primary_key", "null", "not null", "not_null":
		return true
	}
	return false
}

func (tag *ParsedTag) apply(option string) error {
	key, value, hasValue := strings.Cut(option, ":")
	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)

	if !hasValue {
		switch key {
		case "primary", "primary_key":
			tag.Primary = true
		case "null":
			tag.Null = true
		case "not null", "not_null":
			tag.NotNull = true
		default:
			return fmt.Errorf("unknown option %q", key)
		}
		return nil
	}

	switch key {
	case "column", "name":
		tag.ColumnName = value
	case "type":
		tag.Type = value
	case "default":
		tag.Default = value
	case "fk", "foreign_key", "references":
		tag.References = value
	case "generator", "gen":
		tag.Generator = value
	default:
		return fmt.Errorf("unknown option %q", key)
	}
	return nil
}
