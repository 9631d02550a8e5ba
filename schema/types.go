package schema

import (
	"database/sql"
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// typeAliases maps shorthand spellings onto the names information_schema reports.
var typeAliases = map[string]string{
	"int":         "integer",
	"int4":        "integer",
	"serial":      "integer",
	"serial4":     "integer",
	"int8":        "bigint",
	"bigserial":   "bigint",
	"serial8":     "bigint",
	"int2":        "smallint",
	"smallserial": "smallint",
	"float4":      "real",
	"float8":      "double precision",
	"float":       "double precision",
	"bool":        "boolean",
	"varchar":     "character varying",
	"char":        "character",
	"decimal":     "numeric",
	"timestamp":   "timestamp without time zone",
	"timestamptz": "timestamp with time zone",
	"time":        "time without time zone",
	"timetz":      "time with time zone",
}

// normalizeType canonicalizes a column type so that "int" and "integer" or
// "varchar(20)" and "character varying(20)" compare equal.
func normalizeType(typ string) string {
	t := strings.Join(strings.Fields(strings.ToLower(typ)), " ")

	base, args := t, ""
	if open := strings.IndexByte(t, '('); open >= 0 {
		base, args = strings.TrimSpace(t[:open]), strings.ReplaceAll(t[open:], " ", "")
	}
	if alias, ok := typeAliases[base]; ok {
		base = alias
	}
	return base + args
}

// goTypes maps Go types to the SQL types used for them by Reflect.
var goTypes = map[reflect.Type]string{
	reflect.TypeOf(""):                "text",
	reflect.TypeOf(false):             "boolean",
	reflect.TypeOf(int(0)):            "bigint",
	reflect.TypeOf(int8(0)):           "smallint",
	reflect.TypeOf(int16(0)):          "smallint",
	reflect.TypeOf(int32(0)):          "integer",
	reflect.TypeOf(int64(0)):          "bigint",
	reflect.TypeOf(uint(0)):           "bigint",
	reflect.TypeOf(uint8(0)):          "smallint",
	reflect.TypeOf(uint16(0)):         "integer",
	reflect.TypeOf(uint32(0)):         "bigint",
	reflect.TypeOf(uint64(0)):         "numeric(20)",
	reflect.TypeOf(float32(0)):        "real",
	reflect.TypeOf(float64(0)):        "double precision",
	reflect.TypeOf([]byte(nil)):       "bytea",
	reflect.TypeOf(json.RawMessage{}): "jsonb",
	reflect.TypeOf(time.Time{}):       "timestamp with time zone",
	reflect.TypeOf(time.Duration(0)):  "bigint",
	reflect.TypeOf(uuid.UUID{}):       "uuid",
	reflect.TypeOf(ulid.ULID{}):       "bytea",
	reflect.TypeOf([]string(nil)):     "text[]",
	reflect.TypeOf([]int64(nil)):      "bigint[]",
	reflect.TypeOf([]float64(nil)):    "double precision[]",
	reflect.TypeOf([]float32(nil)):    "real[]",
}

// nullTypes are database/sql wrappers whose SQL type is that of the wrapped value.
var nullTypes = map[reflect.Type]string{
	reflect.TypeOf(sql.NullString{}):  "text",
	reflect.TypeOf(sql.NullBool{}):    "boolean",
	reflect.TypeOf(sql.NullInt16{}):   "smallint",
	reflect.TypeOf(sql.NullInt32{}):   "integer",
	reflect.TypeOf(sql.NullInt64{}):   "bigint",
	reflect.TypeOf(sql.NullFloat64{}): "double precision",
	reflect.TypeOf(sql.NullTime{}):    "timestamp with time zone",
	reflect.TypeOf(uuid.NullUUID{}):   "uuid",
}

// sqlTypeOf infers the SQL type for t and whether values of t may be NULL.
func sqlTypeOf(t reflect.Type) (typ string, nullable bool, ok bool) {
	if typ, ok := nullTypes[t]; ok {
		return typ, true, true
	}
	if t.Kind() == reflect.Ptr {
		typ, _, ok := sqlTypeOf(t.Elem())
		return typ, true, ok
	}
	if typ, ok := goTypes[t]; ok {
		return typ, false, true
	}

	// named types fall back to their underlying kind
	switch t.Kind() {
	case reflect.String:
		return "text", false, true
	case reflect.Bool:
		return "boolean", false, true
	case reflect.Int, reflect.Int64, reflect.Uint, reflect.Uint32:
		return "bigint", false, true
	case reflect.Int32, reflect.Uint16:
		return "integer", false, true
	case reflect.Int8, reflect.Int16, reflect.Uint8:
		return "smallint", false, true
	case reflect.Float32:
		return "real", false, true
	case reflect.Float64:
		return "double precision", false, true
	case reflect.Map, reflect.Struct:
		return "jsonb", false, true
	}
	return "", false, false
}
