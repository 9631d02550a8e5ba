package schema

import (
	"fmt"
	"reflect"
)

// Reflect builds a Mapping from the struct tags of E.
//
//	type User struct {
//		ID    uuid.UUID `db:"primary;generator:uuid"`
//		Email string    `db:"column:email_address;type:varchar(255)"`
//		Team  *int64    `db:"references:teams.id"`
//		Cache []byte    `db:"-"`
//	}
//
// Untagged exported fields are mapped with the naming strategy. Pointer and
// sql.Null* fields are nullable unless tagged "not null".
func Reflect[E, K any](opts ...Option) (*Mapping[E, K], error) {
	o := options{tagKey: "db", naming: DefaultNamingStrategy()}
	for _, opt := range opts {
		opt(&o)
	}

	t := reflect.TypeOf((*E)(nil)).Elem()
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("invalid model type: %s", t.Kind())
	}

	parser := NewTagParser(o.tagKey, o.naming)
	var (
		fields    []Field[E]
		generator IDGenerator
	)

	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || (sf.Anonymous && sf.Type.Kind() == reflect.Struct) {
			continue
		}
		if throughPointer(t, sf.Index) {
			return nil, fmt.Errorf("field %s: embedded pointers are not supported", sf.Name)
		}

		tag, err := parser.ParseTag(sf.Name, sf.Tag)
		if err != nil {
			return nil, err
		}
		if tag.Skip {
			continue
		}

		f, err := fieldFromTag[E](sf, tag)
		if err != nil {
			return nil, err
		}

		if tag.Generator != "" {
			if !tag.Primary {
				return nil, fmt.Errorf("field %s: generator %s requires a primary key", sf.Name, tag.Generator)
			}
			g, ok := LookupGenerator(tag.Generator)
			if !ok {
				return nil, fmt.Errorf("field %s: unknown generator type: %s", sf.Name, tag.Generator)
			}
			generator = g
		}
		fields = append(fields, f)
	}

	table := o.table
	if table == "" {
		table = o.naming.TableName(t.Name())
	}

	// explicit options win over tag generators
	return NewMapping[E, K](table, fields, append([]Option{WithGenerator(generator)}, opts...)...)
}

func fieldFromTag[E any](sf reflect.StructField, tag *ParsedTag) (Field[E], error) {
	typ, nullable, ok := sqlTypeOf(sf.Type)
	if tag.Type != "" {
		typ, ok = tag.Type, true
	}
	if !ok {
		return Field[E]{}, fmt.Errorf("field %s: no SQL type for %s, set type: in the tag", sf.Name, sf.Type)
	}

	f := Field[E]{
		Name:     tag.ColumnName,
		Type:     typ,
		Nullable: (nullable || tag.Null) && !tag.NotNull && !tag.Primary,
		Primary:  tag.Primary,
		Default:  tag.Default,
	}
	if tag.References != "" {
		fk, err := ParseForeignKey(tag.References)
		if err != nil {
			return Field[E]{}, fmt.Errorf("field %s: %w", sf.Name, err)
		}
		f.References = fk
	}

	index := sf.Index
	f.Ptr = func(e *E) any {
		return reflect.ValueOf(e).Elem().FieldByIndex(index).Addr().Interface()
	}
	return f, nil
}

func throughPointer(t reflect.Type, index []int) bool {
	for _, i := range index[:len(index)-1] {
		f := t.Field(i)
		if f.Type.Kind() == reflect.Ptr {
			return true
		}
		t = f.Type
	}
	return false
}
