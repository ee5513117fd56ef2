package template

import (
	"fmt"
	"reflect"
	"sync"
)

// Source resolves named parameter values for a template.
//
// A map-backed source reports unknown names with ErrParameterNotFound, a
// record-backed source with ErrPropertyAccess. Phase A relies on that
// difference for $sort blocks.
type Source interface {
	Get(name string) (any, error)
}

// Map is a Source backed by a plain map.
type Map map[string]any

// Get implements Source.
func (m Map) Get(name string) (any, error) {
	v, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrParameterNotFound, name)
	}
	return v, nil
}

// Fielder is implemented by records that expose their own accessor table,
// typically generated code.
type Fielder interface {
	Field(name string) (any, bool)
}

// Collection lets custom container types take part in [] expansion.
type Collection interface {
	Len() int
	At(i int) any
}

type recordSource struct {
	typeName string
	get      func(name string) (any, bool)
}

func (r recordSource) Get(name string) (any, error) {
	v, ok := r.get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrPropertyAccess, r.typeName, name)
	}
	return v, nil
}

// FromFielder adapts a Fielder into a record Source.
func FromFielder(f Fielder) Source {
	return recordSource{
		typeName: fmt.Sprintf("%T", f),
		get:      f.Field,
	}
}

// accessorTable maps a property name to a getter on a *T passed as any.
type accessorTable map[string]func(any) any

var records sync.Map // map[reflect.Type]accessorTable

// Register installs the accessor table for struct type T. Lookups through
// Record use this table only; struct fields are never inspected.
//
//	template.Register(map[string]func(*User) any{
//		"id":   func(u *User) any { return u.ID },
//		"name": func(u *User) any { return u.Name },
//	})
func Register[T any](accessors map[string]func(*T) any) {
	table := make(accessorTable, len(accessors))
	for name, fn := range accessors {
		fn := fn
		table[name] = func(v any) any { return fn(v.(*T)) }
	}
	var zero T
	records.Store(reflect.TypeOf(zero), table)
}

// Record wraps a registered record value (T or *T) as a Source.
func Record(v any) (Source, error) {
	if f, ok := v.(Fielder); ok {
		return FromFielder(f), nil
	}

	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, fmt.Errorf("%w: <nil>", ErrUnregisteredRecord)
	}
	t := rv.Type()
	if t.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, fmt.Errorf("%w: nil %s", ErrUnregisteredRecord, t)
		}
		t = t.Elem()
	} else {
		// Accessors take *T; copy the value so callers may pass T.
		p := reflect.New(t)
		p.Elem().Set(rv)
		rv = p
	}

	raw, ok := records.Load(t)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnregisteredRecord, t)
	}
	table := raw.(accessorTable)
	ptr := rv.Interface()

	return recordSource{
		typeName: t.String(),
		get: func(name string) (any, bool) {
			fn, ok := table[name]
			if !ok {
				return nil, false
			}
			return fn(ptr), true
		},
	}, nil
}

// SourceOf normalizes the accepted parameter inputs into a Source.
func SourceOf(v any) (Source, error) {
	switch p := v.(type) {
	case nil:
		return Map{}, nil
	case Source:
		return p, nil
	case map[string]any:
		return Map(p), nil
	case Fielder:
		return FromFielder(p), nil
	default:
		return Record(v)
	}
}

// isEmpty reports whether a value counts as absent for $if.
func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case Collection:
		return val.Len() == 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isEmpty(rv.Elem().Interface())
	case reflect.Slice, reflect.Map:
		return rv.IsNil() || rv.Len() == 0
	case reflect.Array:
		return rv.Len() == 0
	}
	return false
}

// collection returns the length and element accessor of v when v is a
// collection. []byte is a scalar value, not a collection.
func collection(v any) (int, func(int) any, bool) {
	if c, ok := v.(Collection); ok {
		return c.Len(), c.At, true
	}
	rv := reflect.ValueOf(v)
	for rv.IsValid() && rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return 0, nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return 0, nil, false
		}
		return rv.Len(), func(i int) any { return rv.Index(i).Interface() }, true
	}
	return 0, nil, false
}
