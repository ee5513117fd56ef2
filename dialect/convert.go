package dialect

import (
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
)

var ErrConversion = errors.New("dialect: cannot convert value")

var (
	timeType  = reflect.TypeOf(time.Time{})
	uuidType  = reflect.TypeOf(uuid.UUID{})
	bytesType = reflect.TypeOf([]byte(nil))
)

// convertValue converts a driver value into target. nil yields target's
// zero value.
func convertValue(v any, target reflect.Type) (any, error) {
	if target == nil {
		return v, nil
	}
	if v == nil {
		return reflect.Zero(target).Interface(), nil
	}
	if reflect.TypeOf(v) == target {
		return v, nil
	}
	if b, ok := v.([]byte); ok && target != bytesType {
		v = string(b)
	}

	out, err := convertTo(v, target)
	if err != nil {
		return nil, fmt.Errorf("%w: %T to %s: %v", ErrConversion, v, target, err)
	}
	return out, nil
}

func convertTo(v any, target reflect.Type) (any, error) {
	switch target {
	case uuidType:
		switch val := v.(type) {
		case string:
			return uuid.Parse(val)
		case [16]byte:
			return uuid.UUID(val), nil
		}
		return nil, errors.New("unsupported source type")
	case timeType:
		return cast.ToTimeE(v)
	case bytesType:
		switch val := v.(type) {
		case string:
			return []byte(val), nil
		case uuid.UUID:
			return val[:], nil
		}
		return nil, errors.New("unsupported source type")
	}

	rv := reflect.New(target).Elem()
	switch target.Kind() {
	case reflect.String:
		var s string
		var err error
		if t, ok := v.(time.Time); ok {
			s = t.Format(time.RFC3339Nano)
		} else if s, err = cast.ToStringE(v); err != nil {
			return nil, err
		}
		rv.SetString(s)

	case reflect.Bool:
		b, err := cast.ToBoolE(v)
		if err != nil {
			return nil, err
		}
		rv.SetBool(b)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil, err
		}
		if rv.OverflowInt(n) {
			return nil, fmt.Errorf("%d overflows %s", n, target)
		}
		rv.SetInt(n)

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := cast.ToUint64E(v)
		if err != nil {
			return nil, err
		}
		if rv.OverflowUint(n) {
			return nil, fmt.Errorf("%d overflows %s", n, target)
		}
		rv.SetUint(n)

	case reflect.Float32, reflect.Float64:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, err
		}
		rv.SetFloat(f)

	default:
		src := reflect.ValueOf(v)
		if !src.Type().ConvertibleTo(target) {
			return nil, errors.New("unsupported target type")
		}
		return src.Convert(target).Interface(), nil
	}
	return rv.Interface(), nil
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
