package binder

import (
	"fmt"
	"iter"
	"reflect"
	"strconv"
	"strings"
)

// structOf returns the struct v points to.
func structOf(v any) (reflect.Value, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, fmt.Errorf("target must be a non-nil pointer, got %T", v)
	}
	if rv = rv.Elem(); rv.Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("target must point to a struct, got %T", v)
	}
	return rv, nil
}

// tagged yields the settable fields of rv carrying tag, keyed by the tag's
// name part. Empty names and "-" are skipped.
func tagged(rv reflect.Value, tag string) iter.Seq2[string, reflect.Value] {
	return func(yield func(string, reflect.Value) bool) {
		rt := rv.Type()
		for i := range rt.NumField() {
			field := rv.Field(i)
			if !field.CanSet() {
				continue
			}
			name, _, _ := strings.Cut(rt.Field(i).Tag.Get(tag), ",")
			if name == "" || name == "-" {
				continue
			}
			if !yield(name, field) {
				return
			}
		}
	}
}

// bind decodes lookup(name) into every field tagged with tag. Failures wrap bindErr.
func bind(v any, tag string, lookup func(name string) []string, bindErr error) error {
	rv, err := structOf(v)
	if err != nil {
		return fmt.Errorf("%w: %v", bindErr, err)
	}
	for name, field := range tagged(rv, tag) {
		values := lookup(name)
		if !present(values) {
			continue
		}
		if err := decode(field, values); err != nil {
			return fmt.Errorf("%w: %s: %v", bindErr, name, err)
		}
	}
	return nil
}

// present reports whether a parameter carries a value. A single empty value,
// as sent by an untouched form input, counts as absent.
func present(values []string) bool {
	return len(values) > 1 || (len(values) == 1 && values[0] != "")
}

// decode parses values into field. Pointers are allocated, slices take every
// value (comma-separated ones are split), scalars take the first.
func decode(field reflect.Value, values []string) error {
	switch field.Kind() {
	case reflect.Pointer:
		elem := reflect.New(field.Type().Elem())
		if err := decode(elem.Elem(), values); err != nil {
			return err
		}
		field.Set(elem)
		return nil

	case reflect.Slice:
		var items []string
		for _, v := range values {
			for item := range strings.SplitSeq(v, ",") {
				items = append(items, strings.TrimSpace(item))
			}
		}
		slice := reflect.MakeSlice(field.Type(), len(items), len(items))
		for i, item := range items {
			if err := decodeScalar(slice.Index(i), item); err != nil {
				return err
			}
		}
		field.Set(slice)
		return nil
	}

	if len(values) == 0 {
		return nil
	}
	return decodeScalar(field, values[0])
}

func decodeScalar(field reflect.Value, s string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(s)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer %q", s)
		}
		field.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid unsigned integer %q", s)
		}
		field.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		field.SetFloat(n)
	case reflect.Bool:
		b, ok := parseBool(s)
		if !ok {
			return fmt.Errorf("invalid boolean %q", s)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

// parseBool extends strconv.ParseBool with the on/off and yes/no spellings
// browsers and curl users send.
func parseBool(s string) (value, ok bool) {
	switch strings.ToLower(s) {
	case "on", "yes":
		return true, true
	case "off", "no":
		return false, true
	}
	b, err := strconv.ParseBool(s)
	return b, err == nil
}
