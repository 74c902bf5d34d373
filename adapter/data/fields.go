// Package data builds the field sets the engine evaluates conditions against,
// either from Go values or from JSON documents.
package data

import (
	"errors"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"

	goreflect "github.com/goccy/go-reflect"

	"github.com/vinicius-lino-figueiredo/gedbql/domain"
	"github.com/vinicius-lino-figueiredo/gedbql/pkg/keymap"
)

// TagName is the struct tag read by [NewFields].
const TagName = "gedbql"

var (
	timeTyp = goreflect.TypeOf(*new(time.Time))

	// ErrMapKeyType is returned when a map with non-string keys is found.
	ErrMapKeyType = errors.New("map keys must be strings")
)

// ErrDocumentType is returned when the value passed to [NewFields] is not
// an object.
type ErrDocumentType struct {
	Reason string
}

// Error implements [error].
func (e ErrDocumentType) Error() string {
	return "invalid document type: " + e.Reason
}

// NewFields returns the fields of a map, a struct, or an existing
// [domain.Fields]. Scalars are rendered as strings and nil values become
// null. Nested maps and structs, as well as slices, are flattened into dotted
// names such as "address.city" or "tags.0".
func NewFields(in any) (domain.Fields, error) {
	res := keymap.New[domain.Value]()
	if in == nil {
		return res, nil
	}
	switch t := in.(type) {
	case domain.Fields:
		for k, v := range t.Iter() {
			res.Set(k, v)
		}
		return res, nil
	case map[string]string:
		for k, v := range t {
			res.Set(k, domain.NewValue(v))
		}
		return res, nil
	case map[string]domain.Value:
		for k, v := range t {
			res.Set(k, v)
		}
		return res, nil
	}

	r := goreflect.ValueNoEscapeOf(in)
	for r.Kind() == goreflect.Interface || r.Kind() == goreflect.Ptr {
		if r.IsNil() {
			return res, nil
		}
		r = r.Elem()
	}
	if (r.Kind() != goreflect.Struct || r.Type() == timeTyp) && r.Kind() != goreflect.Map {
		return nil, ErrDocumentType{Reason: fmt.Sprintf("expected map or struct, got %s", r.Type().String())}
	}
	if err := flatten(res, "", r); err != nil {
		return nil, err
	}
	return res, nil
}

func flatten(res *keymap.Map[domain.Value], prefix string, r goreflect.Value) error {
	for r.Kind() == goreflect.Ptr || r.Kind() == goreflect.Interface {
		if r.IsNil() {
			res.Set(prefix, domain.Null())
			return nil
		}
		r = r.Elem()
	}
	switch r.Kind() {
	case goreflect.Invalid:
		res.Set(prefix, domain.Null())
	case goreflect.Struct:
		if r.Type() == timeTyp {
			res.Set(prefix, domain.NewValue(r.Interface().(time.Time).Format(time.RFC3339Nano)))
			return nil
		}
		return flattenStruct(res, prefix, r)
	case goreflect.Map:
		if r.IsNil() {
			res.Set(prefix, domain.Null())
			return nil
		}
		return flattenMap(res, prefix, r)
	case goreflect.Slice:
		if r.IsNil() {
			res.Set(prefix, domain.Null())
			return nil
		}
		if r.Type().Elem().Kind() == goreflect.Uint8 {
			res.Set(prefix, domain.NewValue(string(r.Bytes())))
			return nil
		}
		fallthrough
	case goreflect.Array:
		for i := range r.Len() {
			if err := flatten(res, join(prefix, strconv.Itoa(i)), r.Index(i)); err != nil {
				return err
			}
		}
	case goreflect.Chan, goreflect.Func, goreflect.UnsafePointer:
		if !r.IsNil() {
			return ErrDocumentType{Reason: fmt.Sprintf("field %q has unsupported type %s", prefix, r.Type())}
		}
		res.Set(prefix, domain.Null())
	default:
		res.Set(prefix, domain.NewValue(scalar(r)))
	}
	return nil
}

func flattenStruct(res *keymap.Map[domain.Value], prefix string, r goreflect.Value) error {
	typ := r.Type()
	for n := range r.NumField() {
		field := typ.Field(n)
		if field.PkgPath != "" {
			continue
		}
		name, ok := fieldName(r.Field(n), field)
		if !ok {
			continue
		}
		if err := flatten(res, join(prefix, name), r.Field(n)); err != nil {
			return err
		}
	}
	return nil
}

func flattenMap(res *keymap.Map[domain.Value], prefix string, r goreflect.Value) error {
	if r.Type().Key().Kind() != goreflect.String {
		return fmt.Errorf("%w: %q has %s keys", ErrMapKeyType, prefix, r.Type().Key())
	}
	keys := r.MapKeys()
	slices.SortFunc(keys, func(a, b goreflect.Value) int {
		return strings.Compare(a.String(), b.String())
	})
	for _, k := range keys {
		if err := flatten(res, join(prefix, k.String()), r.MapIndex(k)); err != nil {
			return err
		}
	}
	return nil
}

// fieldName reads the struct tag. A false result means the field is
// skipped.
func fieldName(r goreflect.Value, typ goreflect.StructField) (string, bool) {
	name := typ.Name
	var segments []string
	if tag, ok := typ.Tag.Lookup(TagName); ok {
		if tag == "-" {
			return "", false
		}
		segments = strings.Split(tag, ",")
		if segments[0] != "" {
			name = segments[0]
		}
		segments = segments[1:]
	}
	if slices.Contains(segments, "omitempty") && isNullable(typ.Type) && r.IsNil() {
		return "", false
	}
	if slices.Contains(segments, "omitzero") && r.IsZero() {
		return "", false
	}
	return name, true
}

func scalar(r goreflect.Value) string {
	switch r.Kind() {
	case goreflect.String:
		return r.String()
	case goreflect.Bool:
		return strconv.FormatBool(r.Bool())
	case goreflect.Int, goreflect.Int8, goreflect.Int16, goreflect.Int32, goreflect.Int64:
		if r.Type() == goreflect.TypeOf(time.Duration(0)) {
			return time.Duration(r.Int()).String()
		}
		return strconv.FormatInt(r.Int(), 10)
	case goreflect.Uint, goreflect.Uint8, goreflect.Uint16, goreflect.Uint32, goreflect.Uint64, goreflect.Uintptr:
		return strconv.FormatUint(r.Uint(), 10)
	case goreflect.Float32:
		return strconv.FormatFloat(r.Float(), 'g', -1, 32)
	case goreflect.Float64:
		return strconv.FormatFloat(r.Float(), 'g', -1, 64)
	}
	return fmt.Sprint(r.Interface())
}

func isNullable(t goreflect.Type) bool {
	k := t.Kind()
	return k == reflect.Pointer ||
		k == reflect.Slice ||
		k == reflect.Map ||
		k == reflect.Interface ||
		k == reflect.Func ||
		k == reflect.Chan
}

func join(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}
