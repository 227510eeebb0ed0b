// Package serialize converts resource property structs into plain maps for the
// renderers and the local engine.
package serialize

import (
	"encoding/json"
	"reflect"
	"strings"
	"unicode"

	"github.com/lex00/wetwire-aurora-go/pending"
)

// Options controls how deferred values and secrets are written.
type Options struct {
	// Deferred encodes a pending value. When nil, known values are written as-is
	// and references as pending.Ref.
	Deferred func(d pending.Deferred) (any, error)

	// Secret encodes a secret. When nil, the secret's fingerprint is written.
	Secret func(s pending.Secret) (any, error)
}

var (
	deferredType = reflect.TypeOf((*pending.Deferred)(nil)).Elem()
	secretType   = reflect.TypeOf(pending.Secret{})
)

// Resource serializes a property struct to a map keyed by json tag names.
// It handles:
// - Omitting nil/zero values
// - Nested structs
// - Deferred values and secrets, through Options
// - Types implementing json.Marshaler
func Resource(v any, opts Options) (map[string]any, error) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return nil, nil
	}

	result := make(map[string]any)
	typ := val.Type()

	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		fieldVal := val.Field(i)

		if !field.IsExported() {
			continue
		}

		name := getFieldName(field)
		if name == "-" {
			continue
		}

		if isZeroValue(fieldVal) {
			continue
		}

		serialized, err := serializeValue(fieldVal, opts)
		if err != nil {
			return nil, err
		}

		if serialized != nil {
			result[name] = serialized
		}
	}

	return result, nil
}

// Value serializes a single value with the same rules as Resource.
func Value(v any, opts Options) (any, error) {
	return serializeValue(reflect.ValueOf(v), opts)
}

// References returns every resource attribute that v refers to through a
// pending value, in field order and without duplicates.
func References(v any) []pending.Ref {
	var refs []pending.Ref
	seen := make(map[pending.Ref]bool)
	collectRefs(reflect.ValueOf(v), func(r pending.Ref) {
		if !seen[r] {
			seen[r] = true
			refs = append(refs, r)
		}
	})
	return refs
}

func collectRefs(v reflect.Value, add func(pending.Ref)) {
	if !v.IsValid() {
		return
	}
	if v.Type().Implements(deferredType) && v.CanInterface() {
		if ref, ok := v.Interface().(pending.Deferred).Reference(); ok {
			add(ref)
		}
		return
	}
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		if !v.IsNil() {
			collectRefs(v.Elem(), add)
		}
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			if v.Type().Field(i).IsExported() {
				collectRefs(v.Field(i), add)
			}
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			collectRefs(v.Index(i), add)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			collectRefs(iter.Value(), add)
		}
	}
}

// getFieldName returns the JSON field name for a struct field.
func getFieldName(field reflect.StructField) string {
	tag := field.Tag.Get("json")
	if tag == "" {
		return field.Name
	}

	parts := strings.Split(tag, ",")
	name := parts[0]
	if name == "" {
		return field.Name
	}
	return name
}

// isZeroValue returns true if the value is the zero value for its type.
func isZeroValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.String:
		return v.String() == ""
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Struct:
		if v.CanInterface() {
			if zeroer, ok := v.Interface().(interface{ IsZero() bool }); ok {
				return zeroer.IsZero()
			}
		}
		return false
	default:
		return false
	}
}

// serializeValue converts a reflect.Value to a JSON-compatible value.
func serializeValue(v reflect.Value, opts Options) (any, error) {
	if !v.IsValid() {
		return nil, nil
	}

	if v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, nil
		}
		return serializeValue(v.Elem(), opts)
	}

	if v.Type() == secretType {
		s := v.Interface().(pending.Secret)
		if opts.Secret != nil {
			return opts.Secret(s)
		}
		return s.Fingerprint(), nil
	}

	if v.Type().Implements(deferredType) && v.CanInterface() {
		d := v.Interface().(pending.Deferred)
		if opts.Deferred != nil {
			return opts.Deferred(d)
		}
		if ref, ok := d.Reference(); ok {
			return ref, nil
		}
		lit, _ := d.Literal()
		return lit, nil
	}

	if v.CanInterface() {
		if marshaler, ok := v.Interface().(json.Marshaler); ok {
			data, err := marshaler.MarshalJSON()
			if err != nil {
				return nil, err
			}
			var result any
			if err := json.Unmarshal(data, &result); err != nil {
				return nil, err
			}
			return result, nil
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		return Resource(v.Interface(), opts)

	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make([]any, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := serializeValue(v.Index(i), opts)
			if err != nil {
				return nil, err
			}
			result[i] = elem
		}
		return result, nil

	case reflect.Map:
		if v.Len() == 0 {
			return nil, nil
		}
		result := make(map[string]any)
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key().String()
			val, err := serializeValue(iter.Value(), opts)
			if err != nil {
				return nil, err
			}
			result[key] = val
		}
		return result, nil

	case reflect.String:
		return v.String(), nil

	case reflect.Bool:
		return v.Bool(), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint(), nil

	case reflect.Float32, reflect.Float64:
		return v.Float(), nil

	default:
		data, err := json.Marshal(v.Interface())
		if err != nil {
			return nil, err
		}
		var result any
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, err
		}
		return result, nil
	}
}

// ToPascalCase converts kebab-case, snake_case and camelCase names to PascalCase.
// e.g., "demo-db-cluster" -> "DemoDbCluster", "clusterInstance" -> "ClusterInstance"
func ToPascalCase(s string) string {
	var result strings.Builder
	capitalizeNext := true

	for _, r := range s {
		if r == '_' || r == '-' || r == '.' || r == ' ' {
			capitalizeNext = true
			continue
		}
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		if capitalizeNext {
			result.WriteRune(unicode.ToUpper(r))
			capitalizeNext = false
		} else {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// ToCamelCase is ToPascalCase with a lower-case first letter.
// e.g., "demo-db-cluster" -> "demoDbCluster"
func ToCamelCase(s string) string {
	p := ToPascalCase(s)
	if p == "" {
		return p
	}
	r := []rune(p)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
