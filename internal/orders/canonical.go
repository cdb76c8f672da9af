package orders

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// cycleSentinel is emitted in place of a value already on the encoding path.
// The domain model is acyclic in practice; this keeps Canonical total anyway.
const cycleSentinel = `"[circular]"`

// Canonical renders a value as deterministic JSON: object keys sorted
// lexicographically, array order preserved. Two snapshots are equal iff their
// canonical forms match, independent of key insertion order.
func Canonical(v any) string {
	var b strings.Builder
	writeCanonical(&b, reflect.ValueOf(v), map[uintptr]bool{})
	return b.String()
}

// CanonicalEqual compares two values under canonical serialization.
func CanonicalEqual(a, b any) bool {
	return Canonical(a) == Canonical(b)
}

func writeCanonical(b *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	if !v.IsValid() {
		b.WriteString("null")
		return
	}
	switch v.Kind() {
	case reflect.Interface:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		writeCanonical(b, v.Elem(), seen)
	case reflect.Pointer:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		ptr := v.Pointer()
		if seen[ptr] {
			b.WriteString(cycleSentinel)
			return
		}
		seen[ptr] = true
		writeCanonical(b, v.Elem(), seen)
		delete(seen, ptr)
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("null")
			return
		}
		ptr := v.Pointer()
		if seen[ptr] {
			b.WriteString(cycleSentinel)
			return
		}
		seen[ptr] = true
		keys := make([]string, 0, v.Len())
		byKey := make(map[string]reflect.Value, v.Len())
		for _, k := range v.MapKeys() {
			name := mapKeyString(k)
			keys = append(keys, name)
			byKey[name] = v.MapIndex(k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, k)
			b.WriteByte(':')
			writeCanonical(b, byKey[k], seen)
		}
		b.WriteByte('}')
		delete(seen, ptr)
	case reflect.Slice:
		// Nil and empty encode identically: deep-copying a store collapses
		// empty slices to nil, and the two must stay canonically equal.
		if v.IsNil() {
			b.WriteString("[]")
			return
		}
		ptr := v.Pointer()
		if seen[ptr] {
			b.WriteString(cycleSentinel)
			return
		}
		seen[ptr] = true
		writeArray(b, v, seen)
		delete(seen, ptr)
	case reflect.Array:
		writeArray(b, v, seen)
	case reflect.Struct:
		fields := structFields(v)
		b.WriteByte('{')
		for i, f := range fields {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, f.name)
			b.WriteByte(':')
			writeCanonical(b, f.value, seen)
		}
		b.WriteByte('}')
	case reflect.String:
		writeJSONString(b, v.String())
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32, reflect.Float64:
		b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
	default:
		b.WriteString("null")
	}
}

func writeArray(b *strings.Builder, v reflect.Value, seen map[uintptr]bool) {
	b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		writeCanonical(b, v.Index(i), seen)
	}
	b.WriteByte(']')
}

type canonicalField struct {
	name  string
	value reflect.Value
}

func structFields(v reflect.Value) []canonicalField {
	t := v.Type()
	fields := make([]canonicalField, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name := f.Name
		if tag, ok := f.Tag.Lookup("json"); ok {
			parts := strings.Split(tag, ",")
			if parts[0] == "-" {
				continue
			}
			if parts[0] != "" {
				name = parts[0]
			}
		}
		fields = append(fields, canonicalField{name: name, value: v.Field(i)})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].name < fields[j].name })
	return fields
}

func mapKeyString(k reflect.Value) string {
	switch k.Kind() {
	case reflect.String:
		return k.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(k.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(k.Uint(), 10)
	default:
		data, err := json.Marshal(k.Interface())
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func writeJSONString(b *strings.Builder, s string) {
	data, err := json.Marshal(s)
	if err != nil {
		b.WriteString(`""`)
		return
	}
	b.Write(data)
}
