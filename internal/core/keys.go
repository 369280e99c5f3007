package core

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// keyTuple is the canonical encoding of a record's unique key values.
// Integers and integral floats encode identically so that ids returned by
// the store match ids threaded through from an earlier stage.
type keyTuple string

const keySeparator = "\x1f"

func keyOf(rec Record, fields []string) keyTuple {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = encodeKeyValue(rec[f])
	}
	return keyTuple(strings.Join(parts, keySeparator))
}

func keyOfValues(values []any) keyTuple {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = encodeKeyValue(v)
	}
	return keyTuple(strings.Join(parts, keySeparator))
}

func encodeKeyValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "~"
	case string:
		return strconv.Quote(x)
	case bool:
		return "b" + strconv.FormatBool(x)
	case int:
		return "n" + strconv.FormatInt(int64(x), 10)
	case int8:
		return "n" + strconv.FormatInt(int64(x), 10)
	case int16:
		return "n" + strconv.FormatInt(int64(x), 10)
	case int32:
		return "n" + strconv.FormatInt(int64(x), 10)
	case int64:
		return "n" + strconv.FormatInt(x, 10)
	case uint:
		return "n" + strconv.FormatUint(uint64(x), 10)
	case uint32:
		return "n" + strconv.FormatUint(uint64(x), 10)
	case uint64:
		return "n" + strconv.FormatUint(x, 10)
	case float32:
		return encodeFloat(float64(x))
	case float64:
		return encodeFloat(x)
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return "n" + strconv.FormatInt(i, 10)
		}
		if f, err := x.Float64(); err == nil {
			return encodeFloat(f)
		}
		return strconv.Quote(x.String())
	default:
		return "v" + fmt.Sprintf("%#v", x)
	}
}

func encodeFloat(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return "n" + strconv.FormatInt(int64(f), 10)
	}
	return "f" + strconv.FormatFloat(f, 'g', -1, 64)
}

// IDMap resolves a key tuple, in the model's declared key order, to the id
// the store assigned or matched for it.
type IDMap struct {
	fields []string
	ids    map[keyTuple]int64
}

func newIDMap(fields []string) IDMap {
	return IDMap{fields: fields, ids: make(map[keyTuple]int64)}
}

func (m IDMap) put(rec Record, id int64) {
	m.ids[keyOf(rec, m.fields)] = id
}

// Lookup returns the id for the given key values.
func (m IDMap) Lookup(values ...any) (int64, bool) {
	if m.ids == nil {
		return 0, false
	}
	id, ok := m.ids[keyOfValues(values)]
	return id, ok
}

// LookupRecord returns the id for the key fields of rec.
func (m IDMap) LookupRecord(rec Record) (int64, bool) {
	if m.ids == nil {
		return 0, false
	}
	id, ok := m.ids[keyOf(rec, m.fields)]
	return id, ok
}

// resolve is LookupRecord with a nil result for unresolved keys, suitable
// for storing directly as a foreign key value.
func (m IDMap) resolve(rec Record) any {
	if id, ok := m.LookupRecord(rec); ok {
		return id
	}
	return nil
}

// Len returns the number of resolved keys.
func (m IDMap) Len() int {
	return len(m.ids)
}

// toInt64 converts an id value returned by the store.
func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int:
		return int64(x), true
	case float64:
		if x == math.Trunc(x) {
			return int64(x), true
		}
	}
	return 0, false
}

// isBlank reports whether a required value counts as missing: nil, false,
// whitespace-only strings and empty collections.
func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case bool:
		return !x
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
