package record

import (
	"fmt"
	"reflect"
	"strconv"
)

// ValueKey renders v as an index key. Numbers share one key per value across
// Go numeric types; any other dynamic type is part of the key, so 1 and "1"
// never share an index slot.
func ValueKey(v any) string {
	if n, ok := asFloat(v); ok {
		return "number:" + strconv.FormatFloat(n, 'g', -1, 64)
	}
	return fmt.Sprintf("%T:%v", v, v)
}

// Equal compares two field values. Numbers compare by value across Go
// numeric types, since decoded documents produce float64 where code uses int.
func Equal(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
