package executor

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash"
)

// Row is one materialized result row: positional field values plus a
// fingerprint used as a fast pre-filter when matching UPDATE_BEFORE and
// DELETE events against accumulated rows.
//
// Equality is structural: numbers compare by value regardless of Go type,
// nil and absent trailing fields are interchangeable, and nested lists and
// maps compare element-wise. Structurally equal rows always share a
// fingerprint, so a fingerprint mismatch proves inequality.
type Row struct {
	fields      []interface{}
	fingerprint uint64
}

// NewRow builds a row over the given field values. The slice is retained;
// callers must not mutate it afterwards.
func NewRow(fields []interface{}) Row {
	return Row{
		fields:      fields,
		fingerprint: fingerprintFields(fields),
	}
}

// Fields returns a copy of the row's field values.
func (r Row) Fields() []interface{} {
	out := make([]interface{}, len(r.fields))
	copy(out, r.fields)
	return out
}

// Equal reports structural equality with another row.
func (r Row) Equal(other Row) bool {
	if r.fingerprint != other.fingerprint {
		return false
	}
	return fieldsEqual(r.fields, other.fields)
}

// fieldsEqual compares two field slices. A missing trailing field and an
// explicit null are treated as equal-and-absent.
func fieldsEqual(a, b []interface{}) bool {
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		var av, bv interface{}
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		if !valueEqual(av, bv) {
			return false
		}
	}
	return true
}

// valueEqual compares two field values structurally.
func valueEqual(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []interface{}:
		bv, ok := b.([]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !valueEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]interface{}:
		bv, ok := b.(map[string]interface{})
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, present := bv[k]
			if !present || !valueEqual(v, bvv) {
				return false
			}
		}
		return true
	default:
		// Uncommon types fall back to their canonical rendering.
		return canonicalFallback(a) == canonicalFallback(b)
	}
}

// asFloat normalizes any numeric type to float64.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
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
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// fingerprintFields hashes a canonical encoding of the fields. The encoding
// applies the same normalization as valueEqual (numeric widening, trailing
// null trimming, sorted map keys) so equal rows hash identically.
func fingerprintFields(fields []interface{}) uint64 {
	end := len(fields)
	for end > 0 && fields[end-1] == nil {
		end--
	}

	var b strings.Builder
	for i := 0; i < end; i++ {
		writeCanonical(&b, fields[i])
	}
	return xxhash.Sum64String(b.String())
}

func writeCanonical(w *strings.Builder, v interface{}) {
	if v == nil {
		w.WriteString("n;")
		return
	}

	if f, ok := asFloat(v); ok {
		w.WriteString("f")
		w.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
		w.WriteString(";")
		return
	}

	switch t := v.(type) {
	case string:
		w.WriteString("s")
		w.WriteString(strconv.Itoa(len(t)))
		w.WriteString(":")
		w.WriteString(t)
		w.WriteString(";")
	case bool:
		if t {
			w.WriteString("b1;")
		} else {
			w.WriteString("b0;")
		}
	case []interface{}:
		w.WriteString("l")
		w.WriteString(strconv.Itoa(len(t)))
		w.WriteString("[")
		for _, e := range t {
			writeCanonical(w, e)
		}
		w.WriteString("];")
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.WriteString("m")
		w.WriteString(strconv.Itoa(len(keys)))
		w.WriteString("{")
		for _, k := range keys {
			w.WriteString(strconv.Itoa(len(k)))
			w.WriteString(":")
			w.WriteString(k)
			w.WriteString("=")
			writeCanonical(w, t[k])
		}
		w.WriteString("};")
	default:
		w.WriteString("x")
		w.WriteString(canonicalFallback(v))
		w.WriteString(";")
	}
}

func canonicalFallback(v interface{}) string {
	return fmt.Sprintf("%T:%v", v, v)
}
