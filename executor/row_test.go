package executor

import (
	"testing"
)

func TestRowEqualStructural(t *testing.T) {
	tests := []struct {
		name  string
		a     []interface{}
		b     []interface{}
		equal bool
	}{
		{"identical scalars", []interface{}{1, "a", true}, []interface{}{1, "a", true}, true},
		{"different values", []interface{}{1, "a"}, []interface{}{2, "a"}, false},
		{"int vs float same value", []interface{}{int64(5)}, []interface{}{float64(5)}, true},
		{"string vs number", []interface{}{"5"}, []interface{}{5}, false},
		{"both nil fields", []interface{}{nil, nil}, []interface{}{nil, nil}, true},
		{"nil vs value", []interface{}{nil}, []interface{}{"x"}, false},
		{"trailing null equals absent", []interface{}{1, "a", nil}, []interface{}{1, "a"}, true},
		{"absent equals trailing null", []interface{}{1}, []interface{}{1, nil, nil}, true},
		{"interior null not absent", []interface{}{1, nil, "b"}, []interface{}{1, "b"}, false},
		{"nested list equal", []interface{}{[]interface{}{1, 2}}, []interface{}{[]interface{}{1, 2}}, true},
		{"nested list order matters", []interface{}{[]interface{}{1, 2}}, []interface{}{[]interface{}{2, 1}}, false},
		{
			"nested map key order irrelevant",
			[]interface{}{map[string]interface{}{"x": 1, "y": 2}},
			[]interface{}{map[string]interface{}{"y": 2, "x": 1}},
			true,
		},
		{
			"nested map differing value",
			[]interface{}{map[string]interface{}{"x": 1}},
			[]interface{}{map[string]interface{}{"x": 2}},
			false,
		},
		{"empty rows", nil, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ra := NewRow(tt.a)
			rb := NewRow(tt.b)
			if got := ra.Equal(rb); got != tt.equal {
				t.Errorf("Equal(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.equal)
			}
			// Equality must be symmetric.
			if got := rb.Equal(ra); got != tt.equal {
				t.Errorf("Equal(%v, %v) = %v, want %v (symmetry)", tt.b, tt.a, got, tt.equal)
			}
		})
	}
}

func TestRowFingerprintMatchesEquality(t *testing.T) {
	// Structurally equal rows must share a fingerprint; the fingerprint is
	// the fast path that rules matches out.
	pairs := [][2][]interface{}{
		{{1, "a"}, {float64(1), "a"}},
		{{1, "a", nil}, {1, "a"}},
		{{map[string]interface{}{"x": 1, "y": 2}}, {map[string]interface{}{"y": 2, "x": 1}}},
	}

	for _, pair := range pairs {
		ra := NewRow(pair[0])
		rb := NewRow(pair[1])
		if !ra.Equal(rb) {
			t.Fatalf("expected %v equal to %v", pair[0], pair[1])
		}
		if ra.fingerprint != rb.fingerprint {
			t.Errorf("equal rows %v and %v have different fingerprints", pair[0], pair[1])
		}
	}
}

func TestRowFieldsReturnsCopy(t *testing.T) {
	row := NewRow([]interface{}{1, "a"})

	fields := row.Fields()
	fields[0] = 99

	if row.Fields()[0] != 1 {
		t.Error("mutating the returned slice changed the row")
	}
}
