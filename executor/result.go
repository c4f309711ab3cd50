package executor

import (
	"fmt"

	"github.com/avichaym/flinksql-workbench/gateway"
)

// resultBuffer accumulates one executor's materialized result set by folding
// changelog events in arrival order. It is owned exclusively by its executor
// and guarded by the executor's mutex.
type resultBuffer struct {
	columns     []gateway.Column
	columnsSet  bool
	rows        []Row
	diagnostics []string
}

// setColumnsOnce captures the schema from the first page that carries one.
// Later pages never alter it. Returns whether the schema was captured now.
func (b *resultBuffer) setColumnsOnce(columns []gateway.Column) bool {
	if b.columnsSet || len(columns) == 0 {
		return false
	}
	b.columns = make([]gateway.Column, len(columns))
	copy(b.columns, columns)
	b.columnsSet = true
	return true
}

// apply folds one changelog event into the accumulated rows.
//
// INSERT and UPDATE_AFTER append. UPDATE_BEFORE and DELETE remove the first
// structurally equal row; a miss means the local view drifted from the
// remote changelog and is recorded as a diagnostic, not a failure. An
// unrecognized kind folds as INSERT, also with a diagnostic.
func (b *resultBuffer) apply(change gateway.RowData) {
	row := NewRow(change.Fields)

	switch change.Kind {
	case gateway.RowKindInsert, gateway.RowKindUpdateAfter:
		b.rows = append(b.rows, row)
	case gateway.RowKindUpdateBefore, gateway.RowKindDelete:
		if !b.removeFirstMatch(row) {
			b.addDiagnostic("%s event matched no accumulated row, dropped: %v", change.Kind, change.Fields)
		}
	default:
		b.addDiagnostic("unrecognized row kind %q, folded as INSERT", change.Kind)
		b.rows = append(b.rows, row)
	}
}

// removeFirstMatch removes the first accumulated row equal to the given one.
func (b *resultBuffer) removeFirstMatch(row Row) bool {
	for i := range b.rows {
		if b.rows[i].Equal(row) {
			b.rows = append(b.rows[:i], b.rows[i+1:]...)
			return true
		}
	}
	return false
}

func (b *resultBuffer) addDiagnostic(format string, args ...interface{}) {
	b.diagnostics = append(b.diagnostics, fmt.Sprintf(format, args...))
}

// columnsSnapshot returns a copy of the captured schema.
func (b *resultBuffer) columnsSnapshot() []gateway.Column {
	if b.columns == nil {
		return nil
	}
	out := make([]gateway.Column, len(b.columns))
	copy(out, b.columns)
	return out
}

// rowsSnapshot returns a copy of the accumulated rows' field values.
func (b *resultBuffer) rowsSnapshot() [][]interface{} {
	out := make([][]interface{}, len(b.rows))
	for i := range b.rows {
		out[i] = b.rows[i].Fields()
	}
	return out
}

// diagnosticsSnapshot returns a copy of the recorded diagnostics.
func (b *resultBuffer) diagnosticsSnapshot() []string {
	if b.diagnostics == nil {
		return nil
	}
	out := make([]string, len(b.diagnostics))
	copy(out, b.diagnostics)
	return out
}
