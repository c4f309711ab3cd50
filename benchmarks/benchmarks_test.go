// Package benchmarks measures the hot paths of the execution core: row
// comparison, changelog folding, and a full scripted execution round trip.
package benchmarks

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/avichaym/flinksql-workbench/executor"
	"github.com/avichaym/flinksql-workbench/gateway"
	"github.com/avichaym/flinksql-workbench/gateway/gatewaymock"
	"github.com/avichaym/flinksql-workbench/session"
)

func benchOptions() executor.Options {
	return executor.Options{
		PollInterval:      time.Millisecond,
		PollSlice:         time.Millisecond,
		MaxPollIterations: 1 << 20,
	}
}

// BenchmarkRowEqual measures structural row comparison on matching rows,
// which is the worst case: the fingerprint pre-filter cannot rule them out.
func BenchmarkRowEqual(b *testing.B) {
	b.ReportAllocs()

	a := executor.NewRow([]interface{}{int64(42), "account-42", 199.99, true, nil})
	c := executor.NewRow([]interface{}{float64(42), "account-42", 199.99, true})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !a.Equal(c) {
			b.Fatal("rows must compare equal")
		}
	}
}

// BenchmarkRowFingerprint measures row construction including the
// canonical-encoding fingerprint.
func BenchmarkRowFingerprint(b *testing.B) {
	b.ReportAllocs()

	fields := []interface{}{
		int64(42), "account-42", 199.99,
		map[string]interface{}{"country": "NL", "tier": 2},
		[]interface{}{1, 2, 3},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		executor.NewRow(fields)
	}
}

// BenchmarkExecuteChangelog measures a full execution over a scripted
// gateway: paged fetches, update-pair folding, and snapshotting.
func BenchmarkExecuteChangelog(b *testing.B) {
	b.ReportAllocs()

	const pageCount = 10
	const rowsPerPage = 100

	pages := make([]*gateway.ResultsPage, pageCount)
	for p := range pages {
		rows := make([]gateway.RowData, 0, rowsPerPage*2)
		for r := 0; r < rowsPerPage; r++ {
			id := p*rowsPerPage + r
			rows = append(rows,
				gateway.RowData{Kind: gateway.RowKindInsert, Fields: []interface{}{id, "v0"}},
				gateway.RowData{Kind: gateway.RowKindUpdateBefore, Fields: []interface{}{id, "v0"}},
			)
			rows = append(rows, gateway.RowData{Kind: gateway.RowKindUpdateAfter, Fields: []interface{}{id, "v1"}})
		}
		var next *int64
		resultType := gateway.ResultTypePayload
		if p < pageCount-1 {
			next = gatewaymock.NextToken(int64(p + 1))
		} else {
			resultType = gateway.ResultTypeEOS
		}
		pages[p] = gatewaymock.Page(resultType, gateway.ResultKindSuccessWithContent,
			[]gateway.Column{{Name: "id", LogicalType: "INT"}, {Name: "v", LogicalType: "STRING"}},
			rows, next)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mock := gatewaymock.New()
		mock.ScriptStatement("bench", pages...)
		sessions := session.NewCoordinator(mock, session.Options{})
		exec := executor.NewStatementExecutor(fmt.Sprintf("bench-%d", i), mock, sessions, benchOptions())

		if _, err := exec.Execute(context.Background(), "bench"); err != nil {
			b.Fatalf("Execute failed: %v", err)
		}
		if got := exec.Snapshot().RowCount(); got != pageCount*rowsPerPage {
			b.Fatalf("rows = %d, want %d", got, pageCount*rowsPerPage)
		}
	}
}
