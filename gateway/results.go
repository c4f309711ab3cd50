package gateway

// ResultType marks what a result page represents.
type ResultType string

const (
	// ResultTypeNotReady means the operation has produced nothing yet.
	ResultTypeNotReady ResultType = "NOT_READY"
	// ResultTypePayload means the page carries result data.
	ResultTypePayload ResultType = "PAYLOAD"
	// ResultTypeEOS marks end of stream; no further pages exist.
	ResultTypeEOS ResultType = "EOS"
	// ResultTypeCancelled is a local marker set when execution is cancelled
	// before the stream ends. The gateway itself never returns it.
	ResultTypeCancelled ResultType = "CANCELLED"
)

// ResultKind marks whether an operation yields rows at all.
type ResultKind string

const (
	ResultKindSuccess            ResultKind = "SUCCESS"
	ResultKindSuccessWithContent ResultKind = "SUCCESS_WITH_CONTENT"
)

// RowKind classifies a single changelog event.
type RowKind string

const (
	RowKindInsert       RowKind = "INSERT"
	RowKindUpdateBefore RowKind = "UPDATE_BEFORE"
	RowKindUpdateAfter  RowKind = "UPDATE_AFTER"
	RowKindDelete       RowKind = "DELETE"
)

// Column describes one column of a result schema.
type Column struct {
	Name        string `json:"name"`
	LogicalType string `json:"logicalType"`
	Nullable    bool   `json:"nullable"`
}

// RowData is one changelog event: a kind plus positional field values
// aligned with the page's column schema.
type RowData struct {
	Kind   RowKind       `json:"kind"`
	Fields []interface{} `json:"fields"`
}

// ResultsPage is one fetched page of an operation's result stream.
type ResultsPage struct {
	ResultType ResultType
	ResultKind ResultKind

	// Columns is non-empty on pages that carry the schema. Typically only
	// the first payload page does.
	Columns []Column

	// Rows are the changelog events carried by this page, in stream order.
	Rows []RowData

	// NextToken points at the next page when the stream may continue.
	// Nil means no further page is advertised.
	NextToken *int64

	// JobID is the gateway-side job identifier, when known.
	JobID string
}

// IsEndOfStream reports whether this page terminates the result stream.
func (p *ResultsPage) IsEndOfStream() bool {
	return p.ResultType == ResultTypeEOS
}

// HasMore reports whether a further page is advertised.
func (p *ResultsPage) HasMore() bool {
	return p.NextToken != nil
}

// HasContent reports whether the page carries any changelog events.
func (p *ResultsPage) HasContent() bool {
	return len(p.Rows) > 0
}
