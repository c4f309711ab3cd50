package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) (*RestClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	opts := DefaultOptions()
	opts.BaseURL = srv.URL
	client, err := NewRestClient(opts, nil)
	if err != nil {
		t.Fatalf("NewRestClient failed: %v", err)
	}
	return client, srv
}

func TestNewRestClientRejectsBadEndpoints(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"no scheme", "localhost:8083"},
		{"wrong scheme", "ftp://gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.BaseURL = tt.url
			_, err := NewRestClient(opts, nil)

			var gwErr *GatewayError
			if !errors.As(err, &gwErr) || gwErr.Code != CodeInvalidEndpoint {
				t.Errorf("error = %v, want code %s", err, CodeInvalidEndpoint)
			}
		})
	}
}

func TestCreateSessionRoundTrip(t *testing.T) {
	var gotPath, gotMethod string
	var gotBody createSessionRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod = r.URL.Path, r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(createSessionResponse{SessionHandle: "sh-1"})
	}))

	handle, err := client.CreateSession(context.Background(), map[string]string{"k": "v"})
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}
	if handle != "sh-1" {
		t.Errorf("handle = %s, want sh-1", handle)
	}
	if gotMethod != http.MethodPost || gotPath != "/v2/sessions" {
		t.Errorf("request = %s %s, want POST /v2/sessions", gotMethod, gotPath)
	}
	if gotBody.Properties["k"] != "v" {
		t.Errorf("request properties = %v, want the configured ones", gotBody.Properties)
	}
}

func TestCreateSessionEmptyHandleIsError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(createSessionResponse{})
	}))

	_, err := client.CreateSession(context.Background(), nil)
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) || gwErr.Code != CodeBadResponse {
		t.Errorf("error = %v, want code %s", err, CodeBadResponse)
	}
}

func TestSubmitStatementRoundTrip(t *testing.T) {
	var gotPath string
	var gotBody executeStatementRequest

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&gotBody)
		json.NewEncoder(w).Encode(executeStatementResponse{OperationHandle: "op-7"})
	}))

	op, err := client.SubmitStatement(context.Background(), "sh-1", "SELECT 1")
	if err != nil {
		t.Fatalf("SubmitStatement failed: %v", err)
	}
	if op != "op-7" {
		t.Errorf("operation = %s, want op-7", op)
	}
	if gotPath != "/v2/sessions/sh-1/statements" {
		t.Errorf("path = %s, want /v2/sessions/sh-1/statements", gotPath)
	}
	if gotBody.Statement != "SELECT 1" {
		t.Errorf("statement = %q, want %q", gotBody.Statement, "SELECT 1")
	}
}

func TestFetchResultsDecodesPage(t *testing.T) {
	var gotPath string

	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(fetchResultsResponse{
			ResultType: "PAYLOAD",
			ResultKind: "SUCCESS_WITH_CONTENT",
			Results: wireResults{
				Columns: []wireColumn{
					{Name: "id", LogicalType: wireLogicalType{Type: "INT", Nullable: false}},
					{Name: "name", LogicalType: wireLogicalType{Type: "STRING", Nullable: true}},
				},
				Data: []RowData{
					{Kind: RowKindInsert, Fields: []interface{}{float64(1), "a"}},
				},
			},
			NextResultURI: "/v2/sessions/sh-1/operations/op-7/result/2",
			JobID:         "job-9",
		})
	}))

	page, err := client.FetchResults(context.Background(), "sh-1", "op-7", 1)
	if err != nil {
		t.Fatalf("FetchResults failed: %v", err)
	}

	if gotPath != "/v2/sessions/sh-1/operations/op-7/result/1" {
		t.Errorf("path = %s, want the token in the trailing segment", gotPath)
	}
	if page.ResultType != ResultTypePayload || page.ResultKind != ResultKindSuccessWithContent {
		t.Errorf("type/kind = %s/%s", page.ResultType, page.ResultKind)
	}
	if len(page.Columns) != 2 || page.Columns[0].Name != "id" || !page.Columns[1].Nullable {
		t.Errorf("columns = %v", page.Columns)
	}
	if len(page.Rows) != 1 || page.Rows[0].Kind != RowKindInsert {
		t.Errorf("rows = %v", page.Rows)
	}
	if page.NextToken == nil || *page.NextToken != 2 {
		t.Errorf("next token = %v, want 2", page.NextToken)
	}
	if page.JobID != "job-9" {
		t.Errorf("job id = %s, want job-9", page.JobID)
	}
}

func TestFetchResultsWithoutNextURIIsLastPage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(fetchResultsResponse{
			ResultType: "EOS",
			ResultKind: "SUCCESS",
		})
	}))

	page, err := client.FetchResults(context.Background(), "sh-1", "op-7", 3)
	if err != nil {
		t.Fatalf("FetchResults failed: %v", err)
	}
	if page.NextToken != nil {
		t.Errorf("next token = %v, want nil", *page.NextToken)
	}
	if !page.IsEndOfStream() {
		t.Error("EOS page not recognized as end of stream")
	}
}

func TestRemoteErrorPreservesGatewayMessage(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(errorResponse{
			Errors: []string{"org.apache.flink.table.api.ValidationException", "Table `t` not found"},
		})
	}))

	_, err := client.SubmitStatement(context.Background(), "sh-1", "SELECT * FROM t")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error type = %T, want *GatewayError", err)
	}
	if gwErr.Code != CodeRemoteError {
		t.Errorf("code = %s, want %s", gwErr.Code, CodeRemoteError)
	}
	if gwErr.HTTPStatus != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", gwErr.HTTPStatus)
	}
	wantMsg := "org.apache.flink.table.api.ValidationException; Table `t` not found"
	if gwErr.Message != wantMsg {
		t.Errorf("message = %q, want %q", gwErr.Message, wantMsg)
	}
}

func TestRemoteErrorPlainBodyFallback(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("session does not exist"))
	}))

	_, err := client.GetSessionInfo(context.Background(), "stale")
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) {
		t.Fatalf("error type = %T, want *GatewayError", err)
	}
	if gwErr.Message != "session does not exist" {
		t.Errorf("message = %q, want the raw body", gwErr.Message)
	}
}

func TestCloseSessionIssuesDelete(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
	}))

	if err := client.CloseSession(context.Background(), "sh-1"); err != nil {
		t.Fatalf("CloseSession failed: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/v2/sessions/sh-1" {
		t.Errorf("request = %s %s, want DELETE /v2/sessions/sh-1", gotMethod, gotPath)
	}
}

func TestCancelOperationIssuesPost(t *testing.T) {
	var gotMethod, gotPath string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
	}))

	if err := client.CancelOperation(context.Background(), "sh-1", "op-7"); err != nil {
		t.Fatalf("CancelOperation failed: %v", err)
	}
	if gotMethod != http.MethodPost || gotPath != "/v2/sessions/sh-1/operations/op-7/cancel" {
		t.Errorf("request = %s %s, want POST .../cancel", gotMethod, gotPath)
	}
}

func TestParseResultToken(t *testing.T) {
	tests := []struct {
		uri     string
		want    int64
		wantErr bool
	}{
		{"/v2/sessions/abc/operations/def/result/3", 3, false},
		{"/v2/sessions/abc/operations/def/result/0", 0, false},
		{"/v2/sessions/abc/operations/def/result/12/", 12, false},
		{"/v2/sessions/abc/operations/def/result/abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := parseResultToken(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseResultToken(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("parseResultToken(%q) = %d, want %d", tt.uri, got, tt.want)
		}
	}
}
