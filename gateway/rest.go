package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/avichaym/flinksql-workbench/logging"
)

// RestClient implements Client against the SQL Gateway REST API.
type RestClient struct {
	base       *url.URL
	apiVersion string
	httpClient *http.Client
	logger     logging.Logger
	debugMode  bool
}

// NewRestClient creates a gateway client for the endpoint in opts.BaseURL.
func NewRestClient(opts Options, logger logging.Logger) (*RestClient, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.BaseURL == "" {
		return nil, &GatewayError{
			Code:    CodeInvalidEndpoint,
			Message: "gateway base URL must not be empty",
		}
	}

	base, err := url.Parse(opts.BaseURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, &GatewayError{
			Code:    CodeInvalidEndpoint,
			Message: fmt.Sprintf("invalid gateway base URL %q", opts.BaseURL),
			Cause:   err,
		}
	}

	apiVersion := opts.APIVersion
	if apiVersion == "" {
		apiVersion = DefaultOptions().APIVersion
	}
	timeout := opts.HTTPTimeout
	if timeout == 0 {
		timeout = DefaultOptions().HTTPTimeout
	}

	return &RestClient{
		base:       base,
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.WithFields(logging.String("component", "gateway")),
		debugMode:  opts.DebugMode,
	}, nil
}

// Wire-level request/response shapes.

type createSessionRequest struct {
	Properties map[string]string `json:"properties,omitempty"`
}

type createSessionResponse struct {
	SessionHandle string `json:"sessionHandle"`
}

type getSessionResponse struct {
	Properties map[string]string `json:"properties"`
}

type executeStatementRequest struct {
	Statement string `json:"statement"`
}

type executeStatementResponse struct {
	OperationHandle string `json:"operationHandle"`
}

type wireLogicalType struct {
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type wireColumn struct {
	Name        string          `json:"name"`
	LogicalType wireLogicalType `json:"logicalType"`
}

type wireResults struct {
	Columns []wireColumn `json:"columns"`
	Data    []RowData    `json:"data"`
}

type fetchResultsResponse struct {
	ResultType    string      `json:"resultType"`
	ResultKind    string      `json:"resultKind"`
	Results       wireResults `json:"results"`
	NextResultURI string      `json:"nextResultUri"`
	JobID         string      `json:"jobID"`
}

type errorResponse struct {
	Errors []string `json:"errors"`
}

// CreateSession implements Client.
func (c *RestClient) CreateSession(ctx context.Context, properties map[string]string) (SessionHandle, error) {
	var resp createSessionResponse
	err := c.doJSON(ctx, http.MethodPost, c.path("sessions"), createSessionRequest{Properties: properties}, &resp)
	if err != nil {
		return "", err
	}
	if resp.SessionHandle == "" {
		return "", responseError("gateway returned an empty session handle", nil)
	}
	c.logger.Info("session created", logging.String("sessionHandle", resp.SessionHandle))
	return SessionHandle(resp.SessionHandle), nil
}

// GetSessionInfo implements Client.
func (c *RestClient) GetSessionInfo(ctx context.Context, handle SessionHandle) (*SessionInfo, error) {
	var resp getSessionResponse
	err := c.doJSON(ctx, http.MethodGet, c.path("sessions", string(handle)), nil, &resp)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{Handle: handle, Properties: resp.Properties}, nil
}

// CloseSession implements Client.
func (c *RestClient) CloseSession(ctx context.Context, handle SessionHandle) error {
	err := c.doJSON(ctx, http.MethodDelete, c.path("sessions", string(handle)), nil, nil)
	if err != nil {
		return err
	}
	c.logger.Info("session closed", logging.String("sessionHandle", string(handle)))
	return nil
}

// SubmitStatement implements Client.
func (c *RestClient) SubmitStatement(ctx context.Context, handle SessionHandle, statement string) (OperationHandle, error) {
	var resp executeStatementResponse
	err := c.doJSON(ctx, http.MethodPost, c.path("sessions", string(handle), "statements"), executeStatementRequest{Statement: statement}, &resp)
	if err != nil {
		return "", err
	}
	if resp.OperationHandle == "" {
		return "", responseError("gateway returned an empty operation handle", nil)
	}
	return OperationHandle(resp.OperationHandle), nil
}

// FetchResults implements Client.
func (c *RestClient) FetchResults(ctx context.Context, session SessionHandle, op OperationHandle, token int64) (*ResultsPage, error) {
	var resp fetchResultsResponse
	p := c.path("sessions", string(session), "operations", string(op), "result", strconv.FormatInt(token, 10))
	if err := c.doJSON(ctx, http.MethodGet, p, nil, &resp); err != nil {
		return nil, err
	}

	page := &ResultsPage{
		ResultType: ResultType(resp.ResultType),
		ResultKind: ResultKind(resp.ResultKind),
		Rows:       resp.Results.Data,
		JobID:      resp.JobID,
	}

	for _, col := range resp.Results.Columns {
		page.Columns = append(page.Columns, Column{
			Name:        col.Name,
			LogicalType: col.LogicalType.Type,
			Nullable:    col.LogicalType.Nullable,
		})
	}

	if resp.NextResultURI != "" {
		next, err := parseResultToken(resp.NextResultURI)
		if err != nil {
			return nil, responseError(fmt.Sprintf("cannot parse next result URI %q", resp.NextResultURI), err)
		}
		page.NextToken = &next
	}

	return page, nil
}

// CancelOperation implements Client.
func (c *RestClient) CancelOperation(ctx context.Context, session SessionHandle, op OperationHandle) error {
	return c.doJSON(ctx, http.MethodPost, c.path("sessions", string(session), "operations", string(op), "cancel"), nil, nil)
}

// parseResultToken extracts the trailing page token from a nextResultUri,
// e.g. "/v2/sessions/abc/operations/def/result/3" -> 3.
func parseResultToken(uri string) (int64, error) {
	trimmed := strings.TrimRight(uri, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 || idx == len(trimmed)-1 {
		return 0, fmt.Errorf("no token segment in %q", uri)
	}
	return strconv.ParseInt(trimmed[idx+1:], 10, 64)
}

func (c *RestClient) path(segments ...string) string {
	parts := make([]string, 0, len(segments)+1)
	parts = append(parts, c.apiVersion)
	for _, s := range segments {
		parts = append(parts, url.PathEscape(s))
	}
	return "/" + strings.Join(parts, "/")
}

// doJSON performs one round trip, decoding a JSON body into out when out is
// non-nil. Non-2xx responses are mapped to GatewayError with the remote
// error text preserved.
func (c *RestClient) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return requestError("cannot encode request body", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return requestError("cannot build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if c.debugMode {
		c.logger.Debug("gateway request", logging.String("method", method), logging.String("url", u.String()))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return requestError(fmt.Sprintf("%s %s failed", method, path), err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return responseError("cannot read response body", err)
	}

	if c.debugMode {
		c.logger.Debug("gateway response",
			logging.Int("status", resp.StatusCode),
			logging.String("body", string(raw)))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.remoteError(resp.StatusCode, raw, method, path)
	}

	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return responseError("cannot decode response body", err)
		}
	}
	return nil
}

// remoteError converts a non-2xx gateway response into a GatewayError,
// keeping the remote message intact.
func (c *RestClient) remoteError(status int, raw []byte, method, path string) error {
	message := strings.TrimSpace(string(raw))

	var parsed errorResponse
	if err := json.Unmarshal(raw, &parsed); err == nil && len(parsed.Errors) > 0 {
		message = strings.Join(parsed.Errors, "; ")
	}
	if message == "" {
		message = http.StatusText(status)
	}

	return &GatewayError{
		Code:       CodeRemoteError,
		Message:    message,
		HTTPStatus: status,
		Details: map[string]interface{}{
			"method": method,
			"path":   path,
		},
	}
}
