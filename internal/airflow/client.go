package airflow

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/airbridge-project/airbridge/internal/core"
)

// requestTimeout bounds every data-plane call. MWAA webserver responses are
// interactive-scale; anything slower is treated as a transport failure.
const requestTimeout = 30 * time.Second

// Client is one authenticated session against a single environment's Airflow
// webserver. Instances are owned by the client cache and live for the
// process; the facade only borrows them per call.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  zerolog.Logger
}

// NewClient derives the bearer token from a control-plane CLI credential and
// builds the HTTP session. A derivation failure means a broken credential and
// aborts construction.
func NewClient(webserverHostname, credential string, logger zerolog.Logger) (*Client, error) {
	token, err := DeriveToken(credential)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: "https://" + webserverHostname + "/api/v1",
		token:   token,
		http:    &http.Client{Timeout: requestTimeout},
		logger:  logger.With().Str("webserver", webserverHostname).Logger(),
	}, nil
}

// Close releases the session's idle connections. The cache never evicts, so
// this only runs at process shutdown.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// request is the single primitive every endpoint method funnels through. It
// never returns a Go error for expected failure modes: HTTP 4xx/5xx becomes a
// remote-kind result with the body preserved, everything before a response
// becomes a transport-kind result.
func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any) core.Result {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return core.Failuref(core.KindDecode, "encoding request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return core.Failuref(core.KindTransport, "building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	reqID := uuid.New().String()[:8]
	c.logger.Debug().Str("req_id", reqID).Str("method", method).Str("path", path).Msg("airflow api call")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Str("req_id", reqID).Err(err).Msg("airflow request failed")
		return core.Failuref(core.KindTransport, "%v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return core.Failuref(core.KindTransport, "reading response: %v", err)
	}

	if resp.StatusCode >= 400 {
		c.logger.Error().Str("req_id", reqID).Int("status", resp.StatusCode).Msg("airflow api error")
		return core.Failure(core.KindRemote, fmt.Sprintf("HTTP %d", resp.StatusCode), string(data))
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return core.OKMessage("Success")
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return core.Failuref(core.KindDecode, "parsing response body: %v", err)
	}
	return core.OK(payload)
}

// ListDagsParams filters a DAG listing. Zero values are omitted from the
// query except Limit/OnlyActive, which carry API-side defaults.
type ListDagsParams struct {
	Limit        int
	Offset       int
	Tags         []string
	DagIDPattern string
	OnlyActive   bool
}

// ListDags returns the DAGs registered in the environment.
func (c *Client) ListDags(ctx context.Context, p ListDagsParams) core.Result {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(p.Limit))
	query.Set("offset", strconv.Itoa(p.Offset))
	query.Set("only_active", strconv.FormatBool(p.OnlyActive))
	if len(p.Tags) > 0 {
		query.Set("tags", strings.Join(p.Tags, ","))
	}
	if p.DagIDPattern != "" {
		query.Set("dag_id_pattern", p.DagIDPattern)
	}
	return c.request(ctx, http.MethodGet, "/dags", query, nil)
}

// GetDag returns the detail record for one DAG.
func (c *Client) GetDag(ctx context.Context, dagID string) core.Result {
	return c.request(ctx, http.MethodGet, "/dags/"+url.PathEscape(dagID), nil, nil)
}

// GetDagSource fetches a DAG's source file. The API base64-encodes the
// content field; it is decoded here so callers always see plain text.
func (c *Client) GetDagSource(ctx context.Context, dagID string) core.Result {
	result := c.request(ctx, http.MethodGet, "/dagSources/"+url.PathEscape(dagID), nil, nil)
	if result.IsError() {
		return result
	}
	encoded, ok := result.Payload["content"].(string)
	if !ok {
		return result
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return core.Failuref(core.KindDecode, "decoding dag source: %v", err)
	}
	result.Payload["content"] = string(decoded)
	return result
}

// TriggerDagRun starts a new run. When the caller supplies no run id, one of
// the form manual__<RFC 3339 UTC> is synthesized; nanosecond precision keeps
// two in-process triggers from colliding.
func (c *Client) TriggerDagRun(ctx context.Context, dagID, dagRunID string, conf map[string]any, note string) core.Result {
	if dagRunID == "" {
		dagRunID = "manual__" + time.Now().UTC().Format("2006-01-02T15:04:05.000000000")
	}
	body := map[string]any{"dag_run_id": dagRunID}
	if len(conf) > 0 {
		body["conf"] = conf
	}
	if note != "" {
		body["note"] = note
	}
	return c.request(ctx, http.MethodPost, "/dags/"+url.PathEscape(dagID)+"/dagRuns", nil, body)
}

// GetDagRun returns the detail record for one run.
func (c *Client) GetDagRun(ctx context.Context, dagID, dagRunID string) core.Result {
	return c.request(ctx, http.MethodGet,
		"/dags/"+url.PathEscape(dagID)+"/dagRuns/"+url.PathEscape(dagRunID), nil, nil)
}

// ListDagRunsParams filters a run listing.
type ListDagRunsParams struct {
	Limit            int
	State            []string
	ExecutionDateGTE string
	ExecutionDateLTE string
}

// ListDagRuns returns runs for one DAG, newest first per API default.
func (c *Client) ListDagRuns(ctx context.Context, dagID string, p ListDagRunsParams) core.Result {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(p.Limit))
	for _, s := range p.State {
		query.Add("state", s)
	}
	if p.ExecutionDateGTE != "" {
		query.Set("execution_date_gte", p.ExecutionDateGTE)
	}
	if p.ExecutionDateLTE != "" {
		query.Set("execution_date_lte", p.ExecutionDateLTE)
	}
	return c.request(ctx, http.MethodGet, "/dags/"+url.PathEscape(dagID)+"/dagRuns", query, nil)
}

// GetTaskInstance returns one task instance within a run.
func (c *Client) GetTaskInstance(ctx context.Context, dagID, dagRunID, taskID string) core.Result {
	return c.request(ctx, http.MethodGet,
		"/dags/"+url.PathEscape(dagID)+"/dagRuns/"+url.PathEscape(dagRunID)+"/taskInstances/"+url.PathEscape(taskID),
		nil, nil)
}

// GetTaskLogs fetches logs for a task instance. tryNumber <= 0 means the
// latest attempt.
func (c *Client) GetTaskLogs(ctx context.Context, dagID, dagRunID, taskID string, tryNumber int) core.Result {
	path := "/dags/" + url.PathEscape(dagID) +
		"/dagRuns/" + url.PathEscape(dagRunID) +
		"/taskInstances/" + url.PathEscape(taskID) + "/logs"
	if tryNumber > 0 {
		path += "/" + strconv.Itoa(tryNumber)
	}
	return c.request(ctx, http.MethodGet, path, nil, nil)
}

// Page is the limit/offset window shared by the paginated listings.
type Page struct {
	Limit  int
	Offset int
}

func (p Page) values() url.Values {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	query := url.Values{}
	query.Set("limit", strconv.Itoa(p.Limit))
	query.Set("offset", strconv.Itoa(p.Offset))
	return query
}

// ListConnections returns the environment's Airflow connections.
func (c *Client) ListConnections(ctx context.Context, p Page) core.Result {
	return c.request(ctx, http.MethodGet, "/connections", p.values(), nil)
}

// ListVariables returns the environment's Airflow variables.
func (c *Client) ListVariables(ctx context.Context, p Page) core.Result {
	return c.request(ctx, http.MethodGet, "/variables", p.values(), nil)
}

// GetImportErrors returns DAG import errors recorded by the scheduler.
func (c *Client) GetImportErrors(ctx context.Context, p Page) core.Result {
	return c.request(ctx, http.MethodGet, "/importErrors", p.values(), nil)
}
