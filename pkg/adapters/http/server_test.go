package http

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing"
	"github.com/mathieusouflis/turing/pkg/adapters/memory"
	"github.com/mathieusouflis/turing/pkg/domain"
	"github.com/mathieusouflis/turing/pkg/observability"
)

func newTestServer(t *testing.T) (*httptest.Server, *turing.Service) {
	t.Helper()
	metrics := observability.NewMetrics()
	svc := turing.New(memory.NewStore(), turing.WithMetrics(metrics), turing.WithStepLimits(100, 500))

	handler, err := NewHandler(svc, WithMetricsHandler(metrics.Handler()), WithPingInterval(50*time.Millisecond))
	require.NoError(t, err)

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, svc
}

func do(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf strings.Builder
	_, err = bufio.NewReader(resp.Body).WriteTo(&buf)
	require.NoError(t, err)
	return resp, []byte(buf.String())
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec()
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/api/machines/{id}/run"))
}

func TestServer_MachineLifecycle(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/machines", `{"template":"unary-successor","name":"succ"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var m domain.Machine
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "succ", m.Name)
	assert.Equal(t, "/api/machines/"+m.ID, resp.Header.Get("Location"))

	resp, body = do(t, http.MethodPut, srv.URL+"/api/machines/"+m.ID+"/step", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var step turing.StepResult
	require.NoError(t, json.Unmarshal(body, &step))
	assert.True(t, step.Executed)
	assert.Equal(t, "1_____1", step.Tape)

	resp, body = do(t, http.MethodPut, srv.URL+"/api/machines/"+m.ID+"/run", `{"maxSteps":50}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var run turing.RunResult
	require.NoError(t, json.Unmarshal(body, &run))
	assert.Equal(t, uint64(6), run.StepsExecuted)
	assert.Equal(t, domain.ReachedFinalState, run.HaltReason)
	assert.Equal(t, "1111111", run.Machine.Tape)

	resp, body = do(t, http.MethodPut, srv.URL+"/api/machines/"+m.ID+"/reset", `{"content":"_1","headPosition":0}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	require.NoError(t, json.Unmarshal(body, &m))
	assert.Equal(t, "_1", m.Tape)
	assert.Equal(t, "A", m.CurrentState)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/machines", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Machine
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	resp, _ = do(t, http.MethodDelete, srv.URL+"/api/machines/"+m.ID, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/api/machines/"+m.ID, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var apiErr ErrorResponse
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "MACHINE_NOT_FOUND", apiErr.Code)
	assert.Equal(t, m.ID, apiErr.Context["machineId"])
}

func TestServer_CreateFromLooseRecord(t *testing.T) {
	srv, _ := newTestServer(t)

	body := `{
		"tape": "0110",
		"headPosition": 0,
		"initialState": "flip",
		"finalState": "done",
		"rules": [
			{"currentState": "flip", "readSymbol": "0", "writeSymbol": "1", "moveDirection": "right", "nextState": "flip"},
			{"currentState": "flip", "readSymbol": "1", "writeSymbol": "0", "moveDirection": "right", "nextState": "flip"},
			{"currentState": "flip", "readSymbol": "_", "writeSymbol": "_", "moveDirection": "stay", "nextState": "done"}
		]
	}`
	resp, data := do(t, http.MethodPost, srv.URL+"/api/machines", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))

	var m domain.Machine
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "flip", m.CurrentState)
	assert.Equal(t, []string{"done"}, m.Definition.FinalStates)

	resp, data = do(t, http.MethodPut, srv.URL+"/api/machines/"+m.ID+"/run", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var run turing.RunResult
	require.NoError(t, json.Unmarshal(data, &run))
	assert.Equal(t, "1001_", run.Machine.Tape)
	assert.Equal(t, uint64(100), run.MaxSteps)
}

func TestServer_Errors(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "unknown template", method: http.MethodPost, path: "/api/machines", body: `{"template":"nope"}`, status: http.StatusNotFound, code: "TEMPLATE_NOT_FOUND"},
		{name: "negative head rejected by schema", method: http.MethodPost, path: "/api/machines", body: `{"headPosition":-1}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "oversized head rejected by schema", method: http.MethodPost, path: "/api/machines", body: `{"headPosition":50000000}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "oversized reset head rejected by schema", method: http.MethodPut, path: "/api/machines/x/reset", body: `{"content":"1","headPosition":50000000}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "id with path separator", method: http.MethodPost, path: "/api/machines", body: `{"id":"a/b"}`, status: http.StatusBadRequest, code: "INVALID_ID"},
		{name: "invalid definition", method: http.MethodPost, path: "/api/machines", body: `{"rules":[{"from":"A","read":"ab","write":"1","move":"R","to":"B"}]}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "invalid run budget", method: http.MethodPut, path: "/api/machines/x/run", body: `{"maxSteps":"ten"}`, status: http.StatusBadRequest, code: "VALIDATION_ERROR"},
		{name: "step missing machine", method: http.MethodPut, path: "/api/machines/x/step", status: http.StatusNotFound, code: "MACHINE_NOT_FOUND"},
		{name: "delete missing machine", method: http.MethodDelete, path: "/api/machines/x", status: http.StatusNotFound, code: "MACHINE_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, srv.URL+tt.path, tt.body)
			require.Equal(t, tt.status, resp.StatusCode, string(body))

			var apiErr ErrorResponse
			require.NoError(t, json.Unmarshal(body, &apiErr))
			assert.Equal(t, tt.code, apiErr.Code)
			assert.NotEmpty(t, apiErr.Message)
		})
	}
}

func TestServer_TapeLimits(t *testing.T) {
	svc := turing.New(memory.NewStore(), turing.WithTapeLimits(10, 10))
	handler, err := NewHandler(svc)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/machines", `{"id":"bounded","headPosition":11}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "initial_head")

	resp, body = do(t, http.MethodPost, srv.URL+"/api/machines", `{"id":"bounded","tape":"1","headPosition":10}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = do(t, http.MethodPut, srv.URL+"/api/machines/bounded/reset", `{"content":"1","headPosition":11}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	var apiErr ErrorResponse
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	assert.Contains(t, apiErr.Message, "head_position")

	resp, body = do(t, http.MethodPut, srv.URL+"/api/machines/bounded/reset", `{"content":"`+strings.Repeat("1", 11)+`","headPosition":0}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode, string(body))
	assert.Contains(t, string(body), "content")
}

func TestServer_BodyLimit(t *testing.T) {
	handler, err := NewHandler(turing.New(memory.NewStore()), WithMaxBodyBytes(64))
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	resp, body := do(t, http.MethodPost, srv.URL+"/api/machines", `{"tape":"`+strings.Repeat("1", 128)+`"}`)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode, string(body))
	var apiErr ErrorResponse
	require.NoError(t, json.Unmarshal(body, &apiErr))
	assert.Equal(t, "PAYLOAD_TOO_LARGE", apiErr.Code)

	resp, body = do(t, http.MethodPost, srv.URL+"/api/machines", `{"id":"small"}`)
	assert.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
}

func TestServer_DuplicateID(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/machines", `{"id":"fixed"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp, _ = do(t, http.MethodPost, srv.URL+"/api/machines", `{"id":"fixed"}`)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_MachineGraph(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPost, srv.URL+"/api/machines", `{"id":"g1","template":"unary-successor"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/machines/g1/graph", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/vnd.mermaid")
	assert.Contains(t, string(body), `A -- "_/1,R" --> A`)
	assert.Contains(t, string(body), "class A current;")

	resp, _ = do(t, http.MethodGet, srv.URL+"/api/machines/missing/graph", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_TemplatesInfoAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/api/templates", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["unary-counter","unary-successor"]`, string(body))

	resp, body = do(t, http.MethodGet, srv.URL+"/api/templates/unary-successor", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"name":"unary-successor"`)

	resp, body = do(t, http.MethodGet, srv.URL+"/info", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `"api_version":"1.0.0"`)

	resp, _ = do(t, http.MethodGet, srv.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = do(t, http.MethodGet, srv.URL+"/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "openapi: 3.0.3")

	resp, _ = do(t, http.MethodOptions, srv.URL+"/api/machines", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	do(t, http.MethodPost, srv.URL+"/api/machines", "")
	resp, body = do(t, http.MethodGet, srv.URL+"/metrics", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `turing_operations_total{op="create",result="ok"} 1`)
}

func TestServer_SubscribeEvents(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()

	m, err := svc.Create(ctx, turing.CreateRequest{Template: domain.TemplateUnarySuccessor})
	require.NoError(t, err)

	resp, err := http.Get(srv.URL + "/api/machines/" + m.ID + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 64)
	go func() {
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	next := func() string {
		for {
			select {
			case line, ok := <-lines:
				if !ok {
					return ""
				}
				if strings.HasPrefix(line, "data: ") && line != "data: connected" {
					return strings.TrimPrefix(line, "data: ")
				}
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for event")
			}
		}
	}

	var diff domain.MachineDiff
	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	require.NotNil(t, diff.Tape)
	assert.Equal(t, "______1", *diff.Tape, "first event is the full machine")

	_, err = svc.Step(ctx, m.ID)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	assert.Equal(t, "1_____1", *diff.Tape)

	require.NoError(t, svc.Delete(ctx, m.ID))
	diff = domain.MachineDiff{}
	require.NoError(t, json.Unmarshal([]byte(next()), &diff))
	assert.True(t, diff.Deleted)
}

func TestCreateRequestFromRecord(t *testing.T) {
	rec, err := decodeRecord(strings.NewReader(`{"Name":"x","tape":"11","head_position":1}`))
	require.NoError(t, err)

	req, err := createRequestFromRecord(rec)
	require.NoError(t, err)
	assert.Equal(t, "x", req.Name)
	require.NotNil(t, req.Tape)
	assert.Equal(t, "11", *req.Tape)
	require.NotNil(t, req.Head)
	assert.Equal(t, 1, *req.Head)
	assert.Nil(t, req.Definition, "no definition keys, the default program applies")
}
