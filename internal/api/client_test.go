package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serrors "github.com/strrl/split-specs-dashboard/internal/errors"
)

type staticAuth struct{ token string }

func (a *staticAuth) Apply(req *http.Request) error {
	req.Header.Set("Authorization", a.token)
	return nil
}

type recordingHandler struct{ errs []error }

func (h *recordingHandler) HandleError(_ context.Context, err error) bool {
	h.errs = append(h.errs, err)
	return serrors.IsAccessDenied(err)
}

type gqlRequest struct {
	OperationName string         `json:"operationName"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables"`
}

func setupTestServer(t *testing.T, handler func(w http.ResponseWriter, req gqlRequest, r *http.Request)) (*Client, *recordingHandler) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req gqlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(w, req, r)
	}))
	t.Cleanup(server.Close)

	errs := &recordingHandler{}
	client := NewClient(server.URL, time.Second, &staticAuth{token: "tok"}, errs, zerolog.Nop())
	client.SetHTTPClient(server.Client())
	return client, errs
}

func writeData(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"data": data})
}

func TestClient_Projects(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, req gqlRequest, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.Equal(t, "projects", req.OperationName)
		writeData(w, map[string]any{"projects": []string{"alpha", "beta"}})
	})

	projects, err := client.Projects(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, projects)
}

func TestClient_ProjectPagination(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, req gqlRequest, _ *http.Request) {
		assert.Equal(t, "alpha", req.Variables["name"])
		page, ok := req.Variables["pagination"].(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 15, page["limit"])
		assert.EqualValues(t, 30, page["offset"])
		writeData(w, map[string]any{"project": map[string]any{
			"projectName":   "alpha",
			"totalSessions": 32,
			"sessions": []map[string]any{
				{"id": "s1", "start": 100, "end": 200, "backlog": []map[string]any{
					{"file": "a.spec.js", "estimatedDuration": 10, "assignedTo": "m1", "start": 100, "end": 110, "passed": true},
				}},
			},
		}})
	})

	project, err := client.Project(context.Background(), "alpha", Pagination{Limit: 15, Offset: 30})
	require.NoError(t, err)
	assert.Equal(t, "alpha", project.ProjectName)
	assert.Equal(t, 32, project.TotalSessions)
	require.Len(t, project.Sessions, 1)
	assert.Equal(t, "m1", project.Sessions[0].Backlog[0].AssignedTo)
	assert.True(t, project.Sessions[0].Backlog[0].Passed)
}

func TestClient_ProjectWithoutPagination(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, req gqlRequest, _ *http.Request) {
		_, ok := req.Variables["pagination"]
		assert.False(t, ok)
		writeData(w, map[string]any{"project": nil})
	})

	_, err := client.Project(context.Background(), "ghost", Pagination{})
	assert.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestClient_NextSpecDefaultsMachine(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, req gqlRequest, _ *http.Request) {
		assert.Equal(t, "s1", req.Variables["sessionId"])
		opts := req.Variables["options"].(map[string]any)
		assert.Equal(t, DefaultMachineID, opts["machineId"])
		writeData(w, map[string]any{"nextSpec": "cypress/integration/a.spec.js"})
	})

	file, err := client.NextSpec(context.Background(), "s1", "  ")
	require.NoError(t, err)
	assert.Equal(t, "cypress/integration/a.spec.js", file)
}

func TestClient_GraphQLErrors(t *testing.T) {
	client, errs := setupTestServer(t, func(w http.ResponseWriter, _ gqlRequest, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"data":   nil,
			"errors": []map[string]any{{"message": "session finished", "path": []any{"nextSpec"}}},
		})
	})

	_, err := client.NextSpec(context.Background(), "s1", "m1")
	require.Error(t, err)
	assert.ErrorIs(t, err, serrors.ErrSessionFinished)
	assert.False(t, serrors.IsAccessDenied(err))

	var gqlErr *serrors.GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Equal(t, []string{"nextSpec"}, gqlErr.Path)
	require.Len(t, errs.errs, 1)
}

func TestClient_AccessDeniedReported(t *testing.T) {
	client, errs := setupTestServer(t, func(w http.ResponseWriter, _ gqlRequest, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"errors": []map[string]any{{"message": "access denied", "path": []any{"getApiKeys"}}},
		})
	})

	_, err := client.ApiKeys(context.Background())
	assert.True(t, serrors.IsAccessDenied(err))
	require.Len(t, errs.errs, 1)
	assert.True(t, serrors.IsAccessDenied(errs.errs[0]))
}

func TestClient_HTTPStatusErrors(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, _ gqlRequest, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("unauthorized"))
	})

	err := client.DeleteSession(context.Background(), "s1")
	var te *serrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusUnauthorized, te.StatusCode)
	assert.True(t, serrors.IsAccessDenied(err))
	assert.Equal(t, "unauthorized", serrors.Message(err))
}

func TestClient_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	client := NewClient(server.URL, time.Second, nil, nil, zerolog.Nop())
	_, err := client.Projects(context.Background())
	var te *serrors.TransportError
	require.ErrorAs(t, err, &te)
	assert.Zero(t, te.StatusCode)
	assert.True(t, serrors.IsRetryable(err))
}

func TestClient_AddSession(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, req gqlRequest, _ *http.Request) {
		session := req.Variables["session"].(map[string]any)
		assert.Equal(t, "alpha", session["projectName"])
		files := session["specFiles"].([]any)
		require.Len(t, files, 2)
		assert.Equal(t, "a", files[0].(map[string]any)["filePath"])
		writeData(w, map[string]any{"addSession": map[string]any{"sessionId": "s9", "projectName": "alpha"}})
	})

	info, err := client.AddSession(context.Background(), "alpha", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, "s9", info.SessionID)
}

func TestClient_LoginAndApiKeys(t *testing.T) {
	client, _ := setupTestServer(t, func(w http.ResponseWriter, req gqlRequest, _ *http.Request) {
		switch req.OperationName {
		case "login":
			assert.Equal(t, "dev@example.com", req.Variables["email"])
			writeData(w, map[string]any{"login": "jwt-token"})
		case "addApiKey":
			assert.Equal(t, "ci", req.Variables["name"])
			assert.EqualValues(t, 1700000000, req.Variables["expireAt"])
			writeData(w, map[string]any{"addApiKey": "secret-key"})
		default:
			t.Errorf("unexpected operation %q", req.OperationName)
		}
	})

	token, err := client.Login(context.Background(), "dev@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "jwt-token", token)

	key, err := client.AddApiKey(context.Background(), "ci", 1700000000)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", key)
}
