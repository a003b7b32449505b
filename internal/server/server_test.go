package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilalinamdar/cloud-slang/internal/assert/helpers"
	"github.com/bilalinamdar/cloud-slang/internal/server"
	"github.com/bilalinamdar/cloud-slang/pkg/api"
)

type testServerEnv struct {
	Server *server.Server
	*helpers.TestEngineEnv
}

func TestHealthEndpoint(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		env.MustCompile(t, helpers.EchoOperation().Build())

		w := env.request(t, http.MethodGet, "/engine/health", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var res api.HealthResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, "cloudslang", res.Service)
		assert.Equal(t, "ok", res.Status)
		assert.Equal(t, 1, res.Artifacts)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		env.MustCompile(t, helpers.EchoOperation().Build())

		w := env.request(t, http.MethodGet, "/engine/metrics", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(),
			`cloudslang_compilations_total{status="ok"} 1`)
	})
}

func TestMetricsDisabled(t *testing.T) {
	env := helpers.NewTestEngine(t)
	defer env.Cleanup()

	router := server.NewServer(env.Engine, env.EventHub, nil).SetupRoutes()
	w := httptest.NewRecorder()
	router.ServeHTTP(w,
		httptest.NewRequest(http.MethodGet, "/engine/metrics", nil),
	)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodOptions, "/engine/run", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestListArtifacts(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		env.MustCompile(t,
			helpers.EchoFlow().Build(), helpers.EchoOperation().Build(),
		)

		w := env.request(t, http.MethodGet, "/engine/artifact", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var res api.ArtifactsListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Equal(t, 1, res.Count)
		require.Len(t, res.Artifacts, 1)
		assert.Equal(t, api.Name("echo_flow"), res.Artifacts[0].Name)
		assert.Equal(t, api.ExecutableFlow, res.Artifacts[0].Kind)
		assert.Equal(t, []api.Name{"echo"}, res.Artifacts[0].Dependencies)
	})
}

func TestGetArtifact(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		env.MustCompile(t, helpers.EchoOperation().Build())

		w := env.request(t, http.MethodGet, "/engine/artifact/echo", nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var info api.ArtifactInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Equal(t, api.Name("echo"), info.Name)
		assert.Equal(t, api.ExecutableOperation, info.Kind)
		assert.Equal(t, 3, info.Steps)
	})
}

func TestGetArtifactNotFound(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodGet, "/engine/artifact/missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCompileArtifact(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodPost, "/engine/artifact",
			api.CompileRequest{
				Entry:      "echo_flow",
				Flows:      []*api.Flow{helpers.EchoFlow().Build()},
				Operations: []*api.Operation{helpers.EchoOperation().Build()},
			},
		)
		assert.Equal(t, http.StatusCreated, w.Code)

		var info api.ArtifactInfo
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
		assert.Equal(t, api.Name("echo_flow"), info.Name)

		_, ok := env.Engine.Artifact("echo_flow")
		assert.True(t, ok)
	})
}

func TestCompileArtifactInvalidJSON(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		req := httptest.NewRequest(http.MethodPost, "/engine/artifact",
			bytes.NewReader([]byte("not-json")),
		)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		env.Server.SetupRoutes().ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCompileArtifactEntryNotFound(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodPost, "/engine/artifact",
			api.CompileRequest{
				Entry:      "missing",
				Operations: []*api.Operation{helpers.EchoOperation().Build()},
			},
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var res api.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		assert.Contains(t, res.Error, server.ErrEntryNotFound.Error())
	})
}

func TestCompileArtifactMissingDependency(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodPost, "/engine/artifact",
			api.CompileRequest{
				Entry: "echo_flow",
				Flows: []*api.Flow{helpers.EchoFlow().Build()},
			},
		)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, env.Engine.Artifacts())
	})
}

func TestStartRun(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		env.MustCompile(t,
			helpers.EchoFlow().Build(), helpers.EchoOperation().Build(),
		)

		w := env.request(t, http.MethodPost, "/engine/run", api.RunRequest{
			Artifact: "echo_flow",
			Inputs:   api.Args{"input1": "hello"},
		})
		require.Equal(t, http.StatusAccepted, w.Code)

		var res api.RunStartedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
		require.NotEmpty(t, res.RunID)

		state := env.wait(t, res.RunID)
		assert.Equal(t, api.RunFinished, state.Status)
		assert.Equal(t, api.ResultSuccess, state.Result)
		assert.Equal(t, "hello", state.Outputs["text"])

		w = env.request(t, http.MethodGet, "/engine/run/"+string(res.RunID), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var got api.RunState
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, res.RunID, got.ID)
		assert.Equal(t, api.RunFinished, got.Status)
	})
}

func TestStartRunSystemProperties(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		op := helpers.EchoOperation().Build()
		op.Inputs[0].Value = "${get_sp('app.greeting')}"
		op.Inputs[0].Functions = []api.ScriptFunction{api.FunctionGetSystemProperty}
		env.MustCompile(t, op)

		w := env.request(t, http.MethodPost, "/engine/run", api.RunRequest{
			Artifact:         "echo",
			SystemProperties: json.RawMessage(`{"app":{"greeting":"hi"}}`),
		})
		require.Equal(t, http.StatusAccepted, w.Code)

		var res api.RunStartedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

		state := env.wait(t, res.RunID)
		assert.Equal(t, api.RunFinished, state.Status)
		assert.Equal(t, "hi", state.Outputs["text"])
	})
}

func TestStartRunInvalidProperties(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		env.MustCompile(t, helpers.EchoOperation().Build())

		w := env.request(t, http.MethodPost, "/engine/run", map[string]any{
			"artifact":          "echo",
			"system_properties": []int{1, 2},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStartRunArtifactRequired(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodPost, "/engine/run", api.RunRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestStartRunUnknownArtifact(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodPost, "/engine/run", api.RunRequest{
			Artifact: "missing",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestStartRunEngineStopped(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		env.MustCompile(t, helpers.EchoOperation().Build())
		require.NoError(t, env.Engine.Stop())

		w := env.request(t, http.MethodPost, "/engine/run", api.RunRequest{
			Artifact: "echo",
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestGetRunNotFound(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodGet, "/engine/run/missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestCancelRun(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		release := make(chan struct{})
		defer close(release)
		env.Engine.RegisterHandler("block",
			func(ctx context.Context, _ api.Args) (api.Args, error) {
				select {
				case <-release:
				case <-ctx.Done():
				}
				return api.Args{}, nil
			},
		)
		op := &api.Operation{
			Name:    "blocker",
			Action:  &api.Action{Handler: "block"},
			Results: []*api.Result{{Name: api.ResultSuccess}},
		}
		env.MustCompile(t, op)

		w := env.request(t, http.MethodPost, "/engine/run", api.RunRequest{
			Artifact: "blocker",
		})
		require.Equal(t, http.StatusAccepted, w.Code)

		var res api.RunStartedResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))

		w = env.request(t,
			http.MethodDelete, "/engine/run/"+string(res.RunID), nil,
		)
		assert.Equal(t, http.StatusNoContent, w.Code)

		state := env.wait(t, res.RunID)
		assert.Equal(t, api.RunCancelled, state.Status)
	})
}

func TestCancelRunNotFound(t *testing.T) {
	withTestServerEnv(t, func(env *testServerEnv) {
		w := env.request(t, http.MethodDelete, "/engine/run/missing", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func withTestServerEnv(t *testing.T, fn func(*testServerEnv)) {
	t.Helper()
	env := testServer(t)
	defer env.Cleanup()
	fn(env)
}

func testServer(t *testing.T) *testServerEnv {
	t.Helper()
	env := helpers.NewTestEngine(t)
	srv := server.NewServer(env.Engine, env.EventHub, env.Metrics.Handler())
	return &testServerEnv{
		Server:        srv,
		TestEngineEnv: env,
	}
}

func (env *testServerEnv) request(
	t *testing.T, method, path string, body any,
) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, path, bytes.NewReader(data))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	w := httptest.NewRecorder()
	env.Server.SetupRoutes().ServeHTTP(w, req)
	return w
}

func (env *testServerEnv) wait(t *testing.T, id api.RunID) *api.RunState {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	state, err := env.Engine.Wait(ctx, id)
	require.NoError(t, err)
	return state
}
