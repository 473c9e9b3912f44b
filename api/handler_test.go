package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deepnoodle-ai/skillet"
	"github.com/deepnoodle-ai/skillet/sandbox"
	"github.com/deepnoodle-ai/skillet/store"
)

// The test binary doubles as the sandbox child.
func TestMain(m *testing.M) {
	if sandbox.IsChild() {
		os.Exit(sandbox.RunChild(os.Stdin, os.Stdout, os.Stderr))
	}
	os.Exit(m.Run())
}

type fakeTester struct {
	result *sandbox.Result
	calls  int
}

func (f *fakeTester) Test(ctx context.Context, code string, params map[string]any) (*sandbox.Result, error) {
	f.calls++
	return f.result, nil
}

type testEnv struct {
	registry *skillet.Registry
	store    *store.MemoryStore
	server   *httptest.Server
}

func newTestEnv(t *testing.T, tester Tester) *testEnv {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemoryStore()
	reg := skillet.NewRegistry(skillet.RegistryOptions{Store: st})
	require.NoError(t, reg.Load(ctx))

	oracle := &skillet.MockOracle{
		YesNo: func(ctx context.Context, prompt string) (string, error) {
			if strings.Contains(prompt, "Tool: getTime\n") {
				return "yes", nil
			}
			return "no", nil
		},
	}
	runner := skillet.NewRunner(skillet.RunnerOptions{
		Registry: reg,
		Selector: skillet.NewSelector(skillet.SelectorOptions{Oracle: oracle}),
	})
	h := NewHandler(Options{
		Registry: reg,
		Runner:   runner,
		Tester:   tester,
		Now:      func() time.Time { return time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC) },
	})
	ts := httptest.NewServer(h.Router())
	t.Cleanup(ts.Close)
	return &testEnv{registry: reg, store: st, server: ts}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp, out
}

func greetSkill(name string) map[string]any {
	return map[string]any{
		"name":              name,
		"description":       "Use when the user wants to be greeted by name",
		"vibe_test_phrases": []string{"say hello to Ada", "greet Grace please"},
		"parameters": map[string]any{
			"who": map[string]any{"type": "string", "required": true, "description": "Who to greet"},
		},
		"function_code": "func execute(who) {\n    log(\"[greet] Hello, \" + who)\n}\n",
		"test_input":    map[string]any{"who": "Ada"},
	}
}

func TestHealthCheck(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, body := env.do(t, "GET", "/api/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
	require.EqualValues(t, 8, body["skills"])
}

func TestListAndGetSkills(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, "GET", "/api/skills", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, body["skills"], 8)
	first := body["skills"].([]any)[0].(map[string]any)
	require.Equal(t, "fear", first["name"])

	_, body = env.do(t, "GET", "/api/skills?match=get*", nil)
	require.Len(t, body["skills"], 2)

	resp, body = env.do(t, "GET", "/api/skills/square_root", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "square_root", body["skill"].(map[string]any)["name"])

	resp, body = env.do(t, "GET", "/api/skills/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, false, body["success"])
	require.Equal(t, "Skill not found", body["error"])
}

func TestCreateSkillRunsSandbox(t *testing.T) {
	h, err := sandbox.NewHarness(sandbox.HarnessOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	env := newTestEnv(t, h)

	resp, body := env.do(t, "POST", "/api/skills", greetSkill("greet"))
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	require.Equal(t, "greet", body["skill_name"])
	require.True(t, env.registry.Has("greet"))

	records, err := env.store.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 9)

	resp, body = env.do(t, "POST", "/api/skills", greetSkill("greet"))
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "Skill already exists", body["error"])
}

func TestCreateSkillRejectsRunawayCode(t *testing.T) {
	h, err := sandbox.NewHarness(sandbox.HarnessOptions{Timeout: time.Second})
	require.NoError(t, err)
	env := newTestEnv(t, h)

	looping := greetSkill("spin")
	looping["function_code"] = "func execute(who) {\n    log(who)\n    for {\n    }\n}\n"
	resp, body := env.do(t, "POST", "/api/skills", looping)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "Sandbox test failed", body["error"])
	require.Equal(t, "timeout", body["reason"])
	require.Equal(t, "Code execution timed out after 1 seconds", body["output"])
	require.False(t, env.registry.Has("spin"))
}

func TestCreateSkillValidation(t *testing.T) {
	tester := &fakeTester{result: &sandbox.Result{Passed: true}}
	env := newTestEnv(t, tester)

	tests := []struct {
		name   string
		mutate func(map[string]any)
		status int
		substr string
	}{
		{
			name:   "missing function code",
			mutate: func(s map[string]any) { delete(s, "function_code") },
			status: http.StatusBadRequest,
			substr: "Invalid skill data",
		},
		{
			name:   "missing entry point",
			mutate: func(s map[string]any) { s["function_code"] = "func run(who) {\n    log(who)\n}\n" },
			status: http.StatusBadRequest,
			substr: "Validation failed",
		},
		{
			name:   "bad name",
			mutate: func(s map[string]any) { s["name"] = "not a name" },
			status: http.StatusBadRequest,
			substr: "Validation failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := greetSkill("candidate")
			tt.mutate(s)
			resp, body := env.do(t, "POST", "/api/skills", s)
			require.Equal(t, tt.status, resp.StatusCode, body)
			require.Contains(t, body["error"], tt.substr)
		})
	}
	require.Zero(t, tester.calls)
}

func TestCreateSkillSandboxFailure(t *testing.T) {
	tester := &fakeTester{result: &sandbox.Result{
		Reason: sandbox.ReasonFailure,
		Output: "Code execution failed: index out of range",
	}}
	env := newTestEnv(t, tester)

	resp, body := env.do(t, "POST", "/api/skills", greetSkill("greet"))
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "failure", body["reason"])
	require.Equal(t, 1, tester.calls)
	require.False(t, env.registry.Has("greet"))
}

func TestUpdateSkill(t *testing.T) {
	tester := &fakeTester{result: &sandbox.Result{Passed: true}}
	env := newTestEnv(t, tester)

	resp, _ := env.do(t, "POST", "/api/skills", greetSkill("greet"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	updated := greetSkill("ignored")
	updated["function_code"] = "func execute(who) {\n    log(\"[greet] Hi, \" + who)\n}\n"
	resp, body := env.do(t, "PUT", "/api/skills/greet", updated)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Contains(t, body["diff"], `+    log("[greet] Hi, " + who)`)

	s, ok := env.registry.Get("greet")
	require.True(t, ok)
	require.Contains(t, s.FunctionCode, "Hi, ")
	require.False(t, env.registry.Has("ignored"))

	resp, body = env.do(t, "PUT", "/api/skills/fear", greetSkill("fear"))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Cannot modify built-in skill", body["error"])

	resp, _ = env.do(t, "PUT", "/api/skills/missing", greetSkill("missing"))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDeleteSkill(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, "DELETE", "/api/skills/fear", nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Cannot delete built-in skill", body["error"])

	resp, _ = env.do(t, "DELETE", "/api/skills/customScript", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.False(t, env.registry.Has("customScript"))

	records, err := env.store.List(context.Background())
	require.NoError(t, err)
	for _, rec := range records {
		require.NotEqual(t, "customScript", rec.Name)
	}

	resp, _ = env.do(t, "DELETE", "/api/skills/customScript", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestValidateEndpoint(t *testing.T) {
	env := newTestEnv(t, nil)

	_, body := env.do(t, "POST", "/api/skills/validate", greetSkill("greet"))
	require.Equal(t, true, body["is_valid"])
	require.Empty(t, body["errors"])

	bad := greetSkill("greet")
	bad["function_code"] = "func execute( {"
	_, body = env.do(t, "POST", "/api/skills/validate", bad)
	require.Equal(t, false, body["is_valid"])
	require.NotEmpty(t, body["errors"])
	require.False(t, env.registry.Has("greet"))
}

func TestTestEndpoint(t *testing.T) {
	h, err := sandbox.NewHarness(sandbox.HarnessOptions{Timeout: 5 * time.Second})
	require.NoError(t, err)
	env := newTestEnv(t, h)

	resp, body := env.do(t, "POST", "/api/skills/test", map[string]any{
		"skill_data": greetSkill("greet"),
		"test_input": map[string]any{"who": "Grace"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Equal(t, true, body["execution_successful"])
	require.Equal(t, []any{"[greet] Hello, Grace"}, body["output"])
	require.False(t, env.registry.Has("greet"))

	resp, body = env.do(t, "POST", "/api/skills/test", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "No skill data provided", body["error"])
}

func TestTestEndpointDisabled(t *testing.T) {
	env := newTestEnv(t, nil)
	resp, _ := env.do(t, "POST", "/api/skills/test", map[string]any{"skill_data": greetSkill("greet")})
	require.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestRoles(t *testing.T) {
	env := newTestEnv(t, nil)
	_, body := env.do(t, "GET", "/api/skills/roles", nil)
	require.Len(t, body["roles"], 12)
	require.Contains(t, body["roles"], "emotional_response")
}

func TestExportImport(t *testing.T) {
	src := newTestEnv(t, &fakeTester{result: &sandbox.Result{Passed: true}})
	resp, _ := src.do(t, "POST", "/api/skills", greetSkill("greet"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, exported := src.do(t, "GET", "/api/skills/export", nil)
	require.EqualValues(t, 9, exported["skills_count"])
	require.Equal(t, "2025-06-02T09:30:00Z", exported["export_date"])

	dst := newTestEnv(t, nil)
	skills := exported["skills"].(map[string]any)
	skills["broken"] = map[string]any{"name": "broken", "description": "Use when nothing works", "function_code": "func nope() {}"}
	resp, body := dst.do(t, "POST", "/api/skills/import", map[string]any{"skills": skills})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["imported_count"])
	require.True(t, dst.registry.Has("greet"))
	require.False(t, dst.registry.Has("broken"))

	errs := body["errors"].([]any)
	require.Len(t, errs, 9)
	require.Contains(t, errs, "Skill 'fear' already exists, skipped")

	resp, body = dst.do(t, "POST", "/api/skills/import", map[string]any{"other": 1})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid import data", body["error"])
}

func TestRunTurn(t *testing.T) {
	env := newTestEnv(t, nil)

	resp, body := env.do(t, "POST", "/api/turn", map[string]any{"utterance": "what time is it?"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.NotEmpty(t, body["turn_id"])
	selections := body["selections"].([]any)
	require.Len(t, selections, 1)
	require.Equal(t, "getTime", selections[0].(map[string]any)["skill"])
	require.Equal(t, "yes", body["decisions"].(map[string]any)["getTime"])
	require.Equal(t, "no", body["decisions"].(map[string]any)["fear"])
	require.Contains(t, body["log"], "[Time Check] Retrieving current time")

	resp, _ = env.do(t, "POST", "/api/turn", map[string]any{})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, nil)
	req, err := http.NewRequest("OPTIONS", env.server.URL+"/api/skills", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
}
