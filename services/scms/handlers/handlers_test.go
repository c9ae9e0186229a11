// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/scms/services/scms/action"
	"github.com/AleutianAI/scms/services/scms/datatypes"
	"github.com/AleutianAI/scms/services/scms/process"
	"github.com/AleutianAI/scms/services/scms/store"
	"github.com/AleutianAI/scms/services/scms/tasks"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

var fixedTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedTime }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

// loadStore writes doc to dir/<category>.yaml and loads it. Validation
// errors are tolerated so tests can serve invalid records.
func loadStore[T any](t *testing.T, category datatypes.Category, dir, doc string) *store.Store[T] {
	t.Helper()
	path := writeFile(t, dir, string(category)+".yaml", doc)
	s := store.New[T](category, path)
	err := s.Load()
	if err != nil {
		require.ErrorIs(t, err, store.ErrInvalidRecord)
	}
	return s
}

func mount[T any](r gin.IRouter, h *Category[T]) *gin.RouterGroup {
	group := r.Group("/" + string(h.Name()))
	group.GET("", h.List)
	group.GET("/:id", h.Get)
	if h.Actionable() {
		group.POST("", h.RunAll)
		group.POST("/:id", h.Run)
		group.GET("/:id/history", h.History)
	}
	return group
}

type fixture struct {
	dir       string
	router    *gin.Engine
	processes *process.Registry
}

// newFixture serves all four categories from a temp dir.
//
//	chains:         zeta (parent), alpha (child)
//	commands:       hi, fail, bg (daemon)
//	configurations: conf -> conf.json {"a": 1}, gone -> missing file
//	parameters:     p -> p.yaml [a b], miss -> p.yaml [a z]
func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	confPath := writeFile(t, dir, "conf.json", `{"a": 1}`)
	paramPath := writeFile(t, dir, "p.yaml", "a:\n  b: 5\n  c: keep\n")

	chains := loadStore[datatypes.Chain](t, datatypes.CategoryChains, dir,
		"zeta: {uri: http://z.example, relationship: parent}\nalpha: {uri: http://a.example, relationship: child}\n")
	commands := loadStore[datatypes.Command](t, datatypes.CategoryCommands, dir,
		"hi: {script: echo hi}\nfail: {script: 'echo bad >&2; exit 3'}\nbg: {script: sleep 0.1, daemon: true}\n")
	configurations := loadStore[datatypes.Configuration](t, datatypes.CategoryConfigurations, dir,
		fmt.Sprintf("conf: {path: %q, format: json}\ngone: {path: %q, format: yaml}\n",
			confPath, filepath.Join(dir, "gone.yaml")))
	parameters := loadStore[datatypes.Parameter](t, datatypes.CategoryParameters, dir,
		fmt.Sprintf("p: {source: %q, format: yaml, xpath: [a, b]}\nmiss: {source: %q, format: yaml, xpath: [a, z]}\n",
			paramPath, paramPath))

	processes := process.NewRegistry(nil)
	cfg := action.RunnerConfig{Now: fixedClock}

	router := gin.New()
	mount(router, NewCategory(CategoryConfig[datatypes.Chain]{
		Category: datatypes.CategoryChains,
		Records:  chains,
	}))
	mount(router, NewCategory(CategoryConfig[datatypes.Command]{
		Category: datatypes.CategoryCommands,
		Records:  commands,
		Runner:   action.NewRunner[datatypes.Command](datatypes.CategoryCommands, commands, cfg),
		Task:     &tasks.CommandTask{Processes: processes},
		Payload:  PayloadNone,
	}))
	mount(router, NewCategory(CategoryConfig[datatypes.Configuration]{
		Category: datatypes.CategoryConfigurations,
		Records:  configurations,
		Output: func(c datatypes.Configuration) (any, error) {
			return tasks.ReadConfiguration(c)
		},
		Runner:  action.NewRunner[datatypes.Configuration](datatypes.CategoryConfigurations, configurations, cfg),
		Task:    tasks.ConfigurationTask{},
		Payload: PayloadRequired,
	}))
	params := NewCategory(CategoryConfig[datatypes.Parameter]{
		Category: datatypes.CategoryParameters,
		Records:  parameters,
		Output: func(p datatypes.Parameter) (any, error) {
			return tasks.ReadParameter(p)
		},
		Runner:  action.NewRunner[datatypes.Parameter](datatypes.CategoryParameters, parameters, cfg),
		Task:    tasks.ParameterTask{},
		Payload: PayloadRequired,
	})
	mount(router, params).POST("/:id/:value", params.RunWithPathValue)
	router.GET("/processes", ListProcesses(processes))
	router.GET("/processes/:id", GetProcess(processes))

	return &fixture{dir: dir, router: router, processes: processes}
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) datatypes.ErrorResponse {
	t.Helper()
	var resp datatypes.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) datatypes.ActionResult {
	t.Helper()
	var result datatypes.ActionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result), w.Body.String())
	return result
}

// =============================================================================
// Read Routes
// =============================================================================

func TestList_FollowsFileOrder(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/chains", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		`{"zeta":{"uri":"http://z.example","relationship":"parent"},"alpha":{"uri":"http://a.example","relationship":"child"}}`,
		w.Body.String())
}

func TestList_DuringReloadNeverFails(t *testing.T) {
	dir := t.TempDir()
	docs := []string{
		"zeta: {uri: http://z.example, relationship: parent}\nalpha: {uri: http://a.example, relationship: child}\n",
		"omega: {uri: http://o.example, relationship: sibling}\n",
	}
	chains := loadStore[datatypes.Chain](t, datatypes.CategoryChains, dir, docs[0])
	router := gin.New()
	mount(router, NewCategory(CategoryConfig[datatypes.Chain]{Category: datatypes.CategoryChains, Records: chains}))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				w := httptest.NewRecorder()
				router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chains", nil))
				assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
			}
		}()
	}

	path := chains.Path()
	for i := 0; i < 50; i++ {
		tmp := writeFile(t, dir, "next.yaml", docs[(i+1)%2])
		require.NoError(t, os.Rename(tmp, path))
		require.NoError(t, chains.Load())
	}
	close(stop)
	wg.Wait()
}

func TestGet_UnknownIDIsNotFound(t *testing.T) {
	f := newFixture(t)

	for _, category := range datatypes.Categories {
		t.Run(string(category), func(t *testing.T) {
			w := f.do(http.MethodGet, "/"+string(category)+"/nope", "")
			require.Equal(t, http.StatusNotFound, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, datatypes.CodeNotFound, resp.Code)
			assert.Equal(t, fmt.Sprintf("%s nope not found", strings.ToUpper(category.Label()[:1])+category.Label()[1:]), resp.Error)
		})
	}
}

func TestGet_InvalidRecord(t *testing.T) {
	dir := t.TempDir()
	chains := loadStore[datatypes.Chain](t, datatypes.CategoryChains, dir,
		"good: {uri: http://a, relationship: sibling}\nbad: {uri: http://b, relationship: cousin}\n")
	router := gin.New()
	mount(router, NewCategory(CategoryConfig[datatypes.Chain]{Category: datatypes.CategoryChains, Records: chains}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chains/bad", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, datatypes.CodeInvalidRecord, resp.Code)
	require.Len(t, resp.Details, 1)
	assert.Equal(t, "relationship", resp.Details[0].Field)
	assert.Equal(t, "bad", resp.Details[0].Record)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chains/good", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChains_HaveNoActions(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/chains/zeta", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/chains/zeta/history", "").Code)
}

// =============================================================================
// Configurations
// =============================================================================

func TestConfigurations_ReadAndWrite(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/configurations/conf", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, map[string]any{"a": 1.0}, out["content"])
	assert.Equal(t, "json", out["format"])

	w = f.do(http.MethodPost, "/configurations/conf", `{"a": 2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	result := decodeResult(t, w)
	assert.False(t, result.Error)
	assert.Equal(t, 0, result.ReturnCode)
	assert.Equal(t, []string{}, result.Stdout)
	assert.True(t, result.Start.Equal(fixedTime))

	assert.JSONEq(t, `{"a": 2}`, readFile(t, filepath.Join(f.dir, "conf.json")))
}

func TestConfigurations_WriteYAMLTarget(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "c.yaml", "old: true\n")
	configurations := loadStore[datatypes.Configuration](t, datatypes.CategoryConfigurations, dir,
		fmt.Sprintf("c: {path: %q, format: yaml}\n", target))
	router := gin.New()
	mount(router, NewCategory(CategoryConfig[datatypes.Configuration]{
		Category: datatypes.CategoryConfigurations,
		Records:  configurations,
		Output: func(c datatypes.Configuration) (any, error) {
			return tasks.ReadConfiguration(c)
		},
		Runner:  action.NewRunner[datatypes.Configuration](datatypes.CategoryConfigurations, configurations, action.RunnerConfig{}),
		Task:    tasks.ConfigurationTask{},
		Payload: PayloadRequired,
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/configurations/c",
		strings.NewReader(`{"a": 2, "f": 1.5, "s": "2"}`)))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a: 2\nf: 1.5\ns: \"2\"\n", readFile(t, target))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/configurations/c", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var out datatypes.ConfigurationOutput
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, map[string]any{"a": 2.0, "f": 1.5, "s": "2"}, out.Content)
}

func TestConfigurations_MissingTargetFile(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/configurations/gone", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	resp := decodeError(t, w)
	assert.Equal(t, datatypes.CodeNotFound, resp.Code)
	assert.Equal(t, fmt.Sprintf("File %s not found", filepath.Join(f.dir, "gone.yaml")), resp.Error)

	w = f.do(http.MethodPost, "/configurations/gone", `{"x": 1}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	_, err := os.Stat(filepath.Join(f.dir, "gone.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist), "write must not create the file")

	// The list delegates to the single-record getter, so it fails too.
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/configurations", "").Code)
}

func TestConfigurations_InvalidBodies(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		path string
		body string
	}{
		{"empty body", "/configurations/conf", ""},
		{"malformed json", "/configurations/conf", `{"a":`},
		{"bulk without body", "/configurations", ""},
		{"bulk with array", "/configurations", `[1, 2]`},
		{"trailing garbage", "/configurations/conf", `{"a": 2} junk`},
		{"two documents", "/configurations/conf", `{"a": 2} {"a": 3}`},
		{"bulk trailing garbage", "/configurations", `{"conf": {"a": 2}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, w.Code)
			assert.Equal(t, datatypes.CodeInvalidRequest, decodeError(t, w).Code)
		})
	}
	assert.JSONEq(t, `{"a": 1}`, readFile(t, filepath.Join(f.dir, "conf.json")))
}

// =============================================================================
// Parameters
// =============================================================================

func TestParameters_Read(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/parameters/p", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out datatypes.ParameterOutput
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 5.0, out.Value)
	assert.False(t, out.NotFound)

	w = f.do(http.MethodGet, "/parameters/miss", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"value":null`)
	assert.Contains(t, w.Body.String(), `"not_found":true`)
}

func TestParameters_NullOrEmptyMappingReadsAsNotFound(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		notFound bool
	}{
		{"null", `null`, true},
		{"empty mapping", `{}`, true},
		{"empty list", `[]`, false},
		{"zero", `0`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(http.MethodPost, "/parameters/p", tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			w = f.do(http.MethodGet, "/parameters/p", "")
			require.Equal(t, http.StatusOK, w.Code)
			var out datatypes.ParameterOutput
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Equal(t, tt.notFound, out.NotFound)
			if tt.notFound {
				assert.Nil(t, out.Value)
			}
		})
	}
}

func TestParameters_WriteKeepsSiblings(t *testing.T) {
	f := newFixture(t)
	source := filepath.Join(f.dir, "p.yaml")

	w := f.do(http.MethodPost, "/parameters/p", `"fast"`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a:\n  b: fast\n  c: keep\n", readFile(t, source))

	w = f.do(http.MethodPost, "/parameters/p/7", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "a:\n  b: 7\n  c: keep\n", readFile(t, source))

	w = f.do(http.MethodGet, "/parameters/p", "")
	assert.Contains(t, w.Body.String(), `"value":7`)
}

func TestParameters_WriteNumberBodyToYAML(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"single", "/parameters/p", `7`, "a:\n  b: 7\n  c: keep\n"},
		{"float", "/parameters/p", `2.5`, "a:\n  b: 2.5\n  c: keep\n"},
		{"bulk", "/parameters", `{"p": 9}`, "a:\n  b: 9\n  c: keep\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(http.MethodPost, tt.path, tt.body)
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Equal(t, tt.want, readFile(t, filepath.Join(f.dir, "p.yaml")))

			w = f.do(http.MethodGet, "/parameters/p", "")
			var out datatypes.ParameterOutput
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.IsType(t, 0.0, out.Value, "value must read back as a number")
		})
	}
}

func TestParameters_WriteMissingIntermediateKey(t *testing.T) {
	dir := t.TempDir()
	source := writeFile(t, dir, "p.yaml", "a:\n  b: 5\n")
	parameters := loadStore[datatypes.Parameter](t, datatypes.CategoryParameters, dir,
		fmt.Sprintf("deep: {source: %q, format: yaml, xpath: [x, y]}\n", source))
	h := NewCategory(CategoryConfig[datatypes.Parameter]{
		Category: datatypes.CategoryParameters,
		Records:  parameters,
		Runner:   action.NewRunner[datatypes.Parameter](datatypes.CategoryParameters, parameters, action.RunnerConfig{}),
		Task:     tasks.ParameterTask{},
		Payload:  PayloadRequired,
	})
	router := gin.New()
	mount(router, h)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/parameters/deep", strings.NewReader("1")))
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, datatypes.CodeNotFound, decodeError(t, w).Code)
	assert.Empty(t, h.runner.History().Get("deep"), "failed tasks are not recorded")
}

func TestParameters_BulkValidatesBeforeRunning(t *testing.T) {
	f := newFixture(t)
	source := filepath.Join(f.dir, "p.yaml")

	w := f.do(http.MethodPost, "/parameters", `{"p": 9, "nope": 1}`)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Parameter nope not found", decodeError(t, w).Error)
	assert.Equal(t, "a:\n  b: 5\n  c: keep\n", readFile(t, source))

	w = f.do(http.MethodPost, "/parameters", `{"p": 9}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var results map[string]datatypes.ActionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Contains(t, results, "p")
	assert.False(t, results["p"].Error)
	assert.Equal(t, "a:\n  b: 9\n  c: keep\n", readFile(t, source))
}

func TestParameters_PathValueIsYAMLScalar(t *testing.T) {
	tests := []struct {
		segment string
		want    string
	}{
		{"42", "b: 42"},
		{"true", "b: true"},
		{"hello", "b: hello"},
		{"null", "b: null"},
	}
	for _, tt := range tests {
		t.Run(tt.segment, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(http.MethodPost, "/parameters/p/"+tt.segment, "")
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			assert.Contains(t, readFile(t, filepath.Join(f.dir, "p.yaml")), tt.want)
		})
	}
}

func TestHistory(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/parameters/p/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	f.do(http.MethodPost, "/parameters/p/1", "")
	f.do(http.MethodPost, "/parameters/p/2", "")

	w = f.do(http.MethodGet, "/parameters/p/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var history []datatypes.ActionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &history))
	assert.Len(t, history, 2)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/parameters/nope/history", "").Code)
}

// =============================================================================
// Processes
// =============================================================================

func TestProcesses_Empty(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/processes", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())

	w = f.do(http.MethodGet, "/processes/unknown", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Process unknown not found", decodeError(t, w).Error)
}

// =============================================================================
// System
// =============================================================================

type staticSummary struct {
	name datatypes.Category
	info datatypes.CategoryInfo
}

func (s staticSummary) Name() datatypes.Category { return s.name }
func (s staticSummary) Summary() datatypes.CategoryInfo { return s.info }

func TestHealthCheck(t *testing.T) {
	router := gin.New()
	router.GET("/health", HealthCheck("1.0.0"))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy","version":"1.0.0"}`, w.Body.String())
}

func TestInfo(t *testing.T) {
	router := gin.New()
	router.GET("/", Info("1.0.0",
		staticSummary{datatypes.CategoryChains, datatypes.CategoryInfo{Path: "config/chains.yaml", Records: 2}},
		staticSummary{datatypes.CategoryCommands, datatypes.CategoryInfo{Path: "config/commands.yaml", Records: 0}},
	))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.InfoResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, serviceTitle, resp.Title)
	assert.Equal(t, "1.0.0", resp.Version)
	assert.Equal(t, 2, resp.Categories[datatypes.CategoryChains].Records)
	assert.Len(t, resp.Categories, 2)
}

// =============================================================================
// Error Mapping
// =============================================================================

func TestRespondError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"record not found", store.RecordNotFound(datatypes.CategoryCommands, "x"), http.StatusNotFound, datatypes.CodeNotFound},
		{"wrapped not found", fmt.Errorf("ctx: %w", store.FileNotFound("/f")), http.StatusNotFound, datatypes.CodeNotFound},
		{"invalid record", &store.ValidationError{Label: "chain", Fields: []datatypes.FieldError{{Record: "x", Field: "uri", Message: "uri is required"}}}, http.StatusNotFound, datatypes.CodeInvalidRecord},
		{"invalid request", invalidRequest("bad"), http.StatusUnprocessableEntity, datatypes.CodeInvalidRequest},
		{"invalid document", &store.DocumentError{Path: "/f", Err: errors.New("not a mapping")}, http.StatusInternalServerError, datatypes.CodeInvalidDocument},
		{"internal", errors.New("boom"), http.StatusInternalServerError, datatypes.CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Equal(t, tt.err.Error(), resp.Error)
		})
	}
}

func TestObject_MarshalKeepsOrder(t *testing.T) {
	o := NewObject(3)
	o.Set("b", 1)
	o.Set("a", []string{"x"})
	o.Set("b", 2)

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.Equal(t, `{"b":2,"a":["x"]}`, string(data))
	assert.Equal(t, []string{"b", "a"}, o.Keys())
	assert.Equal(t, 2, o.Len())

	empty, err := json.Marshal(NewObject(0))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}
