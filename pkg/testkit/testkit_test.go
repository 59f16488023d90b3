package testkit_test

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Artssj1234/mesa-y-pedidos-app/pkg/testkit"
)

func TestLookup(t *testing.T) {
	var doc interface{}
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"items":[{"id":"a"},{"id":"b"}],"n":3}}`), &doc))

	v, ok := testkit.Lookup(doc, "data.items.1.id")
	require.True(t, ok)
	assert.Equal(t, "b", v)

	v, ok = testkit.Lookup(doc, "data.n")
	require.True(t, ok)
	assert.Equal(t, float64(3), v)

	_, ok = testkit.Lookup(doc, "data.items.2.id")
	assert.False(t, ok)
	_, ok = testkit.Lookup(doc, "data.missing")
	assert.False(t, ok)
	_, ok = testkit.Lookup(doc, "data.n.x")
	assert.False(t, ok)
}

func TestLoadScenarioDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"name": "ping",
		"steps": [{"url": "/ping", "expectedCode": 200}]
	}`), 0o644))

	s, err := testkit.LoadScenario(path)
	require.NoError(t, err)
	require.Len(t, s.Steps, 1)
	assert.Equal(t, "GET", s.Steps[0].Method)
	assert.Equal(t, "GET /ping", s.Steps[0].Name)
}

func TestLoadScenarioRejectsIncompleteSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name": "x", "steps": [{"url": "/ping"}]}`), 0o644))

	_, err := testkit.LoadScenario(path)
	assert.Error(t, err)
}

func TestRunnerCapturesAndExpands(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"token":"abc"}}`)) //nolint:errcheck
	})
	mux.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"data":{"who":"` + r.URL.Query().Get("echo") + `","list":[1,2]}}`)) //nolint:errcheck
	})

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "flow.json"), []byte(`{
		"name": "flow",
		"steps": [
			{"method": "post", "url": "/login", "body": {}, "expectedCode": 200, "capture": {"tok": "data.token"}},
			{"url": "/me?echo={{tok}}", "as": "tok", "expectedCode": 200,
			 "expect": {"data.who": "abc"}, "expectLen": {"data.list": 2}}
		]
	}`), 0o644))

	settled := 0
	r := &testkit.Runner{Handler: mux, Settle: func(*testing.T) { settled++ }}
	r.RunDir(t, dir)
	assert.Equal(t, 1, settled, "settle runs after the POST only")
}
