package testkit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"regexp"
	"testing"
)

// ─── Public API ───────────────────────────────────────────────────────────────

// Runner fires scenarios against Handler.
type Runner struct {
	Handler http.Handler

	// Settle, when set, runs after every non-GET step so state that is
	// refreshed in the background can catch up before the next step.
	Settle func(t *testing.T)
}

// Run executes a single scenario file against handler.
func Run(t *testing.T, handler http.Handler, scenarioPath string) {
	t.Helper()
	(&Runner{Handler: handler}).Run(t, scenarioPath)
}

// RunDir runs every *.json scenario in dir against handler.
func RunDir(t *testing.T, handler http.Handler, dir string) {
	t.Helper()
	(&Runner{Handler: handler}).RunDir(t, dir)
}

// Run executes a single scenario file as a subtest.
func (r *Runner) Run(t *testing.T, scenarioPath string) {
	t.Helper()

	s, err := LoadScenario(scenarioPath)
	if err != nil {
		t.Fatalf("testkit: load scenario %q: %v", scenarioPath, err)
	}
	t.Run(s.Name, func(t *testing.T) {
		r.RunScenario(t, s)
	})
}

// RunDir discovers every *.json file in dir and runs each as a subtest.
// Scenario files that fail to parse are reported as failures (not fatal).
func (r *Runner) RunDir(t *testing.T, dir string) {
	t.Helper()

	scenarios, errs := LoadAllFromDir(dir)
	for _, err := range errs {
		t.Error(err)
	}
	for _, s := range scenarios {
		s := s
		t.Run(s.Name, func(t *testing.T) {
			r.RunScenario(t, s)
		})
	}
}

// ─── Internal execution ───────────────────────────────────────────────────────

var placeholderRE = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// expand replaces {{name}} with captured variables. Unknown names fail the
// test so a broken capture is reported where it is used.
func expand(t *testing.T, vars map[string]string, s string) string {
	t.Helper()
	return placeholderRE.ReplaceAllStringFunc(s, func(m string) string {
		name := placeholderRE.FindStringSubmatch(m)[1]
		v, ok := vars[name]
		if !ok {
			t.Fatalf("testkit: variable %q was never captured", name)
		}
		return v
	})
}

// RunScenario executes the steps of an already loaded scenario in order,
// stopping at the first step whose status code does not match.
func (r *Runner) RunScenario(t *testing.T, s *Scenario) {
	t.Helper()
	vars := make(map[string]string)

	for i, st := range s.Steps {
		label := fmt.Sprintf("[%s] step %d (%s)", s.Name, i+1, st.Name)

		// ── 1. Build the request ──────────────────────────────────────────

		var raw []byte
		switch {
		case len(st.Body) > 0:
			raw = st.Body
		case st.RequestFileName != "":
			data, err := os.ReadFile(s.RequestBodyPath(st))
			if err != nil {
				t.Fatalf("%s: read request file: %v", label, err)
			}
			raw = data
		}

		var body io.Reader
		if raw != nil {
			body = bytes.NewBufferString(expand(t, vars, string(raw)))
		}

		req := httptest.NewRequest(st.Method, expand(t, vars, st.URL), body)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if st.As != "" {
			req.Header.Set("Authorization", "Bearer "+expand(t, vars, "{{"+st.As+"}}"))
		}
		for k, v := range st.Headers {
			req.Header.Set(k, expand(t, vars, v))
		}

		// ── 2. Fire it ────────────────────────────────────────────────────

		rec := httptest.NewRecorder()
		r.Handler.ServeHTTP(rec, req)

		// ── 3. Assert ─────────────────────────────────────────────────────

		if !AssertStatusCode(t, label, st.ExpectedCode, rec.Code, rec.Body.Bytes()) {
			t.FailNow()
		}

		var doc interface{}
		if len(st.Expect)+len(st.ExpectLen)+len(st.Capture) > 0 {
			if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
				t.Fatalf("%s: response is not JSON: %v\nbody: %s", label, err, rec.Body.String())
			}
		}
		AssertFields(t, label, expandExpected(t, vars, st.Expect), doc)
		AssertLengths(t, label, st.ExpectLen, doc)

		// ── 4. Capture ────────────────────────────────────────────────────

		for name, path := range st.Capture {
			v, ok := Lookup(doc, path)
			if !ok {
				t.Fatalf("%s: capture %q: nothing at %q\nbody: %s", label, name, path, rec.Body.String())
			}
			vars[name] = scalar(v)
		}

		if r.Settle != nil && st.Method != http.MethodGet {
			r.Settle(t)
		}
	}
}

// expandExpected lets expected strings refer to captured values.
func expandExpected(t *testing.T, vars map[string]string, expect map[string]interface{}) map[string]interface{} {
	t.Helper()
	out := make(map[string]interface{}, len(expect))
	for path, v := range expect {
		if s, ok := v.(string); ok {
			v = expand(t, vars, s)
		}
		out[path] = v
	}
	return out
}

func scalar(v interface{}) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return fmt.Sprintf("%v", x)
	default:
		b, _ := json.Marshal(x)
		return string(b)
	}
}
