// Package testkit provides a JSON-scenario-driven API testing framework and
// throwaway databases for tests.
//
// A scenario is a JSON file holding an ordered list of steps that share
// variables. A step can capture a value from its response ("data.token")
// and later steps use it as {{name}} in their url, body or headers, or
// as their bearer token through "as":
//
//	{
//	  "name": "waiter signs in",
//	  "steps": [
//	    {"name": "login", "method": "POST", "url": "/api/auth/pin",
//	     "body": {"pin": "1234"}, "expectedCode": 200,
//	     "expect": {"data.redirect": "/camarero"},
//	     "capture": {"waiter": "data.token"}},
//	    {"name": "me", "url": "/api/auth/me", "as": "waiter", "expectedCode": 200}
//	  ]
//	}
//
// Example _test.go:
//
//	func TestAPI(t *testing.T) {
//	    testkit.RunDir(t, handler, "testdata")
//	}
package testkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ─── Schema ───────────────────────────────────────────────────────────────────

// Scenario is one API flow loaded from a JSON file.
type Scenario struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Steps       []Step `json:"steps"`

	dir string
}

// Step is a single request and what its response must look like.
type Step struct {
	Name string `json:"name"`

	// Request
	Method          string            `json:"method"` // defaults to GET
	URL             string            `json:"url"`
	As              string            `json:"as"`              // variable holding the bearer token
	Body            json.RawMessage   `json:"body"`            // inline JSON body
	RequestFileName string            `json:"requestFileName"` // or a body file next to the scenario
	Headers         map[string]string `json:"headers"`

	// Response assertions
	ExpectedCode int                    `json:"expectedCode"`
	Expect       map[string]interface{} `json:"expect"`    // path → exact value
	ExpectLen    map[string]int         `json:"expectLen"` // path → array length

	// Capture stores the value at path under the variable name.
	Capture map[string]string `json:"capture"`
}

// ─── Loading ──────────────────────────────────────────────────────────────────

// LoadScenario reads and validates a scenario from a JSON file.
func LoadScenario(path string) (*Scenario, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("testkit: resolve path %q: %w", path, err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("testkit: read %q: %w", abs, err)
	}

	var s Scenario
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("testkit: parse %q: %w", abs, err)
	}

	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("testkit: invalid scenario %q: %w", abs, err)
	}

	s.dir = filepath.Dir(abs)
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("at least one step is required")
	}
	for i := range s.Steps {
		st := &s.Steps[i]
		if st.URL == "" {
			return fmt.Errorf("steps[%d].url is required", i)
		}
		if st.ExpectedCode == 0 {
			return fmt.Errorf("steps[%d].expectedCode is required", i)
		}
		if st.Method == "" {
			st.Method = "GET"
		}
		st.Method = strings.ToUpper(st.Method)
		if st.Name == "" {
			st.Name = fmt.Sprintf("%s %s", st.Method, st.URL)
		}
		if len(st.Body) > 0 && st.RequestFileName != "" {
			return fmt.Errorf("steps[%d]: body and requestFileName are exclusive", i)
		}
	}
	return nil
}

// RequestBodyPath returns the absolute path of a step's body file, resolved
// relative to the scenario file. Returns "" when the step has none.
func (s *Scenario) RequestBodyPath(st Step) string {
	if st.RequestFileName == "" {
		return ""
	}
	if filepath.IsAbs(st.RequestFileName) {
		return st.RequestFileName
	}
	return filepath.Join(s.dir, st.RequestFileName)
}

// LoadAllFromDir loads every *.json file in dir as a Scenario.
// Files that fail to parse are collected as errors, not panicked.
func LoadAllFromDir(dir string) ([]*Scenario, []error) {
	entries, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(entries) == 0 {
		return nil, []error{fmt.Errorf("testkit: no scenario files found in %q", dir)}
	}

	var (
		scenarios []*Scenario
		errs      []error
	)
	for _, path := range entries {
		s, err := LoadScenario(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, errs
}
