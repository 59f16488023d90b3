package testkit

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// AssertStatusCode checks the response code, printing the body on mismatch.
func AssertStatusCode(t *testing.T, label string, want, got int, body []byte) bool {
	t.Helper()
	return assert.Equal(t, want, got, "%s: HTTP status code mismatch\nbody: %s", label, body)
}

// AssertFields checks every path in expect against the decoded response.
// Values compare after JSON decoding, so numbers are float64.
func AssertFields(t *testing.T, label string, expect map[string]interface{}, doc interface{}) {
	t.Helper()
	for path, want := range expect {
		got, ok := Lookup(doc, path)
		if !assert.True(t, ok, "%s: nothing at %q", label, path) {
			continue
		}
		assert.Equal(t, want, got, "%s: %s", label, path)
	}
}

// AssertLengths checks that each path holds an array of the given length.
func AssertLengths(t *testing.T, label string, expect map[string]int, doc interface{}) {
	t.Helper()
	for path, want := range expect {
		got, ok := Lookup(doc, path)
		if !assert.True(t, ok, "%s: nothing at %q", label, path) {
			continue
		}
		arr, isArr := got.([]interface{})
		if !assert.True(t, isArr, "%s: %s is %T, not an array", label, path, got) {
			continue
		}
		assert.Len(t, arr, want, "%s: %s", label, path)
	}
}

// Lookup walks a decoded JSON document along a dotted path. Numeric
// segments index arrays: "data.items.0.id".
func Lookup(doc interface{}, path string) (interface{}, bool) {
	cur := doc
	if path == "" {
		return cur, true
	}
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]interface{}:
			v, ok := node[seg]
			if !ok {
				return nil, false
			}
			cur = v
		case []interface{}:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, false
			}
			cur = node[i]
		default:
			return nil, false
		}
	}
	return cur, true
}
