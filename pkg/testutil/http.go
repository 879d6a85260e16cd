// Package testutil holds helpers shared by handler, service and integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// NewJSONRequest marshals body (when non-nil) into a JSON request.
func NewJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	if body == nil {
		return NewRequest(t, method, path)
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err, "marshal request body")
	return NewRequestWithBody(t, method, path, string(raw))
}

// NewRequest builds a request without a body.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// NewRequestWithBody sends body verbatim, which lets tests post malformed JSON.
func NewRequestWithBody(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// DoRequest serves req with handler and returns the recorded response.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the JSON body into a T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var out T
	decodeBody(t, rr, &out)
	return &out
}

func AssertStatus(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	assert.Equal(t, expected, rr.Code, "unexpected status code, body: %s", rr.Body.String())
}

func AssertStatusOK(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	AssertStatus(t, rr, http.StatusOK)
}

// AssertStatusAndError checks the status and the "error" code of an
// httputil error body.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus int, expectedCode string) {
	t.Helper()
	AssertStatus(t, rr, expectedStatus)
	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Equal(t, expectedCode, body["error"], "unexpected error code")
}

// AssertJSONContains checks one top-level key of a JSON object body.
func AssertJSONContains(t *testing.T, rr *httptest.ResponseRecorder, key string, expectedValue any) {
	t.Helper()
	var body map[string]any
	decodeBody(t, rr, &body)
	assert.Equal(t, expectedValue, body[key], "unexpected value for key %q", key)
}

// decodeBody reads without draining so several assertions can inspect the
// same response.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	raw, err := io.ReadAll(bytes.NewReader(rr.Body.Bytes()))
	require.NoError(t, err, "read response body")
	require.NoError(t, json.Unmarshal(raw, v), "decode response body: %s", raw)
}
