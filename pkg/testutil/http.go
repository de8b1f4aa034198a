// Package testutil holds request and assertion helpers for handler tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ErrorBody is the error envelope written by httputil.WriteError.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description"`
}

// NewRequest builds a bodyless request for a route.
func NewRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	return httptest.NewRequest(method, path, nil)
}

// DoRequest serves req through handler and returns the recorder.
func DoRequest(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

// UnmarshalResponse decodes the JSON body into a T.
func UnmarshalResponse[T any](t *testing.T, rr *httptest.ResponseRecorder) *T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), "decode body: %s", rr.Body.String())
	return &out
}

// AssertStatusOK fails with the response body when the status is not 200.
func AssertStatusOK(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
}

// AssertStatusAndError checks the status and the error code of an error
// response and returns the decoded envelope.
func AssertStatusAndError(t *testing.T, rr *httptest.ResponseRecorder, status int, code string) *ErrorBody {
	t.Helper()
	assert.Equal(t, status, rr.Code, rr.Body.String())
	body := UnmarshalResponse[ErrorBody](t, rr)
	assert.Equal(t, code, body.Error)
	return body
}

// AssertJSONContains checks one top-level field of a JSON object body.
func AssertJSONContains(t *testing.T, rr *httptest.ResponseRecorder, key string, want any) {
	t.Helper()
	var obj map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &obj), "decode body: %s", rr.Body.String())
	assert.Equal(t, want, obj[key], "field %q", key)
}
