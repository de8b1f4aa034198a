package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"creditlens/internal/bureau"
)

func TestRequestValidate(t *testing.T) {
	valid := Request{FullName: "Puran Mal Tank", PAN: "ABCDE1234F", MobileNumber: "9876543210"}

	tests := []struct {
		name    string
		mutate  func(r *Request)
		wantErr string
	}{
		{name: "valid", mutate: func(*Request) {}},
		{name: "missing name", mutate: func(r *Request) { r.FullName = "" }, wantErr: "full name"},
		{name: "short pan", mutate: func(r *Request) { r.PAN = "ABCDE123F" }, wantErr: "pan number"},
		{name: "lower case pan rejected before normalize", mutate: func(r *Request) { r.PAN = "abcde1234f" }, wantErr: "pan number"},
		{name: "missing mobile", mutate: func(r *Request) { r.MobileNumber = "" }, wantErr: "mobile number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.mutate(&r)
			err := r.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRequestNormalize(t *testing.T) {
	r := Request{FullName: "  puran   mal tank ", PAN: " abcde1234f ", MobileNumber: " 98765 "}.Normalize()
	assert.Equal(t, "puran mal tank", r.FullName)
	assert.Equal(t, "ABCDE1234F", r.PAN)
	assert.Equal(t, "98765", r.MobileNumber)
	assert.NoError(t, Request{FullName: "x", PAN: "abcde1234f", MobileNumber: "1"}.Normalize().Validate())
}

func TestCacheKey(t *testing.T) {
	key := CacheKey(bureau.CRIF, "ABCDE1234F")
	assert.True(t, strings.HasPrefix(key, "creditlens:vendor:crif:"))
	assert.NotContains(t, key, "ABCDE1234F")
	assert.Len(t, strings.TrimPrefix(key, "creditlens:vendor:crif:"), 32)

	assert.Equal(t, key, CacheKey(bureau.CRIF, " abcde1234f "))
	assert.NotEqual(t, key, CacheKey(bureau.CIBIL, "ABCDE1234F"))
	assert.NotEqual(t, key, CacheKey(bureau.CRIF, "ABCDE1234G"))
}

func TestCategoryForStatus(t *testing.T) {
	tests := map[int]ErrorCategory{
		http.StatusUnauthorized:        ErrorAuthentication,
		http.StatusForbidden:           ErrorAuthentication,
		http.StatusNotFound:            ErrorNotFound,
		http.StatusTooManyRequests:     ErrorRateLimited,
		http.StatusGatewayTimeout:      ErrorTimeout,
		http.StatusBadRequest:          ErrorInvalidRequest,
		http.StatusInternalServerError: ErrorProviderOutage,
		http.StatusServiceUnavailable:  ErrorProviderOutage,
		http.StatusTeapot:              ErrorContractMismatch,
	}
	for status, want := range tests {
		assert.Equal(t, want, CategoryForStatus(status), "status %d", status)
	}
}

func TestProviderError(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("pull: %w", NewProviderError(ErrorProviderOutage, "crif", "request failed", cause))

	assert.True(t, IsRetryable(err))
	assert.Equal(t, ErrorProviderOutage, GetCategory(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "bureau crif [provider_outage]: request failed")

	bad := NewProviderError(ErrorBadData, "crif", "missing header", nil)
	assert.False(t, IsRetryable(bad))
	assert.Equal(t, "bureau crif [bad_data]: missing header", bad.Error())

	assert.Equal(t, ErrorInternal, GetCategory(errors.New("plain")))
	assert.False(t, IsRetryable(nil))
}
