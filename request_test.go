package pylon

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRegistryRegisterUnregister(t *testing.T) {
	reg := NewRequestRegistry()
	req := &Request{ID: "r1"}
	reg.Register(context.Background(), req)
	assert.Equal(t, 1, reg.Len())

	_, ok := reg.Get("r1")
	assert.True(t, ok)

	reg.Unregister(req)
	assert.Equal(t, 0, reg.Len())
}

func TestRequestRegistryCancel(t *testing.T) {
	reg := NewRequestRegistry()
	req := &Request{ID: "r1"}
	reg.Register(context.Background(), req)
	defer reg.Unregister(req)

	assert.True(t, reg.Cancel("r1"))
	assert.Error(t, req.Context().Err())
	assert.False(t, reg.Cancel("missing"))
}

func TestNewRequestIDPrefersHeader(t *testing.T) {
	h := make(http.Header)
	h.Set(HeaderRequestID, "caller-supplied")
	assert.Equal(t, "caller-supplied", newRequestID(h))
}

func TestNewRequestIDMintsWhenAbsent(t *testing.T) {
	id := newRequestID(make(http.Header))
	assert.NotEmpty(t, id)
}

func TestWithRequestRoundTrip(t *testing.T) {
	req := &Request{ID: "r1"}
	ctx := WithRequest(context.Background(), req)

	got, ok := RequestFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, "r1", got.ID)
}
