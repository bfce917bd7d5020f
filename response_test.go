package pylon

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseWriteToPlain(t *testing.T) {
	res := NewResponse(nil)
	require.NoError(t, res.SetResult("hello"))

	rec := httptest.NewRecorder()
	require.NoError(t, res.WriteTo(rec, ""))

	assert.Equal(t, "hello", rec.Body.String())
	assert.True(t, res.Written)
}

func TestResponseWriteToGzip(t *testing.T) {
	res := NewResponse(nil)
	require.NoError(t, res.SetResult("hello world"))
	res.EnableCompression()

	rec := httptest.NewRecorder()
	require.NoError(t, res.WriteTo(rec, "gzip, deflate"))

	assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
}

func TestResponseDeferredFuncsRunOnWrite(t *testing.T) {
	res := NewResponse(nil)
	require.NoError(t, res.SetResult("x"))

	var order []int
	res.Defer(func() { order = append(order, 1) })
	res.Defer(func() { order = append(order, 2) })

	rec := httptest.NewRecorder()
	require.NoError(t, res.WriteTo(rec, ""))

	assert.Equal(t, []int{2, 1}, order)
}

func TestResponseSetErrorTranslatesStatus(t *testing.T) {
	res := NewResponse(nil)
	res.SetError(ErrNotFound)
	assert.Equal(t, 404, res.Status)
	assert.Contains(t, string(res.Body), "not_found")
}
