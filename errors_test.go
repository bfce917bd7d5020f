package pylon

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKindStatusMapping(t *testing.T) {
	cases := map[ErrorKind]int{
		KindNotFound:         404,
		KindNotAuthenticated: 401,
		KindNotAuthorized:    403,
		KindNotAvailable:     503,
		KindValidation:       400,
		KindCancelled:        499,
		KindInternal:         500,
		KindPayloadTooLarge:  413,
	}
	for kind, status := range cases {
		assert.Equal(t, status, kind.httpStatus())
	}
}

func TestBodyTooLargeMapsTo413(t *testing.T) {
	assert.Equal(t, 413, ErrBodyTooLarge.Status())
}

func TestAsErrorDefaultsUnrecognizedToInternal(t *testing.T) {
	pe := AsError(errors.New("plain"))
	assert.Equal(t, KindInternal, pe.Kind)
}

func TestAsErrorPassesThroughExisting(t *testing.T) {
	orig := NewError(KindValidation, "bad input")
	assert.Same(t, orig, AsError(orig))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("root cause")
	wrapped := Wrap(KindInternal, cause)
	assert.ErrorIs(t, wrapped, cause)
}
