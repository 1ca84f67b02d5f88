package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{KindNotFound, http.StatusNotFound},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindConflict, http.StatusConflict},
		{KindGone, http.StatusGone},
		{KindInvalid, http.StatusBadRequest},
		{KindInternal, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, New(tc.kind, "boom").HTTPStatus())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, "failed to save", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to save")
	assert.Contains(t, err.Error(), "disk full")
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindConflict, KindOf(New(KindConflict, "dup")))
	assert.Equal(t, KindConflict, KindOf(fmt.Errorf("outer: %w", New(KindConflict, "dup"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestIsKind(t *testing.T) {
	err := New(KindGone, "expired")
	assert.True(t, IsKind(err, KindGone))
	assert.False(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(errors.New("plain"), KindGone))
}
