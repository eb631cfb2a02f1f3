package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindStatus(t *testing.T) {
	t.Parallel()

	cases := map[Kind]int{
		KindInternal:        http.StatusInternalServerError,
		KindUnauthenticated: http.StatusUnauthorized,
		KindForbidden:       http.StatusForbidden,
		KindInvalidInput:    http.StatusUnprocessableEntity,
		KindConflict:        http.StatusConflict,
		KindNotFound:        http.StatusNotFound,
		KindInvalidState:    http.StatusConflict,
	}
	for k, want := range cases {
		assert.Equal(t, want, k.Status(), k.String())
	}
}

func TestAs_UnwrapsChain(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	err := fmt.Errorf("approve: %w", &Error{Kind: KindConflict, Code: "X", Err: cause})

	ae, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, "X", ae.Code)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.ErrorIs(t, err, cause)

	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
	_, ok = As(nil)
	assert.False(t, ok)
}
