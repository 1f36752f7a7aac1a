package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodes(t *testing.T) {
	t.Run("wrapped coded error keeps its code through fmt wrapping", func(t *testing.T) {
		base := Wrap(errors.New("connection refused"), CodeUnavailable, "store unavailable")
		err := fmt.Errorf("record: %w", base)

		assert.True(t, HasCode(err, CodeUnavailable))
		assert.Equal(t, "store unavailable", Message(err))
	})

	t.Run("uncoded errors read as internal and hide their message", func(t *testing.T) {
		err := errors.New("pq: relation patients does not exist")

		assert.Equal(t, CodeInternal, CodeOf(err))
		assert.Equal(t, "internal error", Message(err))
	})

	t.Run("wrap of nil is nil", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, CodeInternal, "x"))
		assert.False(t, HasCode(nil, CodeInternal))
	})

	t.Run("status mapping", func(t *testing.T) {
		assert.Equal(t, http.StatusForbidden, ToHTTPStatus(CodeForbidden))
		assert.Equal(t, http.StatusBadRequest, ToHTTPStatus(CodeValidation))
		assert.Equal(t, http.StatusServiceUnavailable, ToHTTPStatus(CodeUnavailable))
		assert.Equal(t, http.StatusInternalServerError, ToHTTPStatus(Code("other")))
	})
}
