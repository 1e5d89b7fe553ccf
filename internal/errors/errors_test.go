package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	base := InvalidInput("max_points must be positive")
	wrapped := Wrap(base, "decode reduce request")

	assert.Equal(t, CodeInvalidInput, GetCode(wrapped))
	assert.Equal(t, "decode reduce request: max_points must be positive", wrapped.Error())
	assert.True(t, stderrors.Is(wrapped, base))
}

func TestWrapPlainError(t *testing.T) {
	wrapped := Wrapf(fmt.Errorf("boom"), "step %d", 2)
	assert.Equal(t, CodeInternalError, GetCode(wrapped))
	assert.Nil(t, Wrap(nil, "nothing"))
}

func TestWithCode(t *testing.T) {
	sentinel := stderrors.New("closed")
	err := WithCode(CodeQueueClosed, sentinel)
	assert.Equal(t, CodeQueueClosed, GetCode(err))
	assert.True(t, stderrors.Is(err, sentinel))
	assert.Equal(t, "UNKNOWN", GetCode(sentinel))
}
