package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsInnermostCode(t *testing.T) {
	base := UnknownCrop("quinoa")
	wrapped := Wrapf(fmt.Errorf("optimize: %w", base), "dosage for %s", "quinoa")

	assert.Equal(t, CodeUnknownCrop, GetCode(wrapped))
	assert.True(t, IsCode(wrapped, CodeUnknownCrop))
	assert.True(t, stderrors.Is(wrapped, base))
	assert.Equal(t, CodeInternalError, GetCode(Wrap(fmt.Errorf("plain"), "ctx")))
	assert.Nil(t, Wrap(nil, "ctx"))
}

func TestIsCodeWalksJoinedErrors(t *testing.T) {
	joined := stderrors.Join(fmt.Errorf("trial failed"), ModelInference("regressor", fmt.Errorf("nan")))

	assert.True(t, IsCode(joined, CodeModelInference))
	assert.False(t, IsCode(joined, CodeValidationError))
	assert.True(t, IsCode(Wrap(joined, "all trials failed"), CodeModelInference))
}

func TestWithCode(t *testing.T) {
	err := WithCode(CodeDatabaseError, fmt.Errorf("connection refused"))
	assert.Equal(t, "connection refused", err.Error())
	assert.True(t, IsCode(err, CodeDatabaseError))
	assert.Nil(t, WithCode(CodeDatabaseError, nil))
}
