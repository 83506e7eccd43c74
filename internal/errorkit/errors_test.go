package errorkit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCtxErrorIsMatchesByKind(t *testing.T) {
	err := DimensionMismatch(768, 256)
	require.True(t, errors.Is(err, New(KindDimensionMismatch, "", nil)))
	require.False(t, errors.Is(err, New(KindStorage, "", nil)))
}

func TestEvalIsMatchesBySubKind(t *testing.T) {
	err := Eval(EvalDatasetNotFound, "missing golden set", nil)
	require.True(t, errors.Is(err, Eval(EvalDatasetNotFound, "", nil)))
	require.False(t, errors.Is(err, Eval(EvalDatasetInvalid, "", nil)))
}

func TestExitCodeMapping(t *testing.T) {
	assert.Equal(t, ExitMismatch, ExitCode(KindDimensionMismatch))
	assert.Equal(t, ExitValidation, ExitCode(KindValidation))
	assert.Equal(t, ExitGeneric, ExitCode(KindStorage))
}

func TestToJSONWrapsSuggestion(t *testing.T) {
	err := AlreadyIndexed("demo")
	j := ToJSON(err)
	assert.Contains(t, j.Error, "demo")
	assert.NotEmpty(t, j.Hint)
	assert.Equal(t, ExitNotFound, j.Code)
}

func TestAsWarningOnlyForWarningSeverity(t *testing.T) {
	assert.True(t, AsWarning(Cancelled()))
	assert.False(t, AsWarning(Storage("disk full", nil)))
}
