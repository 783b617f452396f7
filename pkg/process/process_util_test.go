package process

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPidConversions(t *testing.T) {
	t.Parallel()

	pid, err := IntToPidT(1234)
	require.NoError(t, err)
	assert.Equal(t, Pid_t(1234), pid)

	_, err = IntToPidT(-1)
	assert.Error(t, err)

	_, err = Int64_ToPidT(int64(math.MaxUint32) + 1)
	assert.Error(t, err)

	osPid, err := PidT_ToInt(Pid_t(42))
	require.NoError(t, err)
	assert.Equal(t, 42, osPid)
}

func TestStringToPidT(t *testing.T) {
	t.Parallel()

	pid, err := StringToPidT("8725")
	require.NoError(t, err)
	assert.Equal(t, Pid_t(8725), pid)

	_, err = StringToPidT("not-a-pid")
	assert.Error(t, err)

	_, err = StringToPidT("-5")
	assert.Error(t, err)
}

func TestIsEarlyProcessExitError(t *testing.T) {
	t.Parallel()

	assert.False(t, IsEarlyProcessExitError(nil))
	assert.False(t, IsEarlyProcessExitError(assert.AnError))
}
