package adapter

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses /bin/sh")
	}

	runner := ExecRunner{Env: []string{"PIPELINE_TEST_VALUE=ok"}}

	out, err := runner.Run(context.Background(), "/bin/sh", "-c", "echo $PIPELINE_TEST_VALUE")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(string(out)))

	_, err = runner.Run(context.Background(), "/bin/sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "/bin/sh")
	assert.Contains(t, err.Error(), "boom")
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", Tail([]byte("  short\n")))

	long := strings.Repeat("a", maxOutputTail) + "END"
	tail := Tail([]byte(long))
	assert.True(t, strings.HasPrefix(tail, "..."))
	assert.True(t, strings.HasSuffix(tail, "END"))
	assert.Len(t, tail, maxOutputTail+3)
}
