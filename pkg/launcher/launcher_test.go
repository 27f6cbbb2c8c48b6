package launcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinHosts(t *testing.T) {
	assert.Equal(t, []string{"claude", "copilot"}, HostNames())

	h, ok := BuiltinHost("claude")
	require.True(t, ok)
	assert.Equal(t, "claude", h.Binary)
	assert.Equal(t, ".env", h.EnvFile)

	_, ok = BuiltinHost("cursor")
	assert.False(t, ok)
}

func TestRunExportsEnvAndPassesArgs(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("AGENTKIT_LAUNCH_TEST=from-env\n"), 0o600))
	t.Setenv("AGENTKIT_LAUNCH_TEST", "")

	var stdout bytes.Buffer
	l := New(WithStreams(strings.NewReader(""), &stdout, &bytes.Buffer{}))

	host := Host{Name: "test", Binary: "sh", EnvFile: envPath}
	code, err := l.Run(context.Background(), host, []string{"-c", `printf '%s %s' "$AGENTKIT_LAUNCH_TEST" "$0"`, "passthrough"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Equal(t, "from-env passthrough", stdout.String())
}

func TestRunMissingEnvFileWarnsAndContinues(t *testing.T) {
	var warnings []string
	l := New(
		WithStreams(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}),
		WithWarningHandler(func(msg string) { warnings = append(warnings, msg) }),
	)

	missing := filepath.Join(t.TempDir(), ".env")
	code, err := l.Run(context.Background(), Host{Name: "test", Binary: "sh", EnvFile: missing}, []string{"-c", "exit 0"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "file not found")
}

func TestRunPropagatesExitCode(t *testing.T) {
	l := New(WithStreams(strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{}))

	code, err := l.Run(context.Background(), Host{Name: "test", Binary: "sh"}, []string{"-c", "exit 3"})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
}

func TestRunMissingBinary(t *testing.T) {
	l := New(WithLookPath(func(string) (string, error) {
		return "", errors.New("executable file not found in $PATH")
	}))

	code, err := l.Run(context.Background(), Host{Name: "claude", Binary: "claude"}, nil)
	require.Error(t, err)
	assert.Equal(t, 1, code)
	assert.Contains(t, err.Error(), "claude not found on PATH")
}
