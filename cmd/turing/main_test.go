package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathieusouflis/turing"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("TURING_STORE", "file")
	t.Setenv("TURING_FILE_DIR", filepath.Join(t.TempDir(), "machines"))
	t.Setenv("TURING_LOG_LEVEL", "error")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "turing version "+strings.TrimSpace(turing.Version)+"\n", out)
}

func TestTemplateLs(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "template", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "unary-counter\n")
	assert.Contains(t, out, "unary-successor\n")
}

func TestTemplateShow_Raw(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "template", "show", "unary-successor", "--raw")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# unary-successor\n"))
	assert.Contains(t, out, "| A |")
}

func TestSimulate_Template(t *testing.T) {
	setupEnv(t)
	out, err := execute(t, "simulate", "--template", "unary-successor", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, out, "halted: reached_final_state after 7 steps")
}

func TestMachineLifecycle(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "machine", "create", "m-1", "--template", "unary-successor")
	require.NoError(t, err)
	assert.Contains(t, out, "Created machine 'm-1'")

	out, err = execute(t, "machine", "run", "m-1")
	require.NoError(t, err)
	assert.Contains(t, out, "halted: reached_final_state after 7 steps")

	out, err = execute(t, "machine", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "m-1")
	assert.Contains(t, out, "accepted")

	out, err = execute(t, "machine", "graph", "m-1")
	require.NoError(t, err)
	assert.Contains(t, out, "class HALT accepted;")

	out, err = execute(t, "machine", "rm", "m-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed machine 'm-1'")

	_, err = execute(t, "machine", "inspect", "m-1")
	assert.Error(t, err)
}
