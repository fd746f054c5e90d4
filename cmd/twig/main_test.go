package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	twigerrors "twig/internal/errors"
	"twig/internal/merge"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

func runTwig(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runTwig(t, args...)
	require.NoError(t, err, "twig %s", strings.Join(args, " "))
	return out
}

func writeFile(t *testing.T, name, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(name), 0755))
	require.NoError(t, os.WriteFile(name, []byte(content), 0644))
}

// chdir changes the working directory for the duration of the test,
// restoring the previous directory on cleanup (equivalent to t.Chdir).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		require.NoError(t, os.Chdir(prev))
	})
}

func readFile(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(name)
	require.NoError(t, err)
	return string(data)
}

func TestOutsideRepository(t *testing.T) {
	chdir(t, t.TempDir())

	_, err := runTwig(t, "status")
	assert.ErrorIs(t, err, twigerrors.ErrNotARepository)
}

func TestCommandErrors(t *testing.T) {
	chdir(t, t.TempDir())
	mustRun(t, "init")

	_, err := runTwig(t, "init")
	assert.ErrorIs(t, err, twigerrors.ErrAlreadyInitialized)

	_, err = runTwig(t, "frobnicate")
	assert.ErrorIs(t, err, twigerrors.ErrUnknownCommand)

	_, err = runTwig(t, "commit")
	assert.ErrorIs(t, err, twigerrors.ErrInvalidArgumentCount)

	_, err = runTwig(t, "checkout", "a", "b", "c")
	assert.ErrorIs(t, err, twigerrors.ErrInvalidArgumentCount)

	_, err = runTwig(t, "rm", "nothing.txt")
	assert.ErrorIs(t, err, twigerrors.ErrNoReasonToRemove)

	_, err = runTwig(t, "rm-branch", "master")
	assert.ErrorIs(t, err, twigerrors.ErrSelfReferenceGuard)
}

func TestWorkflow(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	out := mustRun(t, "init")
	assert.Contains(t, out, "Initialized empty twig repository")

	writeFile(t, "f", "1")
	mustRun(t, "add", "f")
	assert.Equal(t, "File is already added.\n", mustRun(t, "add", "f"))
	out = mustRun(t, "commit", "c1")
	assert.Contains(t, out, "+1 (addition), -0 (removal)")

	c1 := strings.TrimSpace(mustRun(t, "find", "c1"))
	require.Len(t, c1, 64)
	assert.Equal(t, "Found no commit with that message.\n", mustRun(t, "find", "nope"))

	mustRun(t, "branch", "topic")
	assert.Contains(t, mustRun(t, "checkout", "topic"), "Switched to branch topic")
	writeFile(t, "f", "3")
	mustRun(t, "add", "f")
	mustRun(t, "commit", "c3")

	mustRun(t, "checkout", "master")
	assert.Equal(t, "1", readFile(t, "f"))
	writeFile(t, "f", "2")
	mustRun(t, "add", "f")
	mustRun(t, "commit", "c2")

	out = mustRun(t, "merge", "topic")
	assert.Contains(t, out, "Encountered a merge conflict. Check the contents of f to resolve.")
	assert.Equal(t, "<<<<<<< HEAD\n2\n=======\n3\n>>>>>>>", readFile(t, "f"))

	out = mustRun(t, "log")
	assert.Contains(t, out, "Merging topic with master")
	assert.Contains(t, out, "Merge: ")
	assert.Equal(t, 4, strings.Count(out, "==="), "merge, c2, c1 and the initial commit")

	out = mustRun(t, "global-log")
	assert.Equal(t, 5, strings.Count(out, "==="))

	mustRun(t, "checkout", c1[:8], "--", "f")
	assert.Equal(t, "1", readFile(t, "f"))
	mustRun(t, "checkout", "--", "f")
	assert.Equal(t, "<<<<<<< HEAD\n2\n=======\n3\n>>>>>>>", readFile(t, "f"))

	t.Run("status from a subdirectory", func(t *testing.T) {
		writeFile(t, filepath.Join(dir, "sub", "new.txt"), "n")
		chdir(t, filepath.Join(dir, "sub"))
		mustRun(t, "add", "new.txt")

		out := mustRun(t, "status")
		assert.Contains(t, out, "=== Branches ===\n*master\ntopic\n")
		assert.Contains(t, out, "=== Staged Files ===\nsub/new.txt\n")

		writeFile(t, "new.txt", "changed")
		out = mustRun(t, "diff")
		assert.Contains(t, out, "diff --twig a/sub/new.txt b/sub/new.txt")
		assert.Contains(t, out, "+changed")
	})

	t.Run("reset", func(t *testing.T) {
		chdir(t, dir)
		mustRun(t, "rm", filepath.Join("sub", "new.txt"))
		out := mustRun(t, "reset", c1)
		assert.Contains(t, out, "Checked out master to commit ["+c1+"]")
		assert.Equal(t, "1", readFile(t, "f"))
	})
}

func TestPrintMerge(t *testing.T) {
	var out bytes.Buffer
	printMerge(&out, &merge.Result{
		Kind:      merge.Merged,
		Conflicts: []string{"a.txt", "dir/b.txt"},
		Messages:  []string{"topic merged into master."},
	})

	assert.Equal(t, "Encountered a merge conflict. Check the contents of a.txt to resolve.\n"+
		"Encountered a merge conflict. Check the contents of dir/b.txt to resolve.\n"+
		"topic merged into master.\n", out.String())
}
