package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout redirects os.Stdout for the duration of fn, since
// runInspect/runCreateSample/runReindex print via fmt.Printf rather than
// cmd.OutOrStdout().
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)

	orig := os.Stdout
	os.Stdout = w
	fnErr := fn()
	os.Stdout = orig
	require.NoError(t, w.Close())

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String(), fnErr
}

func newCreateSampleCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "create-sample"}
	cmd.Flags().Int("nodes", 20, "")
	cmd.Flags().Int("edges", 15, "")
	return cmd
}

func newReindexCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "reindex"}
	cmd.Flags().Uint16("label", 1, "")
	cmd.Flags().Int("batch-size", 0, "")
	return cmd
}

func TestCreateSampleThenInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.snap")

	create := newCreateSampleCmd()
	require.NoError(t, create.Flags().Parse([]string{"--nodes", "10", "--edges", "5"}))
	_, err := captureStdout(t, func() error { return runCreateSample(create, []string{path}) })
	require.NoError(t, err)

	inspect := &cobra.Command{Use: "inspect"}
	out, err := captureStdout(t, func() error { return runInspect(inspect, []string{path}) })
	require.NoError(t, err)
	assert.Contains(t, out, "nodes (live):     10")
	assert.Contains(t, out, "edges (live):     5")
}

func TestReindexPopulatesAllNodesForLabel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.snap")

	create := newCreateSampleCmd()
	require.NoError(t, create.Flags().Parse([]string{"--nodes", "30", "--edges", "10"}))
	_, err := captureStdout(t, func() error { return runCreateSample(create, []string{path}) })
	require.NoError(t, err)

	reindex := newReindexCmd()
	require.NoError(t, reindex.Flags().Parse([]string{"--label", "1", "--batch-size", "4"}))
	out, err := captureStdout(t, func() error { return runReindex(reindex, []string{path}) })
	require.NoError(t, err)
	assert.Contains(t, out, "state: ACTIVE")
}
