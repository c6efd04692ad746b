package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windlass-dev/windlass/pkg/selection"
)

// listCommandEnv points the list flags at a local directory bucket and
// restores them afterwards.
func listCommandEnv(t *testing.T, bucketDir string) *cobra.Command {
	t.Helper()

	origFormat := listFormat
	origDest := listDest
	listBucket = bucketDir
	listProviderType = "file"
	t.Cleanup(func() {
		listBucket = ""
		listProviderType = ""
		listFormat = origFormat
		listDest = origDest
		listPrefix = ""
		listContains = ""
	})

	c := &cobra.Command{}
	c.SetContext(context.Background())
	return c
}

func seedBucketDir(t *testing.T, keys map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for key, content := range keys {
		path := filepath.Join(dir, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func TestRunList_InvalidFormat(t *testing.T) {
	orig := listFormat
	listFormat = "xml"
	t.Cleanup(func() { listFormat = orig })

	c := &cobra.Command{}
	c.SetContext(context.Background())

	err := runList(c, nil)
	require.Error(t, err)

	var coded *exitCodeError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, foundry.ExitInvalidArgument, coded.code)
	assert.Contains(t, err.Error(), "unsupported format: xml")
}

func TestRunList_NoBucket(t *testing.T) {
	c := &cobra.Command{}
	c.SetContext(context.Background())

	err := runList(c, nil)
	require.Error(t, err)

	var coded *exitCodeError
	require.ErrorAs(t, err, &coded)
	assert.Equal(t, foundry.ExitInvalidArgument, coded.code)
	assert.Contains(t, err.Error(), "No bucket configured")
}

func TestRunList_Table(t *testing.T) {
	dir := seedBucketDir(t, map[string]string{
		"exports/report-a.csv": "alpha\n",
		"exports/report-b.csv": "beta\n",
	})
	c := listCommandEnv(t, dir)

	var out, errOut bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&errOut)

	require.NoError(t, runList(c, nil))

	rows := out.String()
	assert.Contains(t, rows, "exports/report-a.csv")
	assert.Contains(t, rows, "exports/report-b.csv")
	assert.Contains(t, rows, "KEY")

	// The tally stays off stdout so piped rows parse cleanly.
	assert.NotContains(t, rows, "Found 2 file(s)")
	assert.Contains(t, errOut.String(), "Found 2 file(s)")
}

func TestRunList_TableEmpty(t *testing.T) {
	c := listCommandEnv(t, t.TempDir())

	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&bytes.Buffer{})

	require.NoError(t, runList(c, nil))
	assert.Contains(t, out.String(), "No files found.")
}

func TestRunList_JSONL(t *testing.T) {
	dir := seedBucketDir(t, map[string]string{
		"exports/report-a.csv": "alpha\n",
	})
	c := listCommandEnv(t, dir)

	recordsPath := filepath.Join(t.TempDir(), "records.jsonl")
	listFormat = "jsonl"
	listDest = "file:" + recordsPath

	require.NoError(t, runList(c, nil))

	data, err := os.ReadFile(recordsPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2, "one object record plus the summary")
	assert.Contains(t, lines[0], "windlass.object.v1")
	assert.Contains(t, lines[0], "exports/report-a.csv")
	assert.Contains(t, lines[1], "windlass.summary.v1")
}

func TestApplyListFlags(t *testing.T) {
	newFlagSet := func(t *testing.T) *cobra.Command {
		t.Helper()
		c := &cobra.Command{}
		c.Flags().IntVar(&listDays, "days", 0, "")
		c.Flags().StringVar(&listOn, "on", "", "")
		t.Cleanup(func() {
			listDays = 0
			listOn = ""
		})
		return c
	}

	t.Run("selection flags", func(t *testing.T) {
		c := newFlagSet(t)
		require.NoError(t, c.Flags().Set("days", "3"))

		listContains = "invoice"
		t.Cleanup(func() { listContains = "" })

		job := &pullJob{}
		require.NoError(t, applyListFlags(c, job))

		assert.Equal(t, 3, job.criteria.LookbackDays)
		assert.Equal(t, "invoice", job.criteria.Contains)
	})

	t.Run("date flag", func(t *testing.T) {
		c := newFlagSet(t)
		require.NoError(t, c.Flags().Set("on", "15-06-2024"))

		job := &pullJob{}
		require.NoError(t, applyListFlags(c, job))

		want := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.Local)
		assert.True(t, job.criteria.OnDate.Equal(want))
	})

	t.Run("malformed date fails", func(t *testing.T) {
		c := newFlagSet(t)
		require.NoError(t, c.Flags().Set("on", "junk"))

		err := applyListFlags(c, &pullJob{})
		assert.Error(t, err)
	})

	t.Run("dest names the records target", func(t *testing.T) {
		c := newFlagSet(t)
		listDest = "file:records.jsonl"
		t.Cleanup(func() { listDest = "" })

		job := &pullJob{destination: "stdout"}
		require.NoError(t, applyListFlags(c, job))
		assert.Equal(t, "file:records.jsonl", job.destination)
	})

	t.Run("both window flags conflict at validation", func(t *testing.T) {
		c := newFlagSet(t)
		require.NoError(t, c.Flags().Set("days", "3"))
		require.NoError(t, c.Flags().Set("on", "15-06-2024"))

		job := &pullJob{}
		require.NoError(t, applyListFlags(c, job))

		_, err := job.criteria.Filter(time.Now())
		assert.ErrorIs(t, err, selection.ErrConflictingWindow)
	})
}
