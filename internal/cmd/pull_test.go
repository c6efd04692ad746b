package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windlass-dev/windlass/internal/prompt"
	"github.com/windlass-dev/windlass/pkg/listing"
	"github.com/windlass-dev/windlass/pkg/manifest"
	"github.com/windlass-dev/windlass/pkg/output"
	"github.com/windlass-dev/windlass/pkg/provider"
	"github.com/windlass-dev/windlass/pkg/selection"
)

func TestAskSelection(t *testing.T) {
	run := func(t *testing.T, input string) (selection.Criteria, string, error) {
		t.Helper()
		var out bytes.Buffer
		p := prompt.New(strings.NewReader(input), &out)
		var crit selection.Criteria
		err := askSelection(p, &out, &crit)
		return crit, out.String(), err
	}

	t.Run("days mode", func(t *testing.T) {
		crit, _, err := run(t, "1\n7\nreport\n")
		require.NoError(t, err)
		assert.Equal(t, 7, crit.LookbackDays)
		assert.True(t, crit.OnDate.IsZero())
		assert.Equal(t, "report", crit.Contains)
	})

	t.Run("date mode", func(t *testing.T) {
		crit, _, err := run(t, "2\n15-06-2024\n\n")
		require.NoError(t, err)
		assert.Equal(t, 0, crit.LookbackDays)
		want := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.Local)
		assert.True(t, crit.OnDate.Equal(want), "got %v", crit.OnDate)
		assert.Empty(t, crit.Contains)
	})

	t.Run("invalid menu choice falls back to three days", func(t *testing.T) {
		crit, out, err := run(t, "9\ninvoice\n")
		require.NoError(t, err)
		assert.Contains(t, out, "Invalid choice, using the last 3 days.")
		assert.Equal(t, 3, crit.LookbackDays)
		assert.Equal(t, "invoice", crit.Contains)
	})

	t.Run("rejects bad day counts until answered", func(t *testing.T) {
		crit, out, err := run(t, "1\nzero\n-2\n5\n\n")
		require.NoError(t, err)
		assert.Equal(t, 5, crit.LookbackDays)
		assert.Contains(t, out, "enter a whole number of days, at least 1")
		assert.Equal(t, 3, strings.Count(out, "How many days back? "))
	})

	t.Run("rejects bad dates until answered", func(t *testing.T) {
		crit, out, err := run(t, "2\n2024/06/15\n15-06-2024\n\n")
		require.NoError(t, err)
		assert.False(t, crit.OnDate.IsZero())
		assert.Contains(t, out, "enter a valid date as DD-MM-YYYY")
	})

	t.Run("asks each question once on clean input", func(t *testing.T) {
		_, out, err := run(t, "1\n7\nreport\n")
		require.NoError(t, err)
		assert.Equal(t, 1, strings.Count(out, "Choice: "))
		assert.Equal(t, 1, strings.Count(out, "How many days back? "))
		assert.Equal(t, 1, strings.Count(out, "Only keys containing"))
	})
}

func TestCriteriaFromManifest(t *testing.T) {
	t.Run("maps all fields", func(t *testing.T) {
		crit, err := criteriaFromManifest(manifest.SelectionConfig{
			Days:     14,
			Contains: "report",
			Includes: []string{"exports/**"},
			Excludes: []string{"**/*.tmp"},
			Size:     manifest.SizeConfig{Min: "1KiB", Max: "100MiB"},
		})
		require.NoError(t, err)
		assert.Equal(t, 14, crit.LookbackDays)
		assert.Equal(t, "report", crit.Contains)
		assert.Equal(t, []string{"exports/**"}, crit.Includes)
		assert.Equal(t, []string{"**/*.tmp"}, crit.Excludes)
		assert.Equal(t, "1KiB", crit.MinSize)
		assert.Equal(t, "100MiB", crit.MaxSize)
	})

	t.Run("parses day-first date", func(t *testing.T) {
		crit, err := criteriaFromManifest(manifest.SelectionConfig{Date: "15-06-2024"})
		require.NoError(t, err)
		want := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.Local)
		assert.True(t, crit.OnDate.Equal(want))
	})

	t.Run("parses iso date", func(t *testing.T) {
		crit, err := criteriaFromManifest(manifest.SelectionConfig{Date: "2024-06-15"})
		require.NoError(t, err)
		want := time.Date(2024, time.June, 15, 0, 0, 0, 0, time.Local)
		assert.True(t, crit.OnDate.Equal(want))
	})

	t.Run("rejects malformed date", func(t *testing.T) {
		_, err := criteriaFromManifest(manifest.SelectionConfig{Date: "June 15th"})
		assert.Error(t, err)
	})
}

// selectionFlagSet binds the pull selection flags to a scratch command
// so Changed state stays local to one subtest.
func selectionFlagSet(t *testing.T) *cobra.Command {
	t.Helper()
	c := &cobra.Command{}
	c.Flags().IntVar(&pullDays, "days", 0, "")
	c.Flags().StringVar(&pullOn, "on", "", "")
	c.Flags().StringVar(&pullContains, "contains", "", "")
	t.Cleanup(func() {
		pullDays = 0
		pullOn = ""
		pullContains = ""
	})
	return c
}

func TestApplyPullFlags(t *testing.T) {
	t.Run("days flag replaces manifest date", func(t *testing.T) {
		c := selectionFlagSet(t)
		require.NoError(t, c.Flags().Set("days", "7"))

		job := &pullJob{criteria: selection.Criteria{
			OnDate: time.Date(2024, time.June, 15, 0, 0, 0, 0, time.Local),
		}}
		require.NoError(t, applyPullFlags(c, job))

		assert.Equal(t, 7, job.criteria.LookbackDays)
		assert.True(t, job.criteria.OnDate.IsZero())
	})

	t.Run("date flag replaces manifest days", func(t *testing.T) {
		c := selectionFlagSet(t)
		require.NoError(t, c.Flags().Set("on", "15-06-2024"))

		job := &pullJob{criteria: selection.Criteria{LookbackDays: 30}}
		require.NoError(t, applyPullFlags(c, job))

		assert.Equal(t, 0, job.criteria.LookbackDays)
		assert.False(t, job.criteria.OnDate.IsZero())
	})

	t.Run("both flags leave the conflict for validation", func(t *testing.T) {
		c := selectionFlagSet(t)
		require.NoError(t, c.Flags().Set("days", "7"))
		require.NoError(t, c.Flags().Set("on", "15-06-2024"))

		job := &pullJob{}
		require.NoError(t, applyPullFlags(c, job))

		assert.Equal(t, 7, job.criteria.LookbackDays)
		assert.False(t, job.criteria.OnDate.IsZero())

		_, err := job.criteria.Filter(time.Now())
		assert.ErrorIs(t, err, selection.ErrConflictingWindow)
	})

	t.Run("malformed date fails", func(t *testing.T) {
		c := selectionFlagSet(t)
		require.NoError(t, c.Flags().Set("on", "soon"))

		err := applyPullFlags(c, &pullJob{})
		assert.Error(t, err)
	})

	t.Run("connection overrides", func(t *testing.T) {
		c := selectionFlagSet(t)
		pullBucket = "b2"
		pullPrefix = "exports/"
		pullRegion = "eu-west-2"
		pullEndpoint = "http://localhost:5555"
		pullProfile = "staging"
		pullProviderType = "file"
		pullDest = "./incoming"
		pullOutput = "file:records.jsonl"
		t.Cleanup(func() {
			pullBucket = ""
			pullPrefix = ""
			pullRegion = ""
			pullEndpoint = ""
			pullProfile = ""
			pullProviderType = ""
			pullDest = ""
			pullOutput = ""
		})

		job := &pullJob{bucket: "b1", downloadDir: "downloads", destination: "stdout"}
		require.NoError(t, applyPullFlags(c, job))

		assert.Equal(t, "b2", job.bucket)
		assert.Equal(t, "exports/", job.prefix)
		assert.Equal(t, "eu-west-2", job.region)
		assert.Equal(t, "http://localhost:5555", job.endpoint)
		assert.Equal(t, "staging", job.profile)
		assert.Equal(t, "file", job.providerType)
		assert.Equal(t, "./incoming", job.downloadDir)
		assert.Equal(t, "file:records.jsonl", job.destination)
	})
}

func TestJobFromConfig_Defaults(t *testing.T) {
	job := jobFromConfig()

	assert.Equal(t, "s3", job.providerType)
	assert.Equal(t, "downloads", job.downloadDir)
	assert.Equal(t, "stdout", job.destination)
	assert.True(t, job.progress)
}

func TestApplyManifest(t *testing.T) {
	t.Run("overlays connection and selection", func(t *testing.T) {
		noProgress := false
		m := &manifest.Manifest{
			Version: manifest.DefaultVersion,
			Connection: manifest.ConnectionConfig{
				Provider: "file",
				Bucket:   "/srv/exports",
				Prefix:   "monthly/",
				Region:   "eu-west-2",
			},
			Selection: manifest.SelectionConfig{Days: 7, Contains: "report"},
			Download:  manifest.DownloadConfig{Dir: "./reports"},
			Output:    manifest.OutputConfig{Destination: "stderr", Progress: &noProgress},
		}

		job := jobFromConfig()
		require.NoError(t, job.applyManifest(m))

		assert.Equal(t, "file", job.providerType)
		assert.Equal(t, "/srv/exports", job.bucket)
		assert.Equal(t, "monthly/", job.prefix)
		assert.Equal(t, "eu-west-2", job.region)
		assert.Equal(t, 7, job.criteria.LookbackDays)
		assert.Equal(t, "report", job.criteria.Contains)
		assert.Equal(t, "./reports", job.downloadDir)
		assert.Equal(t, "stderr", job.destination)
		assert.False(t, job.progress)
	})

	t.Run("bad selection date fails", func(t *testing.T) {
		m := &manifest.Manifest{
			Version:    manifest.DefaultVersion,
			Connection: manifest.ConnectionConfig{Bucket: "b"},
			Selection:  manifest.SelectionConfig{Date: "whenever"},
		}

		err := jobFromConfig().applyManifest(m)
		assert.Error(t, err)
	})
}

func TestPullListingAndDownload(t *testing.T) {
	ctx := context.Background()

	bucketDir := t.TempDir()
	seed := map[string]string{
		"exports/june/report-a.csv": "alpha,1\n",
		"exports/june/report-b.csv": "beta,22\n",
		"exports/notes.txt":         "hello\n",
	}
	now := time.Now()
	ages := map[string]time.Duration{
		"exports/june/report-a.csv": 1 * time.Hour,
		"exports/june/report-b.csv": 2 * time.Hour,
		"exports/notes.txt":         3 * time.Hour,
	}
	for key, content := range seed {
		path := filepath.Join(bucketDir, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		mtime := now.Add(-ages[key])
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}

	job := &pullJob{
		providerType: "file",
		bucket:       bucketDir,
		prefix:       "exports/",
		downloadDir:  filepath.Join(t.TempDir(), "dl"),
		criteria:     selection.Criteria{LookbackDays: 7, Contains: "report"},
	}

	filter, err := job.criteria.Filter(time.Now())
	require.NoError(t, err)

	prov, err := newPullProvider(ctx, job)
	require.NoError(t, err)
	defer func() { _ = prov.Close() }()

	result, err := runListing(ctx, prov, job, filter)
	require.NoError(t, err)

	require.Len(t, result.Objects, 2)
	assert.Equal(t, "exports/june/report-a.csv", result.Objects[0].Key, "newest first")
	assert.Equal(t, "exports/june/report-b.csv", result.Objects[1].Key)
	assert.Equal(t, int64(3), result.Summary.Listed)
	assert.Equal(t, int64(2), result.Summary.Matched)

	var console bytes.Buffer
	sum, err := runDownload(ctx, prov, &consoleWriter{out: &console}, job, result.Objects)
	require.NoError(t, err)

	assert.Equal(t, int64(2), sum.Downloaded)
	assert.Equal(t, int64(0), sum.Failed)

	narration := console.String()
	assert.Contains(t, narration,
		"Downloading exports/june/report-a.csv -> "+filepath.Join(job.downloadDir, "report-a.csv"))
	assert.Contains(t, narration,
		"Downloading exports/june/report-b.csv -> "+filepath.Join(job.downloadDir, "report-b.csv"))

	got, err := os.ReadFile(filepath.Join(job.downloadDir, "report-a.csv"))
	require.NoError(t, err)
	assert.Equal(t, "alpha,1\n", string(got))

	t.Run("no matches yields empty listing", func(t *testing.T) {
		crit := selection.Criteria{LookbackDays: 7, Contains: "zzz"}
		f, err := crit.Filter(time.Now())
		require.NoError(t, err)

		empty, err := runListing(ctx, prov, job, f)
		require.NoError(t, err)
		assert.Empty(t, empty.Objects)
		assert.Equal(t, int64(0), empty.Summary.Matched)
	})
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{2621440, "2.5 MB"},
		{1073741824, "1.0 GB"},
		{1099511627776, "1.0 TB"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formatSize(tt.bytes))
		})
	}
}

func TestPrintListing(t *testing.T) {
	objects := []provider.ObjectSummary{
		{Key: "exports/june/report-a.csv", Size: 1024, LastModified: time.Date(2024, 6, 15, 9, 30, 0, 0, time.Local)},
		{Key: "exports/june/report-b.csv", Size: 2048, LastModified: time.Date(2024, 6, 14, 9, 30, 0, 0, time.Local)},
	}

	var out bytes.Buffer
	printListing(&out, objects)
	s := out.String()

	assert.Contains(t, s, "KEY")
	assert.Contains(t, s, "MODIFIED")
	assert.Contains(t, s, "exports/june/report-a.csv")
	assert.Contains(t, s, "2024-06-15 09:30:00")
	assert.Contains(t, s, "1.0 KB")
	assert.Contains(t, s, "2.0 KB")
	assert.Contains(t, s, "Found 2 file(s) (3.0 KB total)")

	rows := strings.Split(strings.TrimSpace(s), "\n")
	assert.True(t, strings.HasPrefix(rows[1], "1"), "rows are numbered from 1: %q", rows[1])
	assert.True(t, strings.HasPrefix(rows[2], "2"), "rows are numbered from 1: %q", rows[2])
}

func TestShowPullPlan(t *testing.T) {
	job := &pullJob{
		providerType: "s3",
		bucket:       "data-bucket",
		prefix:       "exports/",
		region:       "eu-west-2",
		downloadDir:  "downloads",
		criteria:     selection.Criteria{LookbackDays: 7, Contains: "report"},
	}

	t.Run("with matches", func(t *testing.T) {
		var out bytes.Buffer
		err := showPullPlan(&out, job, listingOf(
			provider.ObjectSummary{Key: "exports/report.csv", Size: 1024, LastModified: time.Now()},
		))
		require.NoError(t, err)

		s := out.String()
		assert.Contains(t, s, "=== Pull Plan (dry-run) ===")
		assert.Contains(t, s, "Provider:     s3")
		assert.Contains(t, s, "Bucket:       data-bucket")
		assert.Contains(t, s, "Prefix:       exports/")
		assert.Contains(t, s, "Region:       eu-west-2")
		assert.Contains(t, s, `last 7 day(s), name contains "report"`)
		assert.Contains(t, s, "Download dir: downloads")
		assert.Contains(t, s, "exports/report.csv")
		assert.Contains(t, s, "Dry run: nothing downloaded. Remove --dry-run to pull 1 file(s).")
	})

	t.Run("without matches", func(t *testing.T) {
		var out bytes.Buffer
		err := showPullPlan(&out, job, listingOf())
		require.NoError(t, err)

		s := out.String()
		assert.Contains(t, s, "No files found.")
		assert.NotContains(t, s, "Dry run: nothing downloaded")
	})
}

func listingOf(objects ...provider.ObjectSummary) *listing.Listing {
	return &listing.Listing{Objects: objects}
}

func TestDescribeCriteria(t *testing.T) {
	tests := []struct {
		name string
		crit selection.Criteria
		want string
	}{
		{
			name: "lookback window",
			crit: selection.Criteria{LookbackDays: 3},
			want: "last 3 day(s)",
		},
		{
			name: "calendar day",
			crit: selection.Criteria{OnDate: time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local)},
			want: "on 15-06-2024",
		},
		{
			name: "unconstrained",
			crit: selection.Criteria{},
			want: "everything",
		},
		{
			name: "window with name and size",
			crit: selection.Criteria{LookbackDays: 7, Contains: "report", MinSize: "1KiB", MaxSize: "10MiB"},
			want: `last 7 day(s), name contains "report", size 1KiB..10MiB`,
		},
		{
			name: "globs",
			crit: selection.Criteria{Includes: []string{"exports/**"}, Excludes: []string{"**/*.tmp"}},
			want: "everything, include exports/**, exclude **/*.tmp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, describeCriteria(tt.crit))
		})
	}
}

func TestCreatePullWriter_Stdout(t *testing.T) {
	job := &pullJob{providerType: "s3", destination: "stdout"}

	writer, cleanup, err := createPullWriter(job, "test-run-id")
	require.NoError(t, err)
	require.NotNil(t, writer)
	require.NotNil(t, cleanup)

	// Cleanup shouldn't panic
	cleanup()
}

func TestCreatePullWriter_EmptyDestination(t *testing.T) {
	job := &pullJob{providerType: "s3", destination: ""}

	writer, cleanup, err := createPullWriter(job, "test-run-id")
	require.NoError(t, err)
	require.NotNil(t, writer)
	require.NotNil(t, cleanup)

	cleanup()
}

func TestCreatePullWriter_FilePrefix(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "records.jsonl")

	job := &pullJob{providerType: "s3", destination: "file:" + outPath}

	writer, cleanup, err := createPullWriter(job, "test-run-id")
	require.NoError(t, err)
	require.NotNil(t, writer)

	// File should exist
	_, err = os.Stat(outPath)
	require.NoError(t, err)

	cleanup()
}

func TestCreatePullWriter_PlainPath(t *testing.T) {
	tmpDir := t.TempDir()
	outPath := filepath.Join(tmpDir, "records.jsonl")

	job := &pullJob{providerType: "s3", destination: outPath}

	writer, cleanup, err := createPullWriter(job, "test-run-id")
	require.NoError(t, err)
	require.NotNil(t, writer)

	_, err = os.Stat(outPath)
	require.NoError(t, err)

	cleanup()
}

func TestCreatePullWriter_InvalidPath(t *testing.T) {
	job := &pullJob{providerType: "s3", destination: "/nonexistent/deeply/nested/records.jsonl"}

	_, _, err := createPullWriter(job, "test-run-id")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create output file")
}

func TestConsoleWriter(t *testing.T) {
	ctx := context.Background()

	t.Run("narrates downloads", func(t *testing.T) {
		var out bytes.Buffer
		w := &consoleWriter{out: &out}

		err := w.WriteDownload(ctx, &output.DownloadRecord{
			Key:       "exports/report.csv",
			LocalPath: "downloads/report.csv",
			Status:    output.StatusOK,
		})
		require.NoError(t, err)
		assert.Equal(t, "Downloading exports/report.csv -> downloads/report.csv\n", out.String())
	})

	t.Run("annotates failures", func(t *testing.T) {
		var out bytes.Buffer
		w := &consoleWriter{out: &out}

		err := w.WriteDownload(ctx, &output.DownloadRecord{
			Key:       "exports/report.csv",
			LocalPath: "downloads/report.csv",
			Status:    output.StatusFailed,
			Error:     "access denied",
		})
		require.NoError(t, err)
		assert.Contains(t, out.String(), "  failed: access denied")
	})

	t.Run("prints errors", func(t *testing.T) {
		var out bytes.Buffer
		w := &consoleWriter{out: &out}

		err := w.WriteError(ctx, &output.ErrorRecord{Code: "NOT_FOUND", Message: "key vanished"})
		require.NoError(t, err)
		assert.Equal(t, "Error: key vanished\n", out.String())
	})

	t.Run("object and summary records are silent", func(t *testing.T) {
		var out bytes.Buffer
		w := &consoleWriter{out: &out}

		require.NoError(t, w.WriteObject(ctx, &output.ObjectRecord{Key: "k"}))
		require.NoError(t, w.WriteSummary(ctx, &output.SummaryRecord{Downloaded: 1}))
		require.NoError(t, w.Close())
		assert.Empty(t, out.String())
	})
}

// countingWriter records how many times each writer method ran.
type countingWriter struct {
	objects   int
	downloads int
	errs      int
	summaries int
}

func (w *countingWriter) WriteObject(ctx context.Context, obj *output.ObjectRecord) error {
	w.objects++
	return nil
}

func (w *countingWriter) WriteDownload(ctx context.Context, dl *output.DownloadRecord) error {
	w.downloads++
	return nil
}

func (w *countingWriter) WriteError(ctx context.Context, rec *output.ErrorRecord) error {
	w.errs++
	return nil
}

func (w *countingWriter) WriteSummary(ctx context.Context, sum *output.SummaryRecord) error {
	w.summaries++
	return nil
}

func (w *countingWriter) Close() error { return nil }

func TestTeeWriter(t *testing.T) {
	ctx := context.Background()

	records := &countingWriter{}
	var mirror bytes.Buffer
	w := &teeWriter{records: records, progress: &consoleWriter{out: &mirror}}

	require.NoError(t, w.WriteObject(ctx, &output.ObjectRecord{Key: "k"}))
	require.NoError(t, w.WriteDownload(ctx, &output.DownloadRecord{
		Key: "k", LocalPath: "downloads/k", Status: output.StatusOK,
	}))
	require.NoError(t, w.WriteSummary(ctx, &output.SummaryRecord{Downloaded: 1}))
	require.NoError(t, w.Close())

	assert.Equal(t, 1, records.objects)
	assert.Equal(t, 1, records.downloads)
	assert.Equal(t, 1, records.summaries)

	// Only download progress reaches the mirror.
	assert.Contains(t, mirror.String(), "Downloading k -> downloads/k")
	assert.NotContains(t, mirror.String(), "Downloaded")
}
