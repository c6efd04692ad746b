package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/windlass-dev/windlass/internal/config"
	"github.com/windlass-dev/windlass/internal/observability"
	"github.com/windlass-dev/windlass/internal/prompt"
	"github.com/windlass-dev/windlass/pkg/download"
	"github.com/windlass-dev/windlass/pkg/listing"
	"github.com/windlass-dev/windlass/pkg/manifest"
	"github.com/windlass-dev/windlass/pkg/output"
	"github.com/windlass-dev/windlass/pkg/provider"
	"github.com/windlass-dev/windlass/pkg/provider/file"
	"github.com/windlass-dev/windlass/pkg/provider/s3"
	"github.com/windlass-dev/windlass/pkg/selection"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "List matching bucket files and download them",
	Long: `Pull files from a bucket into a local directory.

Without selection flags pull runs an interactive wizard: pick a time
window, optionally filter by name, review the matches, confirm, and the
files land in the download directory. With flags or a manifest it runs
unattended and emits JSONL records instead.

Examples:
  windlass pull
  windlass pull --days 7 --contains report --yes
  windlass pull --on 15-06-2024 --dest ./reports --yes
  windlass pull --job pull.yaml
  windlass pull --days 30 --dry-run`,
	RunE: runPull,
}

var (
	pullJobPath      string
	pullDays         int
	pullOn           string
	pullContains     string
	pullDest         string
	pullYes          bool
	pullDryRun       bool
	pullOutput       string
	pullBucket       string
	pullPrefix       string
	pullRegion       string
	pullEndpoint     string
	pullProfile      string
	pullProviderType string
)

func init() {
	rootCmd.AddCommand(pullCmd)

	pullCmd.Flags().StringVarP(&pullJobPath, "job", "j", "", "Path to pull manifest (YAML or JSON)")
	pullCmd.Flags().IntVar(&pullDays, "days", 0, "Select files modified in the last N days")
	pullCmd.Flags().StringVar(&pullOn, "on", "", "Select files modified on this date (DD-MM-YYYY)")
	pullCmd.Flags().StringVar(&pullContains, "contains", "", "Select keys containing this text (case-insensitive)")
	pullCmd.Flags().StringVar(&pullDest, "dest", "", "Download directory")
	pullCmd.Flags().BoolVarP(&pullYes, "yes", "y", false, "Skip the download confirmation")
	pullCmd.Flags().BoolVar(&pullDryRun, "dry-run", false, "List matches and show the plan without downloading")
	pullCmd.Flags().StringVarP(&pullOutput, "output", "o", "", "Records destination (stdout or file:PATH)")
	pullCmd.Flags().StringVar(&pullBucket, "bucket", "", "Bucket to pull from")
	pullCmd.Flags().StringVar(&pullPrefix, "prefix", "", "Key prefix to list under")
	pullCmd.Flags().StringVarP(&pullRegion, "region", "r", "", "AWS region")
	pullCmd.Flags().StringVarP(&pullProfile, "profile", "p", "", "AWS profile")
	pullCmd.Flags().StringVar(&pullEndpoint, "endpoint", "", "Custom S3 endpoint")
	pullCmd.Flags().StringVar(&pullProviderType, "provider", "", "Storage provider (s3|file)")
}

// pullJob is the fully resolved input for one run: connection, selection,
// and where files and records go. Configuration fills it first, then a
// manifest, then explicit flags.
type pullJob struct {
	providerType string
	bucket       string
	prefix       string
	region       string
	endpoint     string
	profile      string
	forcePath    bool
	maxKeys      int
	rateLimit    float64
	timeout      time.Duration

	criteria    selection.Criteria
	downloadDir string
	destination string
	progress    bool
}

// jobFromConfig seeds a job from the loaded configuration.
func jobFromConfig() *pullJob {
	job := &pullJob{
		providerType: provider.ProviderS3.String(),
		downloadDir:  manifest.DefaultDownloadDir,
		destination:  manifest.DefaultDestination,
		progress:     manifest.DefaultProgress,
	}

	cfg := config.GetConfig()
	if cfg == nil {
		return job
	}

	job.bucket = cfg.Bucket
	job.prefix = cfg.Prefix
	if cfg.DownloadDir != "" {
		job.downloadDir = cfg.DownloadDir
	}
	if cfg.Provider.Type != "" {
		job.providerType = cfg.Provider.Type
	}
	job.region = cfg.Provider.Region
	job.endpoint = cfg.Provider.Endpoint
	job.profile = cfg.Provider.Profile
	job.forcePath = cfg.Provider.ForcePathStyle
	job.maxKeys = int(cfg.Provider.MaxKeys)
	job.rateLimit = cfg.Listing.RateLimit
	job.timeout = cfg.Listing.Timeout

	return job
}

// applyManifest overlays manifest values on the job.
func (j *pullJob) applyManifest(m *manifest.Manifest) error {
	if m.Connection.Provider != "" {
		j.providerType = m.Connection.Provider
	}
	if m.Connection.Bucket != "" {
		j.bucket = m.Connection.Bucket
	}
	if m.Connection.Prefix != "" {
		j.prefix = m.Connection.Prefix
	}
	if m.Connection.Region != "" {
		j.region = m.Connection.Region
	}
	if m.Connection.Endpoint != "" {
		j.endpoint = m.Connection.Endpoint
	}
	if m.Connection.Profile != "" {
		j.profile = m.Connection.Profile
	}

	crit, err := criteriaFromManifest(m.Selection)
	if err != nil {
		return err
	}
	j.criteria = crit

	if m.Download.Dir != "" {
		j.downloadDir = m.Download.Dir
	}
	if m.Output.Destination != "" {
		j.destination = m.Output.Destination
	}
	j.progress = m.Output.ProgressEnabled()

	return nil
}

// criteriaFromManifest maps a manifest selection block onto criteria.
func criteriaFromManifest(sel manifest.SelectionConfig) (selection.Criteria, error) {
	crit := selection.Criteria{
		LookbackDays: sel.Days,
		Contains:     sel.Contains,
		Includes:     sel.Includes,
		Excludes:     sel.Excludes,
		MinSize:      sel.Size.Min,
		MaxSize:      sel.Size.Max,
	}

	if sel.Date != "" {
		day, err := selection.ParseDay(sel.Date, time.Local)
		if err != nil {
			return crit, err
		}
		crit.OnDate = day
	}

	return crit, nil
}

// applyPullFlags overlays explicit flags on the job. A time-mode flag
// replaces the manifest's time mode; setting both flags at once leaves
// the conflict for criteria validation to reject.
func applyPullFlags(cmd *cobra.Command, job *pullJob) error {
	flags := cmd.Flags()

	if pullProviderType != "" {
		job.providerType = pullProviderType
	}
	if pullBucket != "" {
		job.bucket = pullBucket
	}
	if pullPrefix != "" {
		job.prefix = pullPrefix
	}
	if pullRegion != "" {
		job.region = pullRegion
	}
	if pullEndpoint != "" {
		job.endpoint = pullEndpoint
	}
	if pullProfile != "" {
		job.profile = pullProfile
	}
	if pullDest != "" {
		job.downloadDir = pullDest
	}
	if pullOutput != "" {
		job.destination = pullOutput
	}

	if flags.Changed("days") {
		job.criteria.LookbackDays = pullDays
		if !flags.Changed("on") {
			job.criteria.OnDate = time.Time{}
		}
	}
	if flags.Changed("on") {
		day, err := selection.ParseDay(pullOn, time.Local)
		if err != nil {
			return err
		}
		job.criteria.OnDate = day
		if !flags.Changed("days") {
			job.criteria.LookbackDays = 0
		}
	}
	if flags.Changed("contains") {
		job.criteria.Contains = pullContains
	}

	return nil
}

func runPull(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	job := jobFromConfig()

	if pullJobPath != "" {
		m, err := manifest.Load(pullJobPath)
		if err != nil {
			observability.CLILogger.Error("Failed to load manifest",
				zap.String("path", pullJobPath),
				zap.Error(err))
			return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
		}
		if err := job.applyManifest(m); err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid manifest", err)
		}
	}

	if err := applyPullFlags(cmd, job); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid selection criteria", err)
	}

	interactive := pullJobPath == "" && !pullYes && !pullDryRun &&
		!cmd.Flags().Changed("days") && !cmd.Flags().Changed("on") && !cmd.Flags().Changed("contains")

	var wizard *prompt.Prompter
	if interactive {
		wizard = prompt.New(cmd.InOrStdin(), cmd.OutOrStdout())
		if err := askSelection(wizard, cmd.OutOrStdout(), &job.criteria); err != nil {
			return err
		}
	}

	if job.bucket == "" {
		return exitError(foundry.ExitInvalidArgument, "No bucket configured",
			errors.New("set bucket via config file, WINDLASS_BUCKET, --bucket, or a manifest"))
	}

	filter, err := job.criteria.Filter(time.Now())
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid selection criteria", err)
	}

	prov, err := newPullProvider(ctx, job)
	if err != nil {
		observability.CLILogger.Error("Failed to create provider", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage provider", err)
	}
	defer func() { _ = prov.Close() }()

	result, err := runListing(ctx, prov, job, filter)
	if err != nil {
		observability.CLILogger.Error("Failed to list objects", zap.Error(err))
		return listingExitError(ctx, err)
	}

	if interactive {
		return finishPullInteractive(ctx, cmd, wizard, job, prov, result)
	}
	return finishPullScripted(ctx, cmd, job, prov, result)
}

// listingExitError maps a listing failure onto the exit surface so scripts
// can tell a missing bucket from bad credentials from a provider outage.
func listingExitError(ctx context.Context, err error) error {
	switch {
	case ctx.Err() != nil:
		return exitError(foundry.ExitSignalInt, "Listing cancelled", err)
	case provider.IsBucketNotFound(err):
		return exitError(foundry.ExitFileNotFound, "Bucket not found", err)
	case provider.IsAccessDenied(err), provider.IsInvalidCredentials(err):
		return exitError(foundry.ExitExternalServiceUnavailable, "Access to the bucket was refused", err)
	case provider.IsThrottled(err):
		return exitError(foundry.ExitExternalServiceUnavailable, "Provider rate limit exceeded", err)
	case provider.IsProviderUnavailable(err):
		return exitError(foundry.ExitExternalServiceUnavailable, "Provider unavailable", err)
	default:
		return exitError(foundry.ExitExternalServiceUnavailable, "Failed to list objects", err)
	}
}

// askSelection runs the wizard prompts that build the selection criteria.
func askSelection(p *prompt.Prompter, out io.Writer, crit *selection.Criteria) error {
	fmt.Fprintln(out, "How should files be selected?")
	fmt.Fprintln(out, "  1) Modified in the last N days")
	fmt.Fprintln(out, "  2) Modified on a specific date")

	choice, err := p.Line("Choice: ")
	if err != nil {
		return err
	}

	switch choice {
	case "1":
		days, err := prompt.Ask(p, "How many days back? ", parseDayCount, nil)
		if err != nil {
			return err
		}
		crit.LookbackDays = days
	case "2":
		day, err := prompt.Ask(p, "Date (DD-MM-YYYY): ", parseCalendarDay, nil)
		if err != nil {
			return err
		}
		crit.OnDate = day
	default:
		// A bad menu choice does not re-ask: it warns and pulls the
		// last three days instead.
		fmt.Fprintln(out, "Invalid choice, using the last 3 days.")
		crit.LookbackDays = 3
	}

	needle, err := p.Line("Only keys containing (empty for all): ")
	if err != nil {
		return err
	}
	crit.Contains = needle

	return nil
}

func parseDayCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("enter a whole number of days, at least 1")
	}
	return n, nil
}

func parseCalendarDay(s string) (time.Time, error) {
	day, err := selection.ParseDay(s, time.Local)
	if err != nil {
		return time.Time{}, errors.New("enter a valid date as DD-MM-YYYY, e.g. 07-05-2024")
	}
	return day, nil
}

// runListing walks every page under the job prefix and applies the
// compiled filter. The listing timeout, when configured, bounds the walk.
func runListing(ctx context.Context, prov provider.Provider, job *pullJob, filter *selection.CompositeFilter) (*listing.Listing, error) {
	if job.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.timeout)
		defer cancel()
	}

	observability.CLILogger.Info("Starting listing",
		zap.String("bucket", job.bucket),
		zap.String("prefix", job.prefix))

	lister := listing.New(prov, listing.Config{
		Prefix:    job.prefix,
		MaxKeys:   job.maxKeys,
		RateLimit: job.rateLimit,
	}).WithFilter(filter)

	result, err := lister.Run(ctx)
	if err != nil {
		return nil, err
	}

	observability.CLILogger.Info("Listing complete",
		zap.Int64("listed", result.Summary.Listed),
		zap.Int64("matched", result.Summary.Matched),
		zap.Int("pages", result.Summary.Pages),
		zap.Duration("duration", result.Summary.Duration))

	return result, nil
}

// finishPullInteractive reviews the listing with the operator and
// downloads on confirmation.
func finishPullInteractive(ctx context.Context, cmd *cobra.Command, p *prompt.Prompter, job *pullJob, prov provider.Provider, result *listing.Listing) error {
	out := cmd.OutOrStdout()

	if len(result.Objects) == 0 {
		fmt.Fprintln(out, "No files found.")
		return nil
	}

	printListing(out, result.Objects)
	fmt.Fprintln(out)

	ok, err := p.YesNo(fmt.Sprintf("Download %d file(s)? (y/n): ", len(result.Objects)))
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintln(out, "Nothing downloaded.")
		return nil
	}

	dest, err := p.Line(fmt.Sprintf("Download directory [%s]: ", job.downloadDir))
	if err != nil {
		return err
	}
	if dest != "" {
		job.downloadDir = dest
	}

	for name, keys := range download.DetectCollisions(result.Objects) {
		fmt.Fprintf(out, "Warning: multiple keys become %q locally, the last one wins: %s\n",
			name, strings.Join(keys, ", "))
	}

	sum, err := runDownload(ctx, prov, &consoleWriter{out: out}, job, result.Objects)
	if err != nil {
		if ctx.Err() != nil {
			return exitError(foundry.ExitSignalInt, "Pull cancelled", err)
		}
		return exitError(foundry.ExitFileWriteError, "Pull failed", err)
	}

	fmt.Fprintf(out, "\nDone: %d downloaded, %d failed (%s).\n",
		sum.Downloaded, sum.Failed, formatSize(sum.Bytes))
	return nil
}

// finishPullScripted emits records instead of conversation. Confirmation
// still happens unless --yes, on stderr so stdout stays parseable.
func finishPullScripted(ctx context.Context, cmd *cobra.Command, job *pullJob, prov provider.Provider, result *listing.Listing) error {
	if pullDryRun {
		return showPullPlan(cmd.OutOrStdout(), job, result)
	}

	runID := uuid.New().String()

	writer, cleanup, err := createPullWriter(job, runID)
	if err != nil {
		observability.CLILogger.Error("Failed to create writer", zap.Error(err))
		return exitError(foundry.ExitFileWriteError, "Failed to create output", err)
	}
	defer cleanup()

	for i := range result.Objects {
		obj := &result.Objects[i]
		rec := &output.ObjectRecord{
			Key:          obj.Key,
			Size:         obj.Size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
		}
		if err := writer.WriteObject(ctx, rec); err != nil {
			return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
		}
	}

	if len(result.Objects) == 0 {
		observability.CLILogger.Info("No files found")
		return writeSummaryRecord(ctx, writer, result.Summary, &download.Summary{})
	}

	if !pullYes {
		p := prompt.New(cmd.InOrStdin(), cmd.ErrOrStderr())
		ok, err := p.YesNo(fmt.Sprintf("Download %d file(s) to %s? (y/n): ", len(result.Objects), job.downloadDir))
		if err != nil {
			return err
		}
		if !ok {
			observability.CLILogger.Info("Download declined")
			return writeSummaryRecord(ctx, writer, result.Summary, &download.Summary{})
		}
	}

	for name, keys := range download.DetectCollisions(result.Objects) {
		observability.CLILogger.Warn("Filename collision, the last download wins",
			zap.String("local_name", name),
			zap.Strings("keys", keys))
	}

	var dlWriter output.Writer = writer
	if job.progress {
		dlWriter = &teeWriter{records: writer, progress: &consoleWriter{out: cmd.ErrOrStderr()}}
	}

	sum, err := runDownload(ctx, prov, dlWriter, job, result.Objects)
	if err != nil {
		if ctx.Err() != nil {
			return exitError(foundry.ExitSignalInt, "Pull cancelled", err)
		}
		return exitError(foundry.ExitFileWriteError, "Pull failed", err)
	}

	return writeSummaryRecord(ctx, writer, result.Summary, sum)
}

// runDownload copies the objects into the job download directory, one
// record per attempt through the writer.
func runDownload(ctx context.Context, prov provider.Provider, writer output.Writer, job *pullJob, objects []provider.ObjectSummary) (*download.Summary, error) {
	observability.CLILogger.Info("Starting download",
		zap.Int("files", len(objects)),
		zap.String("dir", job.downloadDir))

	dl := download.New(prov, writer, download.Config{Dir: job.downloadDir})
	sum, _, err := dl.Run(ctx, objects)
	if err != nil {
		return sum, err
	}

	observability.CLILogger.Info("Download complete",
		zap.Int64("downloaded", sum.Downloaded),
		zap.Int64("failed", sum.Failed),
		zap.Int64("bytes", sum.Bytes),
		zap.Duration("duration", sum.Duration))

	return sum, nil
}

// writeSummaryRecord emits the final summary for scripted runs.
func writeSummaryRecord(ctx context.Context, writer output.Writer, ls listing.Summary, ds *download.Summary) error {
	total := ls.Duration + ds.Duration
	rec := &output.SummaryRecord{
		ObjectsListed:   ls.Listed,
		ObjectsMatched:  ls.Matched,
		BytesMatched:    ls.BytesMatched,
		Downloaded:      ds.Downloaded,
		Failed:          ds.Failed,
		BytesDownloaded: ds.Bytes,
		Duration:        total,
		DurationHuman:   total.Round(time.Millisecond).String(),
	}
	if err := writer.WriteSummary(ctx, rec); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write output", err)
	}
	return nil
}

// showPullPlan displays what would be pulled without downloading.
func showPullPlan(out io.Writer, job *pullJob, result *listing.Listing) error {
	fmt.Fprintln(out, "=== Pull Plan (dry-run) ===")
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Provider:     %s\n", job.providerType)
	fmt.Fprintf(out, "Bucket:       %s\n", job.bucket)
	if job.prefix != "" {
		fmt.Fprintf(out, "Prefix:       %s\n", job.prefix)
	}
	if job.region != "" {
		fmt.Fprintf(out, "Region:       %s\n", job.region)
	}
	if job.endpoint != "" {
		fmt.Fprintf(out, "Endpoint:     %s\n", job.endpoint)
	}
	fmt.Fprintf(out, "Selection:    %s\n", describeCriteria(job.criteria))
	fmt.Fprintf(out, "Download dir: %s\n", job.downloadDir)
	fmt.Fprintln(out)

	if len(result.Objects) == 0 {
		fmt.Fprintln(out, "No files found.")
		return nil
	}

	printListing(out, result.Objects)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Dry run: nothing downloaded. Remove --dry-run to pull %d file(s).\n", len(result.Objects))
	return nil
}

// describeCriteria renders criteria as a one-line summary.
func describeCriteria(c selection.Criteria) string {
	var parts []string

	switch {
	case c.LookbackDays > 0:
		parts = append(parts, fmt.Sprintf("last %d day(s)", c.LookbackDays))
	case !c.OnDate.IsZero():
		parts = append(parts, "on "+c.OnDate.Format("02-01-2006"))
	default:
		parts = append(parts, "everything")
	}

	if c.Contains != "" {
		parts = append(parts, fmt.Sprintf("name contains %q", c.Contains))
	}
	if len(c.Includes) > 0 {
		parts = append(parts, "include "+strings.Join(c.Includes, ","))
	}
	if len(c.Excludes) > 0 {
		parts = append(parts, "exclude "+strings.Join(c.Excludes, ","))
	}
	if c.MinSize != "" || c.MaxSize != "" {
		parts = append(parts, fmt.Sprintf("size %s..%s", c.MinSize, c.MaxSize))
	}

	return strings.Join(parts, ", ")
}

// printListing renders the numbered listing with per-file sizes and the
// total, newest first.
func printListing(out io.Writer, objects []provider.ObjectSummary) {
	total := writeListingTable(out, objects)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Found %d file(s) (%s total)\n", len(objects), formatSize(total))
}

// writeListingTable renders the numbered rows, timestamps in local time,
// and returns the cumulative size.
func writeListingTable(out io.Writer, objects []provider.ObjectSummary) int64 {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tKEY\tSIZE\tMODIFIED")

	var total int64
	for i, obj := range objects {
		total += obj.Size
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
			i+1,
			obj.Key,
			formatSize(obj.Size),
			obj.LastModified.Local().Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()

	return total
}

// newPullProvider builds the storage provider the job names. For the
// file provider the bucket is a local directory.
func newPullProvider(ctx context.Context, job *pullJob) (provider.Provider, error) {
	switch job.providerType {
	case provider.ProviderFile.String():
		return file.New(file.Config{BaseDir: job.bucket})
	case provider.ProviderS3.String(), "":
		return s3.New(ctx, s3.Config{
			Bucket:   job.bucket,
			Region:   job.region,
			Endpoint: job.endpoint,
			Profile:  job.profile,
			// Force path-style URLs when a custom endpoint is set.
			// S3-compatible services (moto, MinIO, etc.) require this.
			ForcePathStyle: job.forcePath || job.endpoint != "",
			MaxKeys:        job.maxKeys,
		})
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", job.providerType)
	}
}

// createPullWriter creates the records writer for scripted runs.
// Returns the writer, a cleanup function, and any error.
func createPullWriter(job *pullJob, runID string) (output.Writer, func(), error) {
	dest := job.destination

	if dest == "" || dest == "stdout" {
		w := output.NewJSONLWriter(os.Stdout, runID, job.providerType)
		return w, func() { _ = w.Close() }, nil
	}
	if dest == "stderr" {
		w := output.NewJSONLWriter(os.Stderr, runID, job.providerType)
		return w, func() { _ = w.Close() }, nil
	}

	path := strings.TrimPrefix(dest, "file:")

	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output file %s: %w", path, err)
	}

	w := output.NewJSONLWriter(f, runID, job.providerType)
	cleanup := func() {
		_ = w.Close()
		_ = f.Close()
	}
	return w, cleanup, nil
}

// consoleWriter narrates download progress for interactive runs. It
// satisfies the same writer contract as the JSONL writer, so the
// download loop does not care who is watching.
type consoleWriter struct {
	out io.Writer
}

func (w *consoleWriter) WriteObject(ctx context.Context, obj *output.ObjectRecord) error {
	return nil
}

func (w *consoleWriter) WriteDownload(ctx context.Context, dl *output.DownloadRecord) error {
	if _, err := fmt.Fprintf(w.out, "Downloading %s -> %s\n", dl.Key, dl.LocalPath); err != nil {
		return err
	}
	if dl.Status == output.StatusFailed {
		if _, err := fmt.Fprintf(w.out, "  failed: %s\n", dl.Error); err != nil {
			return err
		}
	}
	return nil
}

func (w *consoleWriter) WriteError(ctx context.Context, rec *output.ErrorRecord) error {
	_, err := fmt.Fprintf(w.out, "Error: %s\n", rec.Message)
	return err
}

func (w *consoleWriter) WriteSummary(ctx context.Context, sum *output.SummaryRecord) error {
	return nil
}

func (w *consoleWriter) Close() error { return nil }

// teeWriter mirrors download progress to a second writer while the
// primary one records. A progress write failing never fails the pull.
type teeWriter struct {
	records  output.Writer
	progress output.Writer
}

func (w *teeWriter) WriteObject(ctx context.Context, obj *output.ObjectRecord) error {
	return w.records.WriteObject(ctx, obj)
}

func (w *teeWriter) WriteDownload(ctx context.Context, dl *output.DownloadRecord) error {
	_ = w.progress.WriteDownload(ctx, dl)
	return w.records.WriteDownload(ctx, dl)
}

func (w *teeWriter) WriteError(ctx context.Context, rec *output.ErrorRecord) error {
	_ = w.progress.WriteError(ctx, rec)
	return w.records.WriteError(ctx, rec)
}

func (w *teeWriter) WriteSummary(ctx context.Context, sum *output.SummaryRecord) error {
	return w.records.WriteSummary(ctx, sum)
}

func (w *teeWriter) Close() error { return w.records.Close() }

// formatSize formats bytes as human-readable size.
func formatSize(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
		TB = 1024 * GB
	)

	switch {
	case bytes >= TB:
		return fmt.Sprintf("%.1f TB", float64(bytes)/TB)
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
