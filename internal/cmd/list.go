package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/windlass-dev/windlass/internal/observability"
	"github.com/windlass-dev/windlass/pkg/download"
	"github.com/windlass-dev/windlass/pkg/listing"
	"github.com/windlass-dev/windlass/pkg/output"
	"github.com/windlass-dev/windlass/pkg/selection"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List matching bucket files without downloading",
	Long: `List the bucket files that match the selection criteria.

list is pull without the download: the same time window and name
filters, rendered as an aligned table for people or JSONL records for
scripts. Without selection flags it lists everything under the prefix.

Examples:
  windlass list
  windlass list --days 3
  windlass list --on 15-06-2024 --contains invoice
  windlass list --format jsonl --dest file:listing.jsonl`,
	RunE: runList,
}

var (
	listDays         int
	listOn           string
	listContains     string
	listFormat       string
	listDest         string
	listBucket       string
	listPrefix       string
	listRegion       string
	listEndpoint     string
	listProfile      string
	listProviderType string
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntVar(&listDays, "days", 0, "Select files modified in the last N days")
	listCmd.Flags().StringVar(&listOn, "on", "", "Select files modified on this date (DD-MM-YYYY)")
	listCmd.Flags().StringVar(&listContains, "contains", "", "Select keys containing this text (case-insensitive)")
	listCmd.Flags().StringVarP(&listFormat, "format", "f", "table", "Output format (table|jsonl)")
	listCmd.Flags().StringVar(&listDest, "dest", "", "Records destination for jsonl (stdout or file:PATH)")
	listCmd.Flags().StringVar(&listBucket, "bucket", "", "Bucket to list")
	listCmd.Flags().StringVar(&listPrefix, "prefix", "", "Key prefix to list under")
	listCmd.Flags().StringVarP(&listRegion, "region", "r", "", "AWS region")
	listCmd.Flags().StringVarP(&listProfile, "profile", "p", "", "AWS profile")
	listCmd.Flags().StringVar(&listEndpoint, "endpoint", "", "Custom S3 endpoint")
	listCmd.Flags().StringVar(&listProviderType, "provider", "", "Storage provider (s3|file)")
}

// applyListFlags overlays explicit flags on the job. Unlike pull there
// is no manifest underneath, so nothing needs clearing.
func applyListFlags(cmd *cobra.Command, job *pullJob) error {
	flags := cmd.Flags()

	if listProviderType != "" {
		job.providerType = listProviderType
	}
	if listBucket != "" {
		job.bucket = listBucket
	}
	if listPrefix != "" {
		job.prefix = listPrefix
	}
	if listRegion != "" {
		job.region = listRegion
	}
	if listEndpoint != "" {
		job.endpoint = listEndpoint
	}
	if listProfile != "" {
		job.profile = listProfile
	}
	if listDest != "" {
		job.destination = listDest
	}

	if flags.Changed("days") {
		job.criteria.LookbackDays = listDays
	}
	if flags.Changed("on") {
		day, err := selection.ParseDay(listOn, time.Local)
		if err != nil {
			return err
		}
		job.criteria.OnDate = day
	}
	if listContains != "" {
		job.criteria.Contains = listContains
	}

	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	switch listFormat {
	case "table", "jsonl":
	default:
		return exitError(foundry.ExitInvalidArgument, "Invalid format",
			fmt.Errorf("unsupported format: %s (use table or jsonl)", listFormat))
	}

	job := jobFromConfig()
	if err := applyListFlags(cmd, job); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid selection criteria", err)
	}

	if job.bucket == "" {
		return exitError(foundry.ExitInvalidArgument, "No bucket configured",
			errors.New("set bucket via config file, WINDLASS_BUCKET, or --bucket"))
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

	if listFormat == "jsonl" {
		return writeListRecords(ctx, job, result)
	}

	out := cmd.OutOrStdout()
	if len(result.Objects) == 0 {
		fmt.Fprintln(out, "No files found.")
		return nil
	}

	// The table goes to stdout, the tally to stderr, so piped output
	// stays row-only.
	total := writeListingTable(out, result.Objects)
	fmt.Fprintf(cmd.ErrOrStderr(), "\nFound %d file(s) (%s total)\n", len(result.Objects), formatSize(total))
	return nil
}

// writeListRecords emits one record per object plus the summary.
func writeListRecords(ctx context.Context, job *pullJob, result *listing.Listing) error {
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

	return writeSummaryRecord(ctx, writer, result.Summary, &download.Summary{})
}
