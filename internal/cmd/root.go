// Package cmd implements the windlass command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/windlass-dev/windlass/internal/config"
	"github.com/windlass-dev/windlass/internal/observability"
)

var rootCmd = &cobra.Command{
	Use:   "windlass",
	Short: "Pull recent files from cloud object storage",
	Long: `windlass lists the objects in a bucket, narrows them to the ones an
operator cares about (modified in the last N days or on a specific date,
optionally filtered by name), and downloads them one at a time into a
local directory.

Run pull without flags for the interactive wizard, or script it:

  windlass pull
  windlass pull --days 7 --contains report --yes
  windlass pull --job pull.yaml
  windlass list --days 3
  windlass doctor --provider s3`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd.Context())
	},
}

var (
	cfgFile    string
	logLevel   string
	logProfile string
)

// versionInfo holds build metadata injected via ldflags.
var versionInfo = struct {
	Version   string
	Commit    string
	BuildDate string
}{
	Version:   "dev",
	Commit:    "HEAD",
	BuildDate: "unknown",
}

// AppIdentity names the running binary for banners and self-references.
type AppIdentity struct {
	Name       string
	BinaryName string
}

var appIdentity *AppIdentity

func init() {
	appIdentity = &AppIdentity{Name: "windlass", BinaryName: "windlass"}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to config file (default: windlass.yaml in . or the user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVar(&logProfile, "log-profile", "", "Log output profile (console|structured)")
}

// SetVersionInfo records build metadata from main's ldflags.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	rootCmd.Version = fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

// GetAppIdentity returns the binary identity, or nil before initialization.
func GetAppIdentity() *AppIdentity {
	return appIdentity
}

// initConfig resolves configuration and brings the logger up at the
// configured level. Flag values beat config file and environment.
func initConfig(ctx context.Context) error {
	if cfgFile != "" {
		config.SetConfigFile(cfgFile)
	}

	logging := map[string]any{}
	if logLevel != "" {
		logging["level"] = logLevel
	}
	if logProfile != "" {
		logging["profile"] = logProfile
	}
	overrides := map[string]any{}
	if len(logging) > 0 {
		overrides["logging"] = logging
	}

	cfg, err := config.Load(ctx, overrides)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	observability.InitCLILogger(cfg.Logging.Level, cfg.Logging.Profile == "structured")
	return nil
}

// Execute runs the root command and maps failures to process exit codes.
// SIGINT and SIGTERM cancel the command context so in-flight listings
// and downloads stop at the next page or file boundary.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var coded *exitCodeError
		if errors.As(err, &coded) {
			observability.CLILogger.Error(coded.message, zap.Error(coded.err))
			os.Exit(coded.code)
		}
		observability.CLILogger.Error("Command failed", zap.Error(err))
		os.Exit(1)
	}
}

// ExitWithCode logs the failure and exits the process immediately.
func ExitWithCode(logger *zap.Logger, code int, message string, err error) {
	logger.Error(message, zap.Error(err))
	os.Exit(code)
}

// exitCodeError carries a foundry exit code up to Execute.
type exitCodeError struct {
	code    int
	message string
	err     error
}

func (e *exitCodeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v (exit code %d)", e.message, e.err, e.code)
	}
	return fmt.Sprintf("%s (exit code %d)", e.message, e.code)
}

func (e *exitCodeError) Unwrap() error {
	return e.err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &exitCodeError{code: code, message: message, err: err}
}
