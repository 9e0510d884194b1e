// Package cli provides the docmodel command line interface.
package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docmodel/internal/core/domain"
	"github.com/custodia-labs/docmodel/internal/core/ports/driving"
	"github.com/custodia-labs/docmodel/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// verbose enables debug logging for every command.
var verbose bool

// Services wired in by main.
var (
	documentService driving.DocumentModelService
	settingsService driving.SettingsService
	recoveryService driving.RecoveryService
	resolveResource = func(arg string) (domain.ResourceID, error) {
		return domain.ResourceID(arg), nil
	}
)

var rootCmd = &cobra.Command{
	Use:   "docmodel",
	Short: "Shared document models with crash recovery",
	Long: `docmodel opens text documents from local files or GitHub, tracks unsaved
edits, saves them with conflict detection, and keeps a recovery record of
every unsaved change so nothing is lost if the process dies.

Resources are file paths, file:// URIs or github://owner/repo/path URIs.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug logs to stderr")
}

// Config holds the services the commands run against.
type Config struct {
	Documents driving.DocumentModelService
	Settings  driving.SettingsService
	Recovery  driving.RecoveryService

	// ResolveResource turns a command line argument into a resource id.
	// Nil uses the argument as is.
	ResolveResource func(arg string) (domain.ResourceID, error)
}

// Configure sets the services used by the commands.
func Configure(cfg Config) {
	documentService = cfg.Documents
	settingsService = cfg.Settings
	recoveryService = cfg.Recovery
	if cfg.ResolveResource != nil {
		resolveResource = cfg.ResolveResource
	}
}

// SetVersion overrides the reported version.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// resolveArg resolves a resource argument, passing URIs through.
func resolveArg(arg string) (domain.ResourceID, error) {
	if strings.Contains(arg, "://") {
		return domain.ResourceID(arg), nil
	}
	return resolveResource(arg)
}

// commandContext returns the command's context, or Background outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
