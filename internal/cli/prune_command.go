package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/stacrelease/internal/output"
	"github.com/temirov/stacrelease/internal/prune"
)

const (
	pruneUse              = "prune [root]"
	pruneAlias            = "p"
	pruneShortDescription = "remove stray collection subdirectories (" + pruneAlias + ")"
	pruneLongDescription  = `Delete every immediate child directory of each collection under the release root
whose name is not retained. Files and symbolic links are never touched.
The root defaults to release.root from the configuration.`
	pruneUsageExample = `  # Keep only the items directory of every collection
  stacrelease prune release/v1

  # Preview deletions as JSON, keeping items and thumbnails
  stacrelease prune --dry-run --retain items --retain thumbnails --format json`

	retainFlagName        = "retain"
	dryRunFlagName        = "dry-run"
	retainFlagDescription = "directory name to keep in every collection (repeatable)"
	dryRunFlagDescription = "report what would be deleted without deleting"

	logPruneInterrupted = "prune interrupted"
	logPruneFailed      = "prune finished with failures"
)

type pruneOptions struct {
	retained []string
	dryRun   bool
	report   reportOptions
}

// createPruneCommand returns the prune subcommand.
func createPruneCommand(app *application) *cobra.Command {
	var options pruneOptions

	pruneCommand := &cobra.Command{
		Use:     pruneUse,
		Aliases: []string{pruneAlias},
		Short:   pruneShortDescription,
		Long:    pruneLongDescription,
		Example: pruneUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			root, rootError := app.releaseRoot(arguments)
			if rootError != nil {
				return rootError
			}
			reporting, reportError := app.resolveReportOptions(command, options.report)
			if reportError != nil {
				return reportError
			}
			resolved := app.resolvePruneOptions(command, options)
			report, pruneError := app.runPrune(command, root, resolved)
			if report.Root == "" {
				return pruneError
			}
			return app.emitWithError(command, reporting, output.NewPruneOutput(report), pruneError)
		},
	}

	pruneCommand.Flags().StringArrayVar(&options.retained, retainFlagName, nil, retainFlagDescription)
	registerBooleanFlag(pruneCommand.Flags(), &options.dryRun, dryRunFlagName, false, dryRunFlagDescription)
	addReportFlags(pruneCommand, &options.report)
	return pruneCommand
}

// resolvePruneOptions applies configuration values for flags the user did not set.
func (app *application) resolvePruneOptions(command *cobra.Command, options pruneOptions) pruneOptions {
	resolved := options
	if !command.Flags().Changed(retainFlagName) {
		resolved.retained = app.configuration.Prune.Retain
	}
	if !command.Flags().Changed(dryRunFlagName) {
		resolved.dryRun = app.configuration.Prune.DryRunEnabled()
	}
	return resolved
}

func (app *application) runPrune(command *cobra.Command, root string, options pruneOptions) (prune.Report, error) {
	report, pruneError := prune.Prune(command.Context(), root, options.retained, prune.Options{
		DryRun: options.dryRun,
		Logger: app.logger,
	})
	if report.Root != "" {
		app.metrics.ObservePrune(report)
	}
	switch {
	case pruneError == nil:
	case isCancellation(pruneError):
		app.logger.Warn(logPruneInterrupted, zap.Int("deleted", len(report.Deletions)))
	case report.Root != "":
		app.logger.Error(logPruneFailed, zap.Int("deleted", len(report.Deletions)), zap.Int("failures", len(report.Failures)))
	}
	return report, pruneError
}
