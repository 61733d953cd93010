package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/stacrelease/internal/output"
	"github.com/temirov/stacrelease/internal/types"
)

const (
	publishUse              = "publish [root]"
	publishShortDescription = "build, prune, validate and sync the release"
	publishLongDescription  = `Run the whole release over one root: build the catalog, prune stray collection
subdirectories, validate the catalog and sync the directory to blob storage.
The pipeline stops at the first failing step. --skip-sync stops after validation; --dry-run only
plans the prune and never syncs.`
	publishUsageExample = `  # Publish the configured release
  stacrelease publish

  # Prepare and check a release locally
  stacrelease publish release/v1 --skip-sync`

	skipSyncFlagName             = "skip-sync"
	skipSyncFlagDescription      = "stop after validation"
	publishDryRunFlagDescription = "plan the prune step and skip sync"
	skipReasonFlag               = "--" + skipSyncFlagName
	skipReasonDryRun             = "--" + dryRunFlagName
	skipReasonEarlierStepFailed  = "earlier step failed"
	logPublishStep               = "publish step"
	logPublishFinished           = "publish finished"
	publishStepCount             = 4
)

type publishOptions struct {
	skipSync bool
	dryRun   bool
	report   reportOptions
}

type publishPipeline struct {
	app    *application
	result *types.PublishOutput
}

func (pipeline *publishPipeline) record(name, status, detail string) {
	pipeline.result.Steps = append(pipeline.result.Steps, types.StepOutput{Name: name, Status: status, Detail: detail})
	pipeline.app.logger.Info(logPublishStep, zap.String("step", name), zap.String("status", status))
}

func (pipeline *publishPipeline) skipRemaining(names []string, reason string) {
	for _, name := range names {
		pipeline.record(name, types.StatusSkipped, reason)
	}
}

// createPublishCommand returns the publish subcommand.
func createPublishCommand(app *application) *cobra.Command {
	var options publishOptions

	publishCommand := &cobra.Command{
		Use:     publishUse,
		Short:   publishShortDescription,
		Long:    publishLongDescription,
		Example: publishUsageExample,
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
			result, publishError := app.runPublish(command, root, options)
			return app.emitWithError(command, reporting, result, publishError)
		},
	}

	registerBooleanFlag(publishCommand.Flags(), &options.skipSync, skipSyncFlagName, false, skipSyncFlagDescription)
	registerBooleanFlag(publishCommand.Flags(), &options.dryRun, dryRunFlagName, false, publishDryRunFlagDescription)
	addReportFlags(publishCommand, &options.report)
	return publishCommand
}

// runPublish executes build, prune, validate and sync in order and stops at the first failure.
func (app *application) runPublish(command *cobra.Command, root string, options publishOptions) (*types.PublishOutput, error) {
	pipeline := &publishPipeline{
		app:    app,
		result: &types.PublishOutput{
			Root:   root,
			Status: types.StatusFailed,
			Steps:  make([]types.StepOutput, 0, publishStepCount),
		},
	}
	remaining := []string{types.CommandPrune, types.CommandCatalogValidate, types.CommandSync}

	buildReport, buildError := app.runCatalogBuild(command, root)
	if buildReport.CatalogPath != "" {
		pipeline.result.Build = output.NewCatalogBuildOutput(buildReport)
	}
	if buildError != nil {
		pipeline.record(types.CommandCatalogBuild, types.StatusFailed, buildError.Error())
		pipeline.skipRemaining(remaining, skipReasonEarlierStepFailed)
		return pipeline.result, buildError
	}
	pipeline.record(types.CommandCatalogBuild, types.StatusSucceeded, "")
	remaining = remaining[1:]

	pruneSettings := app.resolvePruneOptions(command, pruneOptions{dryRun: options.dryRun})
	pruneReport, pruneError := app.runPrune(command, root, pruneSettings)
	if pruneReport.Root != "" {
		pipeline.result.Prune = output.NewPruneOutput(pruneReport)
	}
	if pruneError != nil {
		pipeline.record(types.CommandPrune, types.StatusFailed, pruneError.Error())
		pipeline.skipRemaining(remaining, skipReasonEarlierStepFailed)
		return pipeline.result, pruneError
	}
	pruneStatus := types.StatusSucceeded
	if pruneSettings.dryRun {
		pruneStatus = types.StatusPlanned
	}
	pipeline.record(types.CommandPrune, pruneStatus, "")
	remaining = remaining[1:]

	validationReport, validationError := app.runCatalogValidate(command, catalogFilePath(root))
	pipeline.result.Validation = output.NewCatalogValidationOutput(validationReport)
	if validationError != nil {
		pipeline.record(types.CommandCatalogValidate, types.StatusFailed, validationError.Error())
		pipeline.skipRemaining(remaining, skipReasonEarlierStepFailed)
		return pipeline.result, validationError
	}
	pipeline.record(types.CommandCatalogValidate, types.StatusSucceeded, "")

	switch {
	case options.skipSync:
		pipeline.record(types.CommandSync, types.StatusSkipped, skipReasonFlag)
	case pruneSettings.dryRun:
		pipeline.record(types.CommandSync, types.StatusSkipped, skipReasonDryRun)
	default:
		settings := app.configuration.Sync.Settings(root)
		syncError := app.runSync(command, settings)
		if syncError != nil {
			pipeline.result.Sync = output.NewSyncOutput(settings, types.StatusFailed)
			pipeline.record(types.CommandSync, types.StatusFailed, syncError.Error())
			return pipeline.result, syncError
		}
		pipeline.result.Sync = output.NewSyncOutput(settings, types.StatusSucceeded)
		pipeline.record(types.CommandSync, types.StatusSucceeded, "")
	}

	pipeline.result.Status = types.StatusSucceeded
	app.logger.Info(logPublishFinished, zap.String("root", root))
	return pipeline.result, nil
}
