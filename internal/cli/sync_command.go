package cli

import (
	"github.com/spf13/cobra"

	"github.com/temirov/stacrelease/internal/output"
	"github.com/temirov/stacrelease/internal/services/blobsync"
	"github.com/temirov/stacrelease/internal/types"
)

const (
	syncUse              = "sync [root]"
	syncAlias            = "s"
	syncShortDescription = "upload the release directory to blob storage (" + syncAlias + ")"
	syncLongDescription  = `Run "az storage blob sync" for the release root after stopping lingering azcopy processes.
Authentication, transfer and retries belong to the Azure CLI; a non-zero exit fails the command.
Set sync.concurrency (or --concurrency) to pass AZCOPY_CONCURRENCY_VALUE to the copy engine.`
	syncUsageExample = `  # Sync the configured release root with the configured account
  stacrelease sync

  # Sync into a staging path without deleting remote objects
  stacrelease sync release/v1 --destination staging/v1 --delete-destination=false`

	commandFlagName           = "command"
	accountNameFlagName       = "account-name"
	containerFlagName         = "container"
	destinationFlagName       = "destination"
	deleteDestinationFlagName = "delete-destination"
	concurrencyFlagName       = "concurrency"
	killProcessFlagName       = "kill-process"

	commandFlagDescription           = "sync executable"
	accountNameFlagDescription       = "storage account name"
	containerFlagDescription         = "destination container"
	destinationFlagDescription       = "destination path inside the container"
	deleteDestinationFlagDescription = "delete destination blobs missing from the source"
	concurrencyFlagDescription       = "value for " + blobsync.ConcurrencyEnvironmentVariable
	killProcessFlagDescription       = "process stopped before syncing; empty disables"
)

type syncOptions struct {
	command           string
	accountName       string
	container         string
	destination       string
	deleteDestination bool
	concurrency       string
	killProcess       string
	report            reportOptions
}

// createSyncCommand returns the sync subcommand.
func createSyncCommand(app *application) *cobra.Command {
	var options syncOptions

	syncCommand := &cobra.Command{
		Use:     syncUse,
		Aliases: []string{syncAlias},
		Short:   syncShortDescription,
		Long:    syncLongDescription,
		Example: syncUsageExample,
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
			settings := app.resolveSyncSettings(command, root, options)
			syncError := app.runSync(command, settings)
			status := types.StatusSucceeded
			if syncError != nil {
				status = types.StatusFailed
			}
			return app.emitWithError(command, reporting, output.NewSyncOutput(settings, status), syncError)
		},
	}

	flags := syncCommand.Flags()
	flags.StringVar(&options.command, commandFlagName, "", commandFlagDescription)
	flags.StringVar(&options.accountName, accountNameFlagName, "", accountNameFlagDescription)
	flags.StringVar(&options.container, containerFlagName, "", containerFlagDescription)
	flags.StringVar(&options.destination, destinationFlagName, "", destinationFlagDescription)
	registerBooleanFlag(flags, &options.deleteDestination, deleteDestinationFlagName, true, deleteDestinationFlagDescription)
	flags.StringVar(&options.concurrency, concurrencyFlagName, "", concurrencyFlagDescription)
	flags.StringVar(&options.killProcess, killProcessFlagName, "", killProcessFlagDescription)
	addReportFlags(syncCommand, &options.report)
	return syncCommand
}

// resolveSyncSettings starts from the configured settings and applies only the flags the user set.
func (app *application) resolveSyncSettings(command *cobra.Command, root string, options syncOptions) blobsync.Settings {
	settings := app.configuration.Sync.Settings(root)
	flags := command.Flags()
	if flags.Changed(commandFlagName) {
		settings.Command = options.command
	}
	if flags.Changed(accountNameFlagName) {
		settings.AccountName = options.accountName
	}
	if flags.Changed(containerFlagName) {
		settings.Container = options.container
	}
	if flags.Changed(destinationFlagName) {
		settings.Destination = options.destination
	}
	if flags.Changed(deleteDestinationFlagName) {
		settings.DeleteDestination = options.deleteDestination
	}
	if flags.Changed(concurrencyFlagName) {
		settings.Concurrency = options.concurrency
	}
	if flags.Changed(killProcessFlagName) {
		settings.KillProcess = options.killProcess
	}
	return settings
}

func (app *application) runSync(command *cobra.Command, settings blobsync.Settings) error {
	syncer := blobsync.NewSyncer(settings, app.dependencies.RunCommand, app.logger)
	startedAt := app.dependencies.Now()
	syncError := syncer.Sync(command.Context())
	app.metrics.ObserveSync(app.dependencies.Now().Sub(startedAt))
	return syncError
}
