package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/temirov/stacrelease/internal/config"
)

const (
	initUse              = "init"
	initShortDescription = "write a default configuration file"
	initLongDescription  = `Write the commented default configuration to ./stacrelease.yaml or, with --global,
to ~/.stacrelease/stacrelease.yaml. Existing files are kept unless --force is given.`

	globalFlagName        = "global"
	forceFlagName         = "force"
	globalFlagDescription = "write the global configuration file"
	forceFlagDescription  = "overwrite an existing configuration file"
	initWrittenTemplate   = "configuration written to %s\n"
)

// createInitCommand returns the init subcommand.
func createInitCommand(app *application) *cobra.Command {
	var global bool
	var force bool

	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Long:  initLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, initError := config.InitializeConfiguration(config.InitOptions{
				Target:           target,
				Force:            force,
				WorkingDirectory: app.workingDirectory,
			})
			if initError != nil {
				return initError
			}
			_, writeError := fmt.Fprintf(app.dependencies.Stdout, initWrittenTemplate, path)
			return writeError
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, false, forceFlagDescription)
	return initCommand
}
