// Package cli provides the command line interface.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/stacrelease/internal/config"
	"github.com/temirov/stacrelease/internal/metrics"
	"github.com/temirov/stacrelease/internal/output"
	"github.com/temirov/stacrelease/internal/services/blobsync"
	"github.com/temirov/stacrelease/internal/services/clipboard"
	"github.com/temirov/stacrelease/internal/types"
	"github.com/temirov/stacrelease/internal/utils"
)

const (
	configFlagName       = "config"
	logLevelFlagName     = "log-level"
	versionFlagName      = "version"
	formatFlagName       = "format"
	copyFlagName         = "copy"
	metricsFileFlagName  = "metrics-file"
	versionTemplate      = "stacrelease version: %s\n"
	rootUse              = "stacrelease"
	rootShortDescription = "stacrelease command line interface"
	rootLongDescription  = `stacrelease prepares a STAC release directory and publishes it.
It builds the catalog, prunes stray directories left next to each collection's items directory,
validates the result and synchronizes the release to blob storage through the Azure CLI.
Use --format to select raw, json, or xml reports and --copy to also place the report on the clipboard.`

	configFlagDescription   = "configuration file (default ./" + utils.ConfigFileName + ")"
	logLevelFlagDescription = "log level: debug, info, warn, error"
	versionFlagDescription  = "display application version"
	formatFlagDescription   = "report format: raw, json, or xml"
	copyFlagDescription     = "copy the rendered report to the clipboard"
	metricsFlagDescription  = "write run metrics to this Prometheus textfile"

	invalidFormatMessage        = "invalid format value '%s'"
	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	loadConfigurationFormat     = "load configuration: %w"
	createLoggerFormat          = "create logger: %w"
	copyReportFailedFormat      = "copy report to clipboard: %w"
	tooManyArgumentsFormat      = "accepts at most %d argument(s), received %d"

	logMetricsWritten     = "metrics written"
	logMetricsWriteFailed = "metrics textfile not written"
)

// Dependencies are the collaborators the commands reach outside the process through.
type Dependencies struct {
	Stdout           io.Writer
	RunCommand       blobsync.RunFunc
	Copier           clipboard.Copier
	NewLogger        func(levelName string) (*zap.Logger, error)
	Now              func() time.Time
	WorkingDirectory string
}

func (dependencies Dependencies) withDefaults() Dependencies {
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	if dependencies.RunCommand == nil {
		dependencies.RunCommand = blobsync.RunCommand
	}
	if dependencies.Copier == nil {
		dependencies.Copier = clipboard.NewService()
	}
	if dependencies.NewLogger == nil {
		dependencies.NewLogger = utils.NewLeveledLogger
	}
	if dependencies.Now == nil {
		dependencies.Now = time.Now
	}
	return dependencies
}

// Execute runs the stacrelease application with process defaults.
func Execute(ctx context.Context) error {
	return Run(ctx, Dependencies{}, os.Args[1:])
}

// Run executes the command line given by arguments.
func Run(ctx context.Context, dependencies Dependencies, arguments []string) error {
	rootCommand := NewRootCommand(dependencies)
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, arguments))
	return rootCommand.ExecuteContext(ctx)
}

// application carries state shared by every subcommand of one invocation.
type application struct {
	dependencies      Dependencies
	configurationPath string
	logLevel          string
	metricsPath       string
	showVersion       bool
	workingDirectory  string
	configuration     config.ApplicationConfiguration
	logger            *zap.Logger
	metrics           *metrics.Recorder
}

// NewRootCommand builds the root Cobra command.
func NewRootCommand(dependencies Dependencies) *cobra.Command {
	app := &application{
		dependencies: dependencies.withDefaults(),
		logger:       zap.NewNop(),
		metrics:      metrics.NewRecorder(),
	}

	rootCommand := &cobra.Command{
		Use:           rootUse,
		Short:         rootShortDescription,
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			if app.showVersion {
				fmt.Fprintf(app.dependencies.Stdout, versionTemplate, utils.GetApplicationVersion())
				os.Exit(0)
			}
			return app.prepare(command)
		},
		PersistentPostRun: func(command *cobra.Command, arguments []string) {
			_ = app.logger.Sync()
		},
	}
	rootCommand.SetOut(app.dependencies.Stdout)
	rootCommand.PersistentFlags().StringVar(&app.configurationPath, configFlagName, "", configFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.logLevel, logLevelFlagName, utils.DefaultLogLevel, logLevelFlagDescription)
	rootCommand.PersistentFlags().StringVar(&app.metricsPath, metricsFileFlagName, "", metricsFlagDescription)
	rootCommand.PersistentFlags().BoolVar(&app.showVersion, versionFlagName, false, versionFlagDescription)
	rootCommand.AddCommand(
		createPruneCommand(app),
		createSyncCommand(app),
		createCatalogCommand(app),
		createPublishCommand(app),
		createInitCommand(app),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

// prepare loads configuration and builds the logger. The init command must work even when an
// existing configuration file is broken, so it skips loading.
func (app *application) prepare(command *cobra.Command) error {
	workingDirectory := app.dependencies.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, workingDirectoryError := os.Getwd()
		if workingDirectoryError != nil {
			return fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
		}
		workingDirectory = currentDirectory
	}
	app.workingDirectory = workingDirectory

	app.configuration = config.DefaultApplicationConfiguration()
	if command.Name() != initUse {
		loaded, loadError := config.LoadApplicationConfiguration(config.LoadOptions{
			WorkingDirectory: workingDirectory,
			ExplicitFilePath: app.configurationPath,
		})
		if loadError != nil {
			return fmt.Errorf(loadConfigurationFormat, loadError)
		}
		app.configuration = loaded
	}
	if flag := command.Flags().Lookup(metricsFileFlagName); flag != nil && flag.Changed {
		app.configuration.Metrics.Textfile = app.metricsPath
	}

	levelName := app.configuration.LogLevel
	if flag := command.Flags().Lookup(logLevelFlagName); flag != nil && flag.Changed {
		levelName = app.logLevel
	}
	logger, loggerError := app.dependencies.NewLogger(levelName)
	if loggerError != nil {
		return fmt.Errorf(createLoggerFormat, loggerError)
	}
	app.logger = logger
	return nil
}

// releaseRoot returns the positional root when given, otherwise the configured one.
func (app *application) releaseRoot(arguments []string) (string, error) {
	if len(arguments) > 1 {
		return "", fmt.Errorf(tooManyArgumentsFormat, 1, len(arguments))
	}
	if len(arguments) == 1 && strings.TrimSpace(arguments[0]) != "" {
		if filepath.IsAbs(arguments[0]) {
			return filepath.Clean(arguments[0]), nil
		}
		return filepath.Join(app.workingDirectory, arguments[0]), nil
	}
	return app.configuration.Release.Root, nil
}

// reportOptions holds the flags shared by every reporting command.
type reportOptions struct {
	format string
	copy   bool
}

func addReportFlags(command *cobra.Command, options *reportOptions) {
	command.Flags().StringVar(&options.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerBooleanFlag(command.Flags(), &options.copy, copyFlagName, false, copyFlagDescription)
}

func isSupportedFormat(format string) bool {
	switch format {
	case types.FormatRaw, types.FormatJSON, types.FormatXML:
		return true
	default:
		return false
	}
}

// resolveReportOptions applies configuration values for flags the user did not set.
func (app *application) resolveReportOptions(command *cobra.Command, options reportOptions) (reportOptions, error) {
	resolved := options
	if !command.Flags().Changed(formatFlagName) && app.configuration.Format != "" {
		resolved.format = app.configuration.Format
	}
	if !command.Flags().Changed(copyFlagName) {
		resolved.copy = app.configuration.CopyEnabled()
	}
	resolved.format = strings.ToLower(strings.TrimSpace(resolved.format))
	if !isSupportedFormat(resolved.format) {
		return resolved, fmt.Errorf(invalidFormatMessage, resolved.format)
	}
	return resolved, nil
}

// emit renders report to stdout and, when requested, to the clipboard.
func (app *application) emit(options reportOptions, report any) error {
	var buffer bytes.Buffer
	if renderError := output.Render(&buffer, options.format, report); renderError != nil {
		return renderError
	}
	if _, writeError := app.dependencies.Stdout.Write(buffer.Bytes()); writeError != nil {
		return writeError
	}
	if options.copy {
		if copyError := app.dependencies.Copier.Copy(buffer.String()); copyError != nil {
			return fmt.Errorf(copyReportFailedFormat, copyError)
		}
	}
	return nil
}

// emitWithError renders a report that accompanies a failure; the command failure wins over a
// rendering failure.
func (app *application) emitWithError(command *cobra.Command, options reportOptions, report any, commandError error) error {
	app.exportMetrics(command, commandError)
	emitError := app.emit(options, report)
	if commandError != nil {
		return commandError
	}
	return emitError
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// exportMetrics stamps the command outcome and rewrites the configured textfile. A failed write is
// logged and never fails the command.
func (app *application) exportMetrics(command *cobra.Command, commandError error) {
	path := app.configuration.Metrics.TextfilePath(app.workingDirectory)
	if path == "" {
		return
	}
	status := types.StatusSucceeded
	if commandError != nil {
		status = types.StatusFailed
	}
	commandName := strings.TrimPrefix(command.CommandPath(), rootUse+" ")
	app.metrics.MarkRun(commandName, status, app.dependencies.Now())
	if writeError := app.metrics.WriteTextfile(path); writeError != nil {
		app.logger.Warn(logMetricsWriteFailed, zap.String("path", path), zap.Error(writeError))
		return
	}
	app.logger.Debug(logMetricsWritten, zap.String("path", path))
}
