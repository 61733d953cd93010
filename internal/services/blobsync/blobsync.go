// Package blobsync invokes the external blob storage sync tool for a release directory.
// The tool owns authentication, transfer and retry; this package only builds the fixed argument
// list, clears lingering copy processes and fails loudly when the tool fails.
package blobsync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	// DefaultCommand is the Azure CLI executable.
	DefaultCommand = "az"
	// DefaultKillProcess names the copy engine that az storage blob sync drives.
	DefaultKillProcess = "azcopy"
	// ConcurrencyEnvironmentVariable tunes the copy engine; it is passed through untouched.
	ConcurrencyEnvironmentVariable = "AZCOPY_CONCURRENCY_VALUE"

	killCommand           = "pkill"
	noProcessesExitCode   = 1
	logSyncStarting       = "starting blob sync"
	logSyncFinished       = "blob sync finished"
	logKillingProcesses   = "stopping lingering copy processes"
	logNoProcesses        = "no lingering copy processes"
	logToolOutput         = "sync"
	logToolErrorOutput    = "sync stderr"
	errorSourceFormat     = "sync source %s: %w"
	errorMissingSetting   = "sync setting %s is required"
	errorStatSourceFormat = "stat sync source %s: %w"
)

var (
	// ErrSourceNotFound reports a local source directory that is missing or not a directory.
	ErrSourceNotFound = errors.New("sync source not found")
	// ErrInvalidSettings reports a settings value the external tool cannot be invoked with.
	ErrInvalidSettings = errors.New("invalid sync settings")
)

// Settings holds the fixed inputs of one sync invocation.
type Settings struct {
	Command           string
	AccountName       string
	Source            string
	Container         string
	Destination       string
	DeleteDestination bool
	Concurrency       string
	KillProcess       string
}

// Validate checks that every required value is present.
func (settings Settings) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{name: "command", value: settings.Command},
		{name: "account_name", value: settings.AccountName},
		{name: "source", value: settings.Source},
		{name: "container", value: settings.Container},
	}
	for _, setting := range required {
		if strings.TrimSpace(setting.value) == "" {
			return fmt.Errorf("%w: "+errorMissingSetting, ErrInvalidSettings, setting.name)
		}
	}
	return nil
}

// Arguments returns the argument list passed to the sync tool.
func (settings Settings) Arguments() []string {
	arguments := []string{
		"storage", "blob", "sync",
		"--account-name", settings.AccountName,
		"--source", settings.Source,
		"--container", settings.Container,
	}
	if destination := strings.Trim(settings.Destination, "/"); destination != "" {
		arguments = append(arguments, "--destination", destination)
	}
	arguments = append(arguments, "--delete-destination", strconv.FormatBool(settings.DeleteDestination))
	return arguments
}

// Environment returns the extra environment entries for the sync tool.
func (settings Settings) Environment() []string {
	concurrency := strings.TrimSpace(settings.Concurrency)
	if concurrency == "" {
		return nil
	}
	return []string{ConcurrencyEnvironmentVariable + "=" + concurrency}
}

// CommandError reports an external program that failed.
type CommandError struct {
	Name      string
	Arguments []string
	Cause     error
}

func (commandError *CommandError) Error() string {
	return fmt.Sprintf("%s %s: %v", commandError.Name, strings.Join(commandError.Arguments, " "), commandError.Cause)
}

func (commandError *CommandError) Unwrap() error {
	return commandError.Cause
}

// Syncer runs the sync tool with fixed settings.
type Syncer struct {
	settings Settings
	run      RunFunc
	logger   *zap.Logger
}

// NewSyncer constructs a Syncer. A nil run uses RunCommand; a nil logger discards output.
func NewSyncer(settings Settings, run RunFunc, logger *zap.Logger) *Syncer {
	if run == nil {
		run = RunCommand
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{settings: settings, run: run, logger: logger}
}

// EnsureNoRunningInstance stops lingering copy processes. Finding none is success, so the step
// can be repeated freely.
func (syncer *Syncer) EnsureNoRunningInstance(ctx context.Context) error {
	processName := strings.TrimSpace(syncer.settings.KillProcess)
	if processName == "" {
		return nil
	}
	syncer.logger.Info(logKillingProcesses, zap.String("process", processName))
	arguments := []string{"-x", processName}
	runError := syncer.run(ctx, Request{Name: killCommand, Arguments: arguments})
	if runError == nil {
		return nil
	}
	var exitCoder ExitCoder
	if errors.As(runError, &exitCoder) && exitCoder.ExitCode() == noProcessesExitCode {
		syncer.logger.Debug(logNoProcesses, zap.String("process", processName))
		return nil
	}
	return &CommandError{Name: killCommand, Arguments: arguments, Cause: runError}
}

// Sync clears lingering copy processes and runs the sync tool once. There is no retry.
func (syncer *Syncer) Sync(ctx context.Context) error {
	if validationError := syncer.settings.Validate(); validationError != nil {
		return validationError
	}
	absoluteSource, sourceError := checkSource(syncer.settings.Source)
	if sourceError != nil {
		return sourceError
	}
	if killError := syncer.EnsureNoRunningInstance(ctx); killError != nil {
		return killError
	}

	settings := syncer.settings
	settings.Source = absoluteSource
	arguments := settings.Arguments()
	syncer.logger.Info(logSyncStarting,
		zap.String("account", settings.AccountName),
		zap.String("source", settings.Source),
		zap.String("container", settings.Container),
		zap.String("destination", settings.Destination),
		zap.Bool("delete_destination", settings.DeleteDestination),
	)
	request := Request{
		Name:        settings.Command,
		Arguments:   arguments,
		Environment: settings.Environment(),
		StdoutLine: func(line string) {
			syncer.logger.Info(logToolOutput, zap.String("output", line))
		},
		StderrLine: func(line string) {
			syncer.logger.Warn(logToolErrorOutput, zap.String("output", line))
		},
	}
	if runError := syncer.run(ctx, request); runError != nil {
		return &CommandError{Name: settings.Command, Arguments: arguments, Cause: runError}
	}
	syncer.logger.Info(logSyncFinished, zap.String("source", settings.Source))
	return nil
}

func checkSource(source string) (string, error) {
	absoluteSource, absoluteError := filepath.Abs(source)
	if absoluteError != nil {
		return "", fmt.Errorf(errorSourceFormat, source, absoluteError)
	}
	sourceInfo, statError := os.Stat(absoluteSource)
	if statError != nil {
		if errors.Is(statError, fs.ErrNotExist) {
			return "", fmt.Errorf(errorSourceFormat, absoluteSource, ErrSourceNotFound)
		}
		return "", fmt.Errorf(errorStatSourceFormat, absoluteSource, statError)
	}
	if !sourceInfo.IsDir() {
		return "", fmt.Errorf(errorSourceFormat, absoluteSource, ErrSourceNotFound)
	}
	return absoluteSource, nil
}
