package blobsync

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"testing"
)

type exitStatusError struct {
	code int
}

func (statusError exitStatusError) Error() string { return "exit status" }

func (statusError exitStatusError) ExitCode() int { return statusError.code }

type recordingRunner struct {
	requests []Request
	results  map[string]error
}

func (runner *recordingRunner) run(_ context.Context, request Request) error {
	runner.requests = append(runner.requests, request)
	if runner.results == nil {
		return nil
	}
	return runner.results[request.Name]
}

func defaultSettings(source string) Settings {
	return Settings{
		Command:           DefaultCommand,
		AccountName:       "coclico",
		Source:            source,
		Container:         "stac",
		Destination:       "v1",
		DeleteDestination: true,
		KillProcess:       DefaultKillProcess,
	}
}

func TestSettingsArguments(t *testing.T) {
	testCases := []struct {
		name     string
		settings Settings
		expected []string
	}{
		{
			name:     "full",
			settings: defaultSettings("/release/v1"),
			expected: []string{
				"storage", "blob", "sync",
				"--account-name", "coclico",
				"--source", "/release/v1",
				"--container", "stac",
				"--destination", "v1",
				"--delete-destination", "true",
			},
		},
		{
			name: "container_root_without_delete",
			settings: Settings{
				Command:     DefaultCommand,
				AccountName: "coclico",
				Source:      "/release/v1",
				Container:   "stac",
				Destination: "/",
			},
			expected: []string{
				"storage", "blob", "sync",
				"--account-name", "coclico",
				"--source", "/release/v1",
				"--container", "stac",
				"--delete-destination", "false",
			},
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.settings.Arguments(); !reflect.DeepEqual(got, testCase.expected) {
				t.Fatalf("Arguments() = %v, want %v", got, testCase.expected)
			}
		})
	}
}

func TestSettingsEnvironment(t *testing.T) {
	settings := defaultSettings("/release")
	if environment := settings.Environment(); environment != nil {
		t.Fatalf("expected no environment without concurrency, got %v", environment)
	}
	settings.Concurrency = "32"
	expected := []string{ConcurrencyEnvironmentVariable + "=32"}
	if environment := settings.Environment(); !reflect.DeepEqual(environment, expected) {
		t.Fatalf("Environment() = %v, want %v", environment, expected)
	}
}

func TestSettingsValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Settings)
	}{
		{name: "missing_command", mutate: func(settings *Settings) { settings.Command = "" }},
		{name: "missing_account", mutate: func(settings *Settings) { settings.AccountName = " " }},
		{name: "missing_source", mutate: func(settings *Settings) { settings.Source = "" }},
		{name: "missing_container", mutate: func(settings *Settings) { settings.Container = "" }},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			settings := defaultSettings("/release")
			testCase.mutate(&settings)
			if err := settings.Validate(); !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("expected ErrInvalidSettings, got %v", err)
			}
		})
	}
}

func TestSyncRunsKillThenSync(t *testing.T) {
	source := t.TempDir()
	runner := &recordingRunner{results: map[string]error{killCommand: exitStatusError{code: noProcessesExitCode}}}
	settings := defaultSettings(source)
	settings.Concurrency = "16"

	if err := NewSyncer(settings, runner.run, nil).Sync(context.Background()); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if len(runner.requests) != 2 {
		t.Fatalf("expected two invocations, got %d", len(runner.requests))
	}
	killRequest := runner.requests[0]
	if killRequest.Name != killCommand || !reflect.DeepEqual(killRequest.Arguments, []string{"-x", DefaultKillProcess}) {
		t.Fatalf("unexpected kill request: %+v", killRequest)
	}
	syncRequest := runner.requests[1]
	if syncRequest.Name != DefaultCommand {
		t.Fatalf("expected %s, got %s", DefaultCommand, syncRequest.Name)
	}
	if !reflect.DeepEqual(syncRequest.Arguments, settings.Arguments()) {
		t.Fatalf("unexpected sync arguments: %v", syncRequest.Arguments)
	}
	if !reflect.DeepEqual(syncRequest.Environment, []string{ConcurrencyEnvironmentVariable + "=16"}) {
		t.Fatalf("unexpected environment: %v", syncRequest.Environment)
	}
}

func TestSyncSkipsKillWhenDisabled(t *testing.T) {
	runner := &recordingRunner{}
	settings := defaultSettings(t.TempDir())
	settings.KillProcess = ""
	if err := NewSyncer(settings, runner.run, nil).Sync(context.Background()); err != nil {
		t.Fatalf("Sync error: %v", err)
	}
	if len(runner.requests) != 1 || runner.requests[0].Name != DefaultCommand {
		t.Fatalf("expected only the sync invocation, got %+v", runner.requests)
	}
}

func TestSyncFailures(t *testing.T) {
	syncFailure := exitStatusError{code: 2}
	testCases := []struct {
		name           string
		source         func(t *testing.T) string
		results        map[string]error
		expectSentinel error
		expectCommand  string
		expectCalls    int
	}{
		{
			name:           "missing_source",
			source:         func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
			expectSentinel: ErrSourceNotFound,
			expectCalls:    0,
		},
		{
			name: "source_is_file",
			source: func(t *testing.T) string {
				filePath := filepath.Join(t.TempDir(), "catalog.json")
				if err := os.WriteFile(filePath, []byte("{}"), 0o600); err != nil {
					t.Fatalf("write: %v", err)
				}
				return filePath
			},
			expectSentinel: ErrSourceNotFound,
			expectCalls:    0,
		},
		{
			name:          "kill_fails",
			source:        func(t *testing.T) string { return t.TempDir() },
			results:       map[string]error{killCommand: exitStatusError{code: 3}},
			expectCommand: killCommand,
			expectCalls:   1,
		},
		{
			name:          "sync_fails",
			source:        func(t *testing.T) string { return t.TempDir() },
			results:       map[string]error{DefaultCommand: syncFailure},
			expectCommand: DefaultCommand,
			expectCalls:   2,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			runner := &recordingRunner{results: testCase.results}
			err := NewSyncer(defaultSettings(testCase.source(t)), runner.run, nil).Sync(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			if testCase.expectSentinel != nil && !errors.Is(err, testCase.expectSentinel) {
				t.Fatalf("expected %v, got %v", testCase.expectSentinel, err)
			}
			if testCase.expectCommand != "" {
				var commandError *CommandError
				if !errors.As(err, &commandError) {
					t.Fatalf("expected *CommandError, got %T", err)
				}
				if commandError.Name != testCase.expectCommand {
					t.Fatalf("expected failing command %s, got %s", testCase.expectCommand, commandError.Name)
				}
			}
			if len(runner.requests) != testCase.expectCalls {
				t.Fatalf("expected %d invocations, got %d", testCase.expectCalls, len(runner.requests))
			}
		})
	}
}

func TestRunCommandForwardsOutputAndEnvironment(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	var stdoutLines, stderrLines []string
	request := Request{
		Name:        "sh",
		Arguments:   []string{"-c", `echo "value=$` + ConcurrencyEnvironmentVariable + `"; echo warn 1>&2`},
		Environment: []string{ConcurrencyEnvironmentVariable + "=8"},
		StdoutLine:  func(line string) { stdoutLines = append(stdoutLines, line) },
		StderrLine:  func(line string) { stderrLines = append(stderrLines, line) },
	}
	if err := RunCommand(context.Background(), request); err != nil {
		t.Fatalf("RunCommand error: %v", err)
	}
	if !reflect.DeepEqual(stdoutLines, []string{"value=8"}) {
		t.Fatalf("stdout = %v", stdoutLines)
	}
	if !reflect.DeepEqual(stderrLines, []string{"warn"}) {
		t.Fatalf("stderr = %v", stderrLines)
	}
}

func TestRunCommandReportsExitCode(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	err := RunCommand(context.Background(), Request{Name: "sh", Arguments: []string{"-c", "exit 1"}})
	var exitCoder ExitCoder
	if !errors.As(err, &exitCoder) || exitCoder.ExitCode() != 1 {
		t.Fatalf("expected exit code 1, got %v", err)
	}
}
