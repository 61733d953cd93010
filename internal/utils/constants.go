package utils

// LoggerInitializationFailedMessageFormat reports a logger construction failure.
const LoggerInitializationFailedMessageFormat = "failed to initialize logger: %w"

// ApplicationExecutionFailedMessage prefixes the fatal log line emitted when a command fails.
const ApplicationExecutionFailedMessage = "stacrelease failed"

// Configuration discovery constants.
const (
	// ConfigFileName is the configuration file name used both globally and locally.
	ConfigFileName = "stacrelease.yaml"
	// GlobalConfigDirectoryName is the directory under the user's home holding global configuration.
	GlobalConfigDirectoryName = ".stacrelease"
)

// GitDirectoryName is the name of the Git repository directory.
const GitDirectoryName = ".git"
