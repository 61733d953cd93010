package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/temirov/stacrelease/internal/utils"
)

// InitTarget identifies where configuration should be initialized.
type InitTarget string

const (
	// InitTargetLocal writes configuration into the working directory.
	InitTargetLocal InitTarget = "local"
	// InitTargetGlobal writes configuration into the global configuration directory.
	InitTargetGlobal InitTarget = "global"

	defaultConfigurationTemplate = `# stacrelease configuration
log_level: info
# Report format: raw, json or xml.
format: raw
copy: false
release:
  # Relative roots resolve against the working directory.
  root: release/v1
prune:
  # Child directories of each collection with these names are kept.
  retain:
    - items
  dry_run: false
sync:
  command: az
  account_name: coclico
  container: stac
  destination: v1
  delete_destination: true
  # Passed to the copy engine as AZCOPY_CONCURRENCY_VALUE when set.
  concurrency: ""
  # Lingering processes with this name are stopped before syncing; empty disables.
  kill_process: azcopy
catalog:
  id: calkoen-phd-stac
  title: Living by the Coast as Sea-level Rise is Accelerating
  license: various
  published_url: https://coclico.blob.core.windows.net/stac/v1/catalog.json
  items_directory: items
  collections:
    - gcts
    - gctr
    - global-coastal-typology
    - shoreline-projections
    - s2-l2a-composite
    - coastal-grid
    - shoreline-projections-edito
    - coastal-zone
    - shorelinemonitor-series
    - shorelinemonitor-shorelines
    - overture-buildings
    - deltares-delta-dtm
metrics:
  # Prometheus textfile rewritten after every command, e.g. for node_exporter; empty disables.
  textfile: ""
`
)

// ErrConfigurationExists reports an existing configuration file that init would overwrite.
var ErrConfigurationExists = errors.New("configuration file already exists")

// InitOptions controls how configuration initialization behaves.
type InitOptions struct {
	Target           InitTarget
	Force            bool
	WorkingDirectory string
}

// DefaultConfigurationTemplate returns the commented YAML written by init.
func DefaultConfigurationTemplate() string {
	return defaultConfigurationTemplate
}

// InitializeConfiguration writes the default configuration to the requested target and returns
// the path it wrote. An existing file is only replaced when Force is set.
func InitializeConfiguration(options InitOptions) (string, error) {
	destinationPath, resolveErr := resolveInitPath(options)
	if resolveErr != nil {
		return "", resolveErr
	}

	if _, err := os.Stat(destinationPath); err == nil {
		if !options.Force {
			return "", fmt.Errorf("%w at %s", ErrConfigurationExists, destinationPath)
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("inspect configuration path %s: %w", destinationPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(destinationPath), 0o755); err != nil {
		return "", fmt.Errorf("create configuration directory %s: %w", filepath.Dir(destinationPath), err)
	}
	if err := os.WriteFile(destinationPath, []byte(defaultConfigurationTemplate), 0o600); err != nil {
		return "", fmt.Errorf("write configuration to %s: %w", destinationPath, err)
	}
	return destinationPath, nil
}

func resolveInitPath(options InitOptions) (string, error) {
	switch options.Target {
	case InitTargetLocal, "":
		workingDirectory := options.WorkingDirectory
		if workingDirectory == "" {
			current, err := os.Getwd()
			if err != nil {
				return "", fmt.Errorf("determine working directory for configuration: %w", err)
			}
			workingDirectory = current
		}
		return filepath.Join(workingDirectory, utils.ConfigFileName), nil
	case InitTargetGlobal:
		homeDirectory, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory for configuration: %w", err)
		}
		return filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName), nil
	default:
		return "", fmt.Errorf("unsupported init target %q", options.Target)
	}
}
