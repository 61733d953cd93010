// Package config loads layered stacrelease configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/temirov/stacrelease/internal/catalog"
	"github.com/temirov/stacrelease/internal/prune"
	"github.com/temirov/stacrelease/internal/services/blobsync"
	"github.com/temirov/stacrelease/internal/types"
	"github.com/temirov/stacrelease/internal/utils"
)

const (
	// DefaultReleaseRoot is the release directory relative to the working directory.
	DefaultReleaseRoot = "release/v1"
	// DefaultAccountName is the storage account receiving the release.
	DefaultAccountName = "coclico"
	// DefaultContainer is the blob container receiving the release.
	DefaultContainer = "stac"
	// DefaultDestination is the path inside the container.
	DefaultDestination = "v1"
	// DefaultCatalogID is the id of the root catalog.
	DefaultCatalogID = "calkoen-phd-stac"
	// DefaultPublishedURL anchors the root catalog's self link.
	DefaultPublishedURL = "https://coclico.blob.core.windows.net/stac/v1/catalog.json"
	// DefaultCatalogTitle is the title of the root catalog.
	DefaultCatalogTitle = "Living by the Coast as Sea-level Rise is Accelerating"
	// DefaultCatalogLicense is the root catalog license.
	DefaultCatalogLicense = "various"
	// DefaultCatalogDescription is the description of the root catalog.
	DefaultCatalogDescription = "This SpatioTemporal Asset Catalog (STAC) contains coastal datasets produced or cataloged " +
		"during the PhD research of F.R. Calkoen (TU Delft / Deltares). The catalog includes data on " +
		"coastal classification, coastal exposure, and other related characteristics. " +
		"Following the conclusion of the CoCliCo project in September 2025, accessing the datasets " +
		"now requires an SAS token, which is available from Deltares upon reasonable request. Alternatively, " +
		"the datasets can be downloaded from Zenodo repositories. Please see associated publications for details."
)

// DefaultCatalogCollections lists the collections linked from the root catalog.
var DefaultCatalogCollections = []string{
	"gcts",
	"gctr",
	"global-coastal-typology",
	"shoreline-projections",
	"s2-l2a-composite",
	"coastal-grid",
	"shoreline-projections-edito",
	"coastal-zone",
	"shorelinemonitor-series",
	"shorelinemonitor-shorelines",
	"overture-buildings",
	"deltares-delta-dtm",
}

// DefaultCatalogKeywords are written into the root catalog.
var DefaultCatalogKeywords = []string{
	"coastal analytics",
	"coastal science",
	"coastal hazards",
	"coastal erosion",
	"coastal classification",
	"coastal typology",
	"slippy-map-tiles",
	"quadkeys",
	"climate change",
	"climate adaptation",
	"sea level rise",
	"sentinel",
	"transects",
	"satellite-derived-shorelines",
	"overture",
	"deltares",
	"coclico",
}

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds every configurable value of a release.
type ApplicationConfiguration struct {
	LogLevel string               `mapstructure:"log_level"`
	Format   string               `mapstructure:"format"`
	Copy     *bool                `mapstructure:"copy"`
	Release  ReleaseConfiguration `mapstructure:"release"`
	Prune    PruneConfiguration   `mapstructure:"prune"`
	Sync     SyncConfiguration    `mapstructure:"sync"`
	Catalog  CatalogConfiguration `mapstructure:"catalog"`
	Metrics  MetricsConfiguration `mapstructure:"metrics"`
}

// ReleaseConfiguration locates the release directory.
type ReleaseConfiguration struct {
	Root string `mapstructure:"root"`
}

// PruneConfiguration configures the prune step.
type PruneConfiguration struct {
	Retain []string `mapstructure:"retain"`
	DryRun *bool    `mapstructure:"dry_run"`
}

// SyncConfiguration configures the external blob sync tool.
type SyncConfiguration struct {
	Command           string  `mapstructure:"command"`
	AccountName       string  `mapstructure:"account_name"`
	Container         string  `mapstructure:"container"`
	Destination       *string `mapstructure:"destination"`
	DeleteDestination *bool   `mapstructure:"delete_destination"`
	Concurrency       string  `mapstructure:"concurrency"`
	KillProcess       *string `mapstructure:"kill_process"`
}

// CatalogConfiguration describes the root catalog.
type CatalogConfiguration struct {
	ID             string   `mapstructure:"id"`
	Title          string   `mapstructure:"title"`
	Description    string   `mapstructure:"description"`
	License        string   `mapstructure:"license"`
	StacVersion    string   `mapstructure:"stac_version"`
	PublishedURL   string   `mapstructure:"published_url"`
	ItemsDirectory string   `mapstructure:"items_directory"`
	Keywords       []string `mapstructure:"keywords"`
	Collections    []string `mapstructure:"collections"`
}

// MetricsConfiguration locates the Prometheus textfile written after each command.
type MetricsConfiguration struct {
	Textfile string `mapstructure:"textfile"`
}

// DefaultApplicationConfiguration returns the configuration used when no file overrides a value.
func DefaultApplicationConfiguration() ApplicationConfiguration {
	return ApplicationConfiguration{
		LogLevel: utils.DefaultLogLevel,
		Format:   types.FormatRaw,
		Copy:     boolPointer(false),
		Release:  ReleaseConfiguration{Root: DefaultReleaseRoot},
		Prune: PruneConfiguration{
			Retain: []string{prune.DefaultRetainedName},
			DryRun: boolPointer(false),
		},
		Sync: SyncConfiguration{
			Command:           blobsync.DefaultCommand,
			AccountName:       DefaultAccountName,
			Container:         DefaultContainer,
			Destination:       stringPointer(DefaultDestination),
			DeleteDestination: boolPointer(true),
			KillProcess:       stringPointer(blobsync.DefaultKillProcess),
		},
		Catalog: CatalogConfiguration{
			ID:             DefaultCatalogID,
			Title:          DefaultCatalogTitle,
			Description:    DefaultCatalogDescription,
			License:        DefaultCatalogLicense,
			StacVersion:    catalog.DefaultStacVersion,
			PublishedURL:   DefaultPublishedURL,
			ItemsDirectory: catalog.DefaultItemsDirectory,
			Keywords:       append([]string{}, DefaultCatalogKeywords...),
			Collections:    append([]string{}, DefaultCatalogCollections...),
		},
	}
}

// LoadApplicationConfiguration layers the global file and then the local (or explicit) file over
// the defaults.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	merged := DefaultApplicationConfiguration()

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath, false)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	localConfig, loadErr := loadConfigurationFromPath(localPath, options.ExplicitFilePath != "")
	if loadErr != nil {
		return ApplicationConfiguration{}, loadErr
	}
	merged = merged.Merge(localConfig)

	if !filepath.IsAbs(merged.Release.Root) {
		merged.Release.Root = filepath.Join(workingDirectory, merged.Release.Root)
	}
	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) string {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath
		}
		return filepath.Join(workingDirectory, explicitPath)
	}
	return filepath.Join(workingDirectory, utils.ConfigFileName)
}

// loadConfigurationFromPath reads one YAML file. A missing file is an empty configuration unless
// it was named explicitly.
func loadConfigurationFromPath(path string, required bool) (ApplicationConfiguration, error) {
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) && !required {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	if override.LogLevel != "" {
		result.LogLevel = override.LogLevel
	}
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.Copy != nil {
		result.Copy = cloneBool(override.Copy)
	}
	if override.Release.Root != "" {
		result.Release.Root = override.Release.Root
	}
	result.Prune = result.Prune.merge(override.Prune)
	result.Sync = result.Sync.merge(override.Sync)
	result.Catalog = result.Catalog.merge(override.Catalog)
	if override.Metrics.Textfile != "" {
		result.Metrics.Textfile = override.Metrics.Textfile
	}
	return result
}

func (config PruneConfiguration) merge(override PruneConfiguration) PruneConfiguration {
	result := config
	if retained := utils.DeduplicateNames(override.Retain); len(retained) > 0 {
		result.Retain = retained
	}
	if override.DryRun != nil {
		result.DryRun = cloneBool(override.DryRun)
	}
	return result
}

func (config SyncConfiguration) merge(override SyncConfiguration) SyncConfiguration {
	result := config
	if override.Command != "" {
		result.Command = override.Command
	}
	if override.AccountName != "" {
		result.AccountName = override.AccountName
	}
	if override.Container != "" {
		result.Container = override.Container
	}
	if override.Destination != nil {
		result.Destination = cloneString(override.Destination)
	}
	if override.DeleteDestination != nil {
		result.DeleteDestination = cloneBool(override.DeleteDestination)
	}
	if override.Concurrency != "" {
		result.Concurrency = override.Concurrency
	}
	if override.KillProcess != nil {
		result.KillProcess = cloneString(override.KillProcess)
	}
	return result
}

func (config CatalogConfiguration) merge(override CatalogConfiguration) CatalogConfiguration {
	result := config
	if override.ID != "" {
		result.ID = override.ID
	}
	if override.Title != "" {
		result.Title = override.Title
	}
	if override.Description != "" {
		result.Description = override.Description
	}
	if override.License != "" {
		result.License = override.License
	}
	if override.StacVersion != "" {
		result.StacVersion = override.StacVersion
	}
	if override.PublishedURL != "" {
		result.PublishedURL = override.PublishedURL
	}
	if override.ItemsDirectory != "" {
		result.ItemsDirectory = override.ItemsDirectory
	}
	if len(override.Keywords) > 0 {
		result.Keywords = append([]string{}, override.Keywords...)
	}
	if len(override.Collections) > 0 {
		result.Collections = utils.DeduplicateNames(override.Collections)
	}
	return result
}

// DryRunEnabled reports whether pruning only plans deletions.
func (config PruneConfiguration) DryRunEnabled() bool {
	return config.DryRun != nil && *config.DryRun
}

// Settings returns the sync tool settings for the given source directory.
func (config SyncConfiguration) Settings(source string) blobsync.Settings {
	settings := blobsync.Settings{
		Command:     config.Command,
		AccountName: config.AccountName,
		Source:      source,
		Container:   config.Container,
		Concurrency: strings.TrimSpace(config.Concurrency),
	}
	if config.Destination != nil {
		settings.Destination = *config.Destination
	}
	if config.DeleteDestination != nil {
		settings.DeleteDestination = *config.DeleteDestination
	}
	if config.KillProcess != nil {
		settings.KillProcess = *config.KillProcess
	}
	return settings
}

// Metadata returns the root catalog metadata.
func (config CatalogConfiguration) Metadata() catalog.Metadata {
	return catalog.Metadata{
		ID:             config.ID,
		Title:          config.Title,
		Description:    config.Description,
		License:        config.License,
		StacVersion:    config.StacVersion,
		PublishedURL:   config.PublishedURL,
		Keywords:       append([]string{}, config.Keywords...),
		Collections:    append([]string{}, config.Collections...),
		ItemsDirectory: config.ItemsDirectory,
	}
}

// TextfilePath returns the metrics textfile resolved against workingDirectory, or "" when metrics
// export is disabled.
func (config MetricsConfiguration) TextfilePath(workingDirectory string) string {
	path := strings.TrimSpace(config.Textfile)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workingDirectory, path)
}

// CopyEnabled reports whether rendered reports are copied to the clipboard.
func (config ApplicationConfiguration) CopyEnabled() bool {
	return config.Copy != nil && *config.Copy
}

func boolPointer(value bool) *bool {
	return &value
}

func stringPointer(value string) *string {
	return &value
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
