// Package types defines every cross-package data structure rendered by the stacrelease CLI.
package types

import "encoding/xml"

const (
	CommandPrune           = "prune"
	CommandSync            = "sync"
	CommandPublish         = "publish"
	CommandCatalogBuild    = "build"
	CommandCatalogValidate = "validate"

	FormatRaw  = "raw"
	FormatJSON = "json"
	FormatXML  = "xml"

	StatusSucceeded     = "succeeded"
	StatusPartial       = "partial"
	StatusPlanned       = "planned"
	StatusFailed        = "failed"
	StatusSkipped       = "skipped"
	StatusNotApplicable = "n/a"
)

// DeletionOutput is one directory removed (or planned for removal) by the prune command.
type DeletionOutput struct {
	Collection string `json:"collection" xml:"collection"`
	Path       string `json:"path" xml:"path"`
}

// FailureOutput is one collection the prune command could not finish.
type FailureOutput struct {
	Collection string `json:"collection" xml:"collection"`
	Path       string `json:"path" xml:"path"`
	Reason     string `json:"reason" xml:"reason"`
}

// PruneOutput is the result of the prune command.
type PruneOutput struct {
	XMLName     xml.Name         `json:"-" xml:"prune"`
	Root        string           `json:"root" xml:"root"`
	Retained    []string         `json:"retained" xml:"retained>name"`
	DryRun      bool             `json:"dryRun" xml:"dryRun"`
	Status      string           `json:"status" xml:"status"`
	Collections int              `json:"collections" xml:"collections"`
	Deletions   []DeletionOutput `json:"deletions" xml:"deletions>deletion"`
	Failures    []FailureOutput  `json:"failures,omitempty" xml:"failures>failure,omitempty"`
}

// SkippedCollectionOutput is a configured collection left out of the catalog.
type SkippedCollectionOutput struct {
	ID     string `json:"id" xml:"id"`
	Reason string `json:"reason" xml:"reason"`
}

// CatalogBuildOutput is the result of the catalog build command.
type CatalogBuildOutput struct {
	XMLName     xml.Name                  `json:"-" xml:"catalogBuild"`
	CatalogPath string                    `json:"catalogPath" xml:"catalogPath"`
	Collections []string                  `json:"collections" xml:"collections>collection"`
	Items       int                       `json:"items" xml:"items"`
	Skipped     []SkippedCollectionOutput `json:"skipped,omitempty" xml:"skipped>collection,omitempty"`
}

// ProblemOutput is one validation finding.
type ProblemOutput struct {
	Path    string `json:"path" xml:"path"`
	Message string `json:"message" xml:"message"`
}

// CatalogValidationOutput is the result of the catalog validate command.
type CatalogValidationOutput struct {
	XMLName     xml.Name        `json:"-" xml:"catalogValidation"`
	Root        string          `json:"root" xml:"root"`
	Status      string          `json:"status" xml:"status"`
	Catalogs    int             `json:"catalogs" xml:"catalogs"`
	Collections int             `json:"collections" xml:"collections"`
	Items       int             `json:"items" xml:"items"`
	Problems    []ProblemOutput `json:"problems,omitempty" xml:"problems>problem,omitempty"`
}

// SyncOutput is the result of the sync command.
type SyncOutput struct {
	XMLName   xml.Name `json:"-" xml:"sync"`
	Source    string   `json:"source" xml:"source"`
	Command   string   `json:"command" xml:"command"`
	Arguments []string `json:"arguments" xml:"arguments>argument"`
	Status    string   `json:"status" xml:"status"`
}

// StepOutput is one step of the publish pipeline.
type StepOutput struct {
	Name   string `json:"name" xml:"name"`
	Status string `json:"status" xml:"status"`
	Detail string `json:"detail,omitempty" xml:"detail,omitempty"`
}

// PublishOutput is the result of the publish command.
type PublishOutput struct {
	XMLName    xml.Name                 `json:"-" xml:"publish"`
	Root       string                   `json:"root" xml:"root"`
	Status     string                   `json:"status" xml:"status"`
	Steps      []StepOutput             `json:"steps" xml:"steps>step"`
	Build      *CatalogBuildOutput      `json:"build,omitempty" xml:"catalogBuild,omitempty"`
	Prune      *PruneOutput             `json:"prune,omitempty" xml:"prune,omitempty"`
	Validation *CatalogValidationOutput `json:"validation,omitempty" xml:"catalogValidation,omitempty"`
	Sync       *SyncOutput              `json:"sync,omitempty" xml:"sync,omitempty"`
}
