package output

import (
	"github.com/temirov/stacrelease/internal/catalog"
	"github.com/temirov/stacrelease/internal/prune"
	"github.com/temirov/stacrelease/internal/services/blobsync"
	"github.com/temirov/stacrelease/internal/types"
)

// NewPruneOutput converts a prune report into its rendered form.
func NewPruneOutput(report prune.Report) *types.PruneOutput {
	result := &types.PruneOutput{
		Root:        report.Root,
		Retained:    report.Retained,
		DryRun:      report.DryRun,
		Collections: report.Collections,
		Deletions:   make([]types.DeletionOutput, 0, len(report.Deletions)),
	}
	for _, deletion := range report.Deletions {
		result.Deletions = append(result.Deletions, types.DeletionOutput{Collection: deletion.Collection, Path: deletion.Path})
	}
	for _, failure := range report.Failures {
		result.Failures = append(result.Failures, types.FailureOutput{
			Collection: failure.Collection,
			Path:       failure.Path,
			Reason:     failure.Reason,
		})
	}
	switch {
	case !report.Succeeded():
		result.Status = types.StatusPartial
	case report.DryRun:
		result.Status = types.StatusPlanned
	default:
		result.Status = types.StatusSucceeded
	}
	return result
}

// NewCatalogBuildOutput converts a catalog build report into its rendered form.
func NewCatalogBuildOutput(report catalog.BuildReport) *types.CatalogBuildOutput {
	result := &types.CatalogBuildOutput{
		CatalogPath: report.CatalogPath,
		Collections: append([]string{}, report.Collections...),
		Items:       report.Items,
	}
	for _, skipped := range report.Skipped {
		result.Skipped = append(result.Skipped, types.SkippedCollectionOutput{ID: skipped.ID, Reason: skipped.Reason})
	}
	return result
}

// NewCatalogValidationOutput converts a validation report into its rendered form.
func NewCatalogValidationOutput(report catalog.ValidationReport) *types.CatalogValidationOutput {
	result := &types.CatalogValidationOutput{
		Root:        report.Root,
		Status:      types.StatusSucceeded,
		Catalogs:    report.Catalogs,
		Collections: report.Collections,
		Items:       report.Items,
	}
	if !report.Valid() {
		result.Status = types.StatusFailed
	}
	for _, problem := range report.Problems {
		result.Problems = append(result.Problems, types.ProblemOutput{Path: problem.Path, Message: problem.Message})
	}
	return result
}

// NewSyncOutput describes one sync invocation and its outcome.
func NewSyncOutput(settings blobsync.Settings, status string) *types.SyncOutput {
	return &types.SyncOutput{
		Source:    settings.Source,
		Command:   settings.Command,
		Arguments: settings.Arguments(),
		Status:    status,
	}
}
