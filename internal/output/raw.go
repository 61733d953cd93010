package output

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/temirov/stacrelease/internal/types"
)

const (
	treeBranchConnector = "├── "
	treeLastConnector   = "└── "
	treeBranchPadding   = "│   "
	treeLastPadding     = "    "

	pruneHeaderFormat         = "--- Pruned: %s (retained: %s) ---\n"
	pruneDryRunHeaderFormat   = "--- Dry run: %s (retained: %s) ---\n"
	deletedLabel              = "[Deleted] "
	plannedLabel              = "[Planned] "
	failedLabel               = "[Failed] "
	pruneSummaryFormat        = "Summary: %s, %d %s %s in %d %s\n"
	pruneFailureSummaryFormat = ", %d %s failed"
	nothingToPrune            = "(nothing to prune)"

	buildHeaderFormat   = "--- Catalog: %s ---\n"
	collectionLabel     = "[Collection] "
	skippedLabel        = "[Skipped] "
	buildSummaryFormat  = "Summary: %d %s, %d %s, %d skipped\n"
	validationHeader    = "--- Validation: %s ---\n"
	problemLabel        = "[Problem] "
	validationSummary   = "Summary: %s, %d %s checked, %d %s\n"
	syncHeaderFormat    = "--- Sync: %s ---\n"
	syncCommandFormat   = "Command: %s\n"
	syncSummaryFormat   = "Summary: %s\n"
	publishHeaderFormat = "--- Publish: %s ---\n"
	publishStepFormat   = "%s%s: %s"
	publishSummary      = "Summary: %s\n"
	stepDetailSeparator = " ("
	stepDetailClose     = ")"
	listSeparator       = ", "
	failureSeparator    = ": "
)

func plural(count int, singular, pluralForm string) string {
	if count == 1 {
		return singular
	}
	return pluralForm
}

func connectorFor(isLast bool) (string, string) {
	if isLast {
		return treeLastConnector, treeLastPadding
	}
	return treeBranchConnector, treeBranchPadding
}

type collectionLines struct {
	name  string
	lines []string
}

// groupPruneLines keeps collections in the order they were first reported.
func groupPruneLines(report *types.PruneOutput) []*collectionLines {
	var ordered []*collectionLines
	byName := map[string]*collectionLines{}
	lookup := func(name string) *collectionLines {
		group, exists := byName[name]
		if !exists {
			group = &collectionLines{name: name}
			byName[name] = group
			ordered = append(ordered, group)
		}
		return group
	}
	label := deletedLabel
	if report.DryRun {
		label = plannedLabel
	}
	for _, deletion := range report.Deletions {
		group := lookup(deletion.Collection)
		group.lines = append(group.lines, label+filepath.Base(deletion.Path))
	}
	for _, failure := range report.Failures {
		group := lookup(failure.Collection)
		group.lines = append(group.lines, failedLabel+filepath.Base(failure.Path)+failureSeparator+failure.Reason)
	}
	return ordered
}

// RenderPruneRaw renders the prune report as a tree of collections and removed directories
// followed by a summary line that tells success from partial failure.
func RenderPruneRaw(report *types.PruneOutput) string {
	var buffer bytes.Buffer
	headerFormat := pruneHeaderFormat
	if report.DryRun {
		headerFormat = pruneDryRunHeaderFormat
	}
	fmt.Fprintf(&buffer, headerFormat, report.Root, strings.Join(report.Retained, listSeparator))

	groups := groupPruneLines(report)
	if len(groups) == 0 {
		buffer.WriteString(nothingToPrune + "\n")
	}
	for groupIndex, group := range groups {
		connector, padding := connectorFor(groupIndex == len(groups)-1)
		buffer.WriteString(connector + group.name + "\n")
		for lineIndex, line := range group.lines {
			lineConnector, _ := connectorFor(lineIndex == len(group.lines)-1)
			buffer.WriteString(padding + lineConnector + line + "\n")
		}
	}

	verb := "deleted"
	if report.DryRun {
		verb = "to delete"
	}
	summary := fmt.Sprintf(pruneSummaryFormat,
		report.Status,
		len(report.Deletions), plural(len(report.Deletions), "directory", "directories"), verb,
		report.Collections, plural(report.Collections, "collection", "collections"),
	)
	if len(report.Failures) > 0 {
		summary = strings.TrimSuffix(summary, "\n") +
			fmt.Sprintf(pruneFailureSummaryFormat, len(report.Failures), plural(len(report.Failures), "collection", "collections")) +
			"\n"
	}
	buffer.WriteString(summary)
	return buffer.String()
}

// RenderCatalogBuildRaw lists the linked and skipped collections of a catalog build.
func RenderCatalogBuildRaw(report *types.CatalogBuildOutput) string {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, buildHeaderFormat, report.CatalogPath)
	var lines []string
	for _, collection := range report.Collections {
		lines = append(lines, collectionLabel+collection)
	}
	for _, skipped := range report.Skipped {
		lines = append(lines, skippedLabel+skipped.ID+failureSeparator+skipped.Reason)
	}
	for index, line := range lines {
		connector, _ := connectorFor(index == len(lines)-1)
		buffer.WriteString(connector + line + "\n")
	}
	fmt.Fprintf(&buffer, buildSummaryFormat,
		len(report.Collections), plural(len(report.Collections), "collection", "collections"),
		report.Items, plural(report.Items, "item", "items"),
		len(report.Skipped),
	)
	return buffer.String()
}

// RenderCatalogValidationRaw lists validation problems and a summary line.
func RenderCatalogValidationRaw(report *types.CatalogValidationOutput) string {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, validationHeader, report.Root)
	for index, problem := range report.Problems {
		connector, _ := connectorFor(index == len(report.Problems)-1)
		buffer.WriteString(connector + problemLabel + problem.Path + failureSeparator + problem.Message + "\n")
	}
	checked := report.Catalogs + report.Collections + report.Items
	fmt.Fprintf(&buffer, validationSummary,
		report.Status,
		checked, plural(checked, "object", "objects"),
		len(report.Problems), plural(len(report.Problems), "problem", "problems"),
	)
	return buffer.String()
}

// RenderSyncRaw shows the external command that ran and its outcome.
func RenderSyncRaw(report *types.SyncOutput) string {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, syncHeaderFormat, report.Source)
	fmt.Fprintf(&buffer, syncCommandFormat, strings.Join(append([]string{report.Command}, report.Arguments...), " "))
	fmt.Fprintf(&buffer, syncSummaryFormat, report.Status)
	return buffer.String()
}

// RenderPublishRaw lists the pipeline steps and then each step's own report.
func RenderPublishRaw(report *types.PublishOutput) string {
	var buffer bytes.Buffer
	fmt.Fprintf(&buffer, publishHeaderFormat, report.Root)
	for index, step := range report.Steps {
		connector, _ := connectorFor(index == len(report.Steps)-1)
		line := fmt.Sprintf(publishStepFormat, connector, step.Name, step.Status)
		if step.Detail != "" {
			line += stepDetailSeparator + step.Detail + stepDetailClose
		}
		buffer.WriteString(line + "\n")
	}
	if report.Build != nil {
		buffer.WriteString("\n" + RenderCatalogBuildRaw(report.Build))
	}
	if report.Prune != nil {
		buffer.WriteString("\n" + RenderPruneRaw(report.Prune))
	}
	if report.Validation != nil {
		buffer.WriteString("\n" + RenderCatalogValidationRaw(report.Validation))
	}
	if report.Sync != nil {
		buffer.WriteString("\n" + RenderSyncRaw(report.Sync))
	}
	fmt.Fprintf(&buffer, "\n"+publishSummary, report.Status)
	return buffer.String()
}
