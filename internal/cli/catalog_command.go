package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/temirov/stacrelease/internal/catalog"
	"github.com/temirov/stacrelease/internal/output"
)

const (
	catalogUse              = "catalog"
	catalogAlias            = "c"
	catalogShortDescription = "build or validate the STAC catalog (" + catalogAlias + ")"
	catalogLongDescription  = `Build the root catalog over the release directory or validate an existing one.`

	catalogBuildUse              = "build [root]"
	catalogBuildShortDescription = "write catalog.json and move items into each collection's items directory"
	catalogBuildLongDescription  = `Read every configured collection under the release root, move its items into
<collection>/items/<item-id>.json, make hierarchy links relative and write catalog.json with an
absolute self link at catalog.published_url. Missing collections are skipped with a warning.
Run prune afterwards to remove the directories the items were moved out of.`
	catalogBuildUsageExample = `  # Build the catalog for the configured release root
  stacrelease catalog build

  # Build under another root and print the report as JSON
  stacrelease catalog build /data/release/v1 --format json`

	catalogValidateUse              = "validate [root|catalog.json]"
	catalogValidateShortDescription = "check catalog, collections and items for structural problems"
	catalogValidateLongDescription  = `Walk the catalog through its local child and item links and report every object
that lacks required STAC fields. Remote links are not followed.`
	catalogValidateUsageExample = `  # Validate the configured release
  stacrelease catalog validate

  # Validate a specific catalog file
  stacrelease catalog validate release/v1/catalog.json`
)

// createCatalogCommand returns the catalog command group.
func createCatalogCommand(app *application) *cobra.Command {
	catalogCommand := &cobra.Command{
		Use:     catalogUse,
		Aliases: []string{catalogAlias},
		Short:   catalogShortDescription,
		Long:    catalogLongDescription,
		Args:    cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	catalogCommand.AddCommand(
		createCatalogBuildCommand(app),
		createCatalogValidateCommand(app),
	)
	return catalogCommand
}

func createCatalogBuildCommand(app *application) *cobra.Command {
	var reporting reportOptions

	buildCommand := &cobra.Command{
		Use:     catalogBuildUse,
		Short:   catalogBuildShortDescription,
		Long:    catalogBuildLongDescription,
		Example: catalogBuildUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			root, rootError := app.releaseRoot(arguments)
			if rootError != nil {
				return rootError
			}
			resolved, reportError := app.resolveReportOptions(command, reporting)
			if reportError != nil {
				return reportError
			}
			report, buildError := app.runCatalogBuild(command, root)
			if buildError != nil && report.CatalogPath == "" {
				return buildError
			}
			return app.emitWithError(command, resolved, output.NewCatalogBuildOutput(report), buildError)
		},
	}
	addReportFlags(buildCommand, &reporting)
	return buildCommand
}

func createCatalogValidateCommand(app *application) *cobra.Command {
	var reporting reportOptions

	validateCommand := &cobra.Command{
		Use:     catalogValidateUse,
		Short:   catalogValidateShortDescription,
		Long:    catalogValidateLongDescription,
		Example: catalogValidateUsageExample,
		Args:    cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			root, rootError := app.releaseRoot(arguments)
			if rootError != nil {
				return rootError
			}
			resolved, reportError := app.resolveReportOptions(command, reporting)
			if reportError != nil {
				return reportError
			}
			report, validationError := app.runCatalogValidate(command, catalogFilePath(root))
			if validationError != nil && report.Checked() == 0 {
				return validationError
			}
			return app.emitWithError(command, resolved, output.NewCatalogValidationOutput(report), validationError)
		},
	}
	addReportFlags(validateCommand, &reporting)
	return validateCommand
}

// catalogFilePath accepts either a release root or the catalog file itself.
func catalogFilePath(path string) string {
	if info, statError := os.Stat(path); statError == nil && info.IsDir() {
		return filepath.Join(path, catalog.CatalogFileName)
	}
	return path
}

func (app *application) runCatalogBuild(command *cobra.Command, root string) (catalog.BuildReport, error) {
	builder := catalog.NewBuilder(app.configuration.Catalog.Metadata(), app.logger)
	report, buildError := builder.Build(command.Context(), root)
	if report.CatalogPath != "" {
		app.metrics.ObserveCatalogBuild(report)
	}
	return report, buildError
}

func (app *application) runCatalogValidate(command *cobra.Command, catalogPath string) (catalog.ValidationReport, error) {
	report, validationError := catalog.NewValidator(app.logger).Validate(command.Context(), catalogPath)
	if report.Checked() > 0 {
		app.metrics.ObserveValidation(report)
	}
	return report, validationError
}
