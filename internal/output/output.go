// Package output renders command reports as raw text, JSON or XML.
package output

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"github.com/temirov/stacrelease/internal/types"
)

const (
	indentPrefix = ""
	indentSpacer = "  "

	xmlHeader = xml.Header

	errorUnsupportedFormat = "unsupported output format %q"
	errorUnsupportedReport = "no raw renderer for %T"
)

// ErrUnsupportedFormat reports a format other than raw, json or xml.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Render writes report to writer in the requested format.
func Render(writer io.Writer, format string, report any) error {
	var rendered string
	var renderError error
	switch format {
	case types.FormatRaw, "":
		rendered, renderError = RenderRaw(report)
	case types.FormatJSON:
		rendered, renderError = RenderJSON(report)
	case types.FormatXML:
		rendered, renderError = RenderXML(report)
	default:
		return fmt.Errorf("%w: "+errorUnsupportedFormat, ErrUnsupportedFormat, format)
	}
	if renderError != nil {
		return renderError
	}
	_, writeError := io.WriteString(writer, rendered)
	return writeError
}

// RenderJSON marshals a report as indented JSON followed by a newline.
func RenderJSON(report any) (string, error) {
	encoded, jsonEncodeError := json.MarshalIndent(report, indentPrefix, indentSpacer)
	if jsonEncodeError != nil {
		return "", jsonEncodeError
	}
	return string(encoded) + "\n", nil
}

// RenderXML marshals a report as an indented XML document followed by a newline.
func RenderXML(report any) (string, error) {
	encoded, xmlMarshalError := xml.MarshalIndent(report, indentPrefix, indentSpacer)
	if xmlMarshalError != nil {
		return "", xmlMarshalError
	}
	return xmlHeader + string(encoded) + "\n", nil
}

// RenderRaw renders a report as human-readable text.
func RenderRaw(report any) (string, error) {
	switch typedReport := report.(type) {
	case *types.PruneOutput:
		return RenderPruneRaw(typedReport), nil
	case *types.CatalogBuildOutput:
		return RenderCatalogBuildRaw(typedReport), nil
	case *types.CatalogValidationOutput:
		return RenderCatalogValidationRaw(typedReport), nil
	case *types.SyncOutput:
		return RenderSyncRaw(typedReport), nil
	case *types.PublishOutput:
		return RenderPublishRaw(typedReport), nil
	default:
		return "", fmt.Errorf(errorUnsupportedReport, report)
	}
}
