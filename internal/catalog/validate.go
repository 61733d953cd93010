package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

const (
	fieldExtent        = "extent"
	fieldGeometry      = "geometry"
	fieldBbox          = "bbox"
	fieldProperties    = "properties"
	fieldDatetime      = "datetime"
	fieldStartDatetime = "start_datetime"
	fieldEndDatetime   = "end_datetime"
	jsonNull           = "null"

	logValidationStarted  = "validating catalog"
	logValidationProblem  = "validation problem"
	logValidationFinished = "validation finished"
	logObjectChecked      = "checked"

	problemMissingField   = "missing required field %q"
	problemWrongType      = "expected type %s, found %q"
	problemLinkIncomplete = "link %d lacks rel or href"
	problemBadBbox        = "bbox must have 4 or 6 numbers"
	problemBadInterval    = "temporal interval must have 2 entries"
	problemUnreadable     = "unreadable: %v"
	problemDatetime       = "properties need datetime or start_datetime and end_datetime"
)

var (
	// ErrInvalidCatalog reports a catalog with at least one validation problem.
	ErrInvalidCatalog = errors.New("invalid catalog")
	// ErrCatalogNotFound reports an unreadable root catalog file.
	ErrCatalogNotFound = errors.New("catalog not found")
)

// Problem is one validation finding.
type Problem struct {
	Path    string
	Message string
}

// ValidationReport summarizes one validation run.
type ValidationReport struct {
	Root        string
	Catalogs    int
	Collections int
	Items       int
	Problems    []Problem
}

// Valid reports whether no problem was found.
func (report ValidationReport) Valid() bool {
	return len(report.Problems) == 0
}

// Checked is the number of objects inspected.
func (report ValidationReport) Checked() int {
	return report.Catalogs + report.Collections + report.Items
}

// Validator walks a catalog through its local child and item links.
type Validator struct {
	logger *zap.Logger
}

// NewValidator constructs a Validator.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

type pendingObject struct {
	path         string
	allowedTypes []string
}

// Validate checks the root catalog and every local child and item reachable from it.
// Remote hrefs are not followed. Each object is visited once.
func (validator *Validator) Validate(ctx context.Context, catalogPath string) (ValidationReport, error) {
	absolutePath, absoluteError := filepath.Abs(catalogPath)
	if absoluteError != nil {
		return ValidationReport{}, fmt.Errorf("resolve catalog %s: %w", catalogPath, absoluteError)
	}
	report := ValidationReport{Root: absolutePath}
	validator.logger.Info(logValidationStarted, zap.String("path", absolutePath))

	if _, readError := ReadObject(absolutePath); readError != nil {
		return report, fmt.Errorf("%w: %v", ErrCatalogNotFound, readError)
	}

	visited := map[string]struct{}{}
	queue := []pendingObject{{path: absolutePath, allowedTypes: []string{TypeCatalog, TypeCollection}}}
	for len(queue) > 0 {
		if contextError := ctx.Err(); contextError != nil {
			return report, contextError
		}
		current := queue[0]
		queue = queue[1:]
		if _, seen := visited[current.path]; seen {
			continue
		}
		visited[current.path] = struct{}{}

		object, readError := ReadObject(current.path)
		if readError != nil {
			validator.addProblem(&report, current.path, fmt.Sprintf(problemUnreadable, readError))
			continue
		}
		for _, message := range checkObject(object, current.allowedTypes) {
			validator.addProblem(&report, current.path, message)
		}
		validator.logger.Debug(logObjectChecked, zap.String("type", object.Type()), zap.String("path", current.path))

		switch object.Type() {
		case TypeCatalog:
			report.Catalogs++
		case TypeCollection:
			report.Collections++
		case TypeItem:
			report.Items++
		}

		baseDirectory := filepath.Dir(current.path)
		for _, link := range object.Links {
			if link.Href == "" || isRemote(link.Href) {
				continue
			}
			switch link.Rel {
			case RelChild:
				queue = append(queue, pendingObject{
					path:         resolveHref(baseDirectory, link.Href),
					allowedTypes: []string{TypeCatalog, TypeCollection},
				})
			case RelItem:
				queue = append(queue, pendingObject{
					path:         resolveHref(baseDirectory, link.Href),
					allowedTypes: []string{TypeItem},
				})
			}
		}
	}

	validator.logger.Info(logValidationFinished,
		zap.Int("checked", report.Checked()),
		zap.Int("problems", len(report.Problems)),
	)
	if !report.Valid() {
		return report, fmt.Errorf("%w: %d problem(s)", ErrInvalidCatalog, len(report.Problems))
	}
	return report, nil
}

func (validator *Validator) addProblem(report *ValidationReport, path, message string) {
	validator.logger.Warn(logValidationProblem, zap.String("path", path), zap.String("problem", message))
	report.Problems = append(report.Problems, Problem{Path: path, Message: message})
}

// checkObject returns the structural problems of a single object.
func checkObject(object *Object, allowedTypes []string) []string {
	var problems []string
	objectType := object.Type()
	if !containsValue(allowedTypes, objectType) {
		problems = append(problems, fmt.Sprintf(problemWrongType, strings.Join(allowedTypes, " or "), objectType))
	}
	for _, field := range []string{fieldStacVersion, fieldID} {
		if object.String(field) == "" {
			problems = append(problems, fmt.Sprintf(problemMissingField, field))
		}
	}
	for index, link := range object.Links {
		if link.Rel == "" || link.Href == "" {
			problems = append(problems, fmt.Sprintf(problemLinkIncomplete, index))
		}
	}

	switch objectType {
	case TypeCatalog:
		problems = append(problems, requireFields(object, fieldDescription)...)
	case TypeCollection:
		problems = append(problems, requireFields(object, fieldDescription, fieldLicense, fieldExtent)...)
		problems = append(problems, checkExtent(object)...)
	case TypeItem:
		problems = append(problems, requireFields(object, fieldGeometry, fieldProperties, fieldAssets)...)
		problems = append(problems, checkItem(object)...)
	}
	return problems
}

func requireFields(object *Object, fields ...string) []string {
	var problems []string
	for _, field := range fields {
		if !object.Has(field) {
			problems = append(problems, fmt.Sprintf(problemMissingField, field))
		}
	}
	return problems
}

func checkExtent(object *Object) []string {
	if !object.Has(fieldExtent) {
		return nil
	}
	var extent struct {
		Spatial *struct {
			Bbox [][]float64 `json:"bbox"`
		} `json:"spatial"`
		Temporal *struct {
			Interval [][]*string `json:"interval"`
		} `json:"temporal"`
	}
	if decodeError := object.Decode(fieldExtent, &extent); decodeError != nil {
		return []string{fmt.Sprintf(problemUnreadable, decodeError)}
	}
	var problems []string
	if extent.Spatial == nil || len(extent.Spatial.Bbox) == 0 {
		problems = append(problems, fmt.Sprintf(problemMissingField, "extent.spatial.bbox"))
	} else {
		for _, bbox := range extent.Spatial.Bbox {
			if !validBbox(bbox) {
				problems = append(problems, problemBadBbox)
			}
		}
	}
	if extent.Temporal == nil || len(extent.Temporal.Interval) == 0 {
		problems = append(problems, fmt.Sprintf(problemMissingField, "extent.temporal.interval"))
	} else {
		for _, interval := range extent.Temporal.Interval {
			if len(interval) != 2 {
				problems = append(problems, problemBadInterval)
			}
		}
	}
	return problems
}

func checkItem(object *Object) []string {
	var problems []string
	if rawGeometry, present := object.Fields[fieldGeometry]; present && strings.TrimSpace(string(rawGeometry)) != jsonNull {
		var bbox []float64
		if decodeError := object.Decode(fieldBbox, &bbox); decodeError != nil {
			problems = append(problems, fmt.Sprintf(problemMissingField, fieldBbox))
		} else if !validBbox(bbox) {
			problems = append(problems, problemBadBbox)
		}
	}
	if object.Has(fieldProperties) {
		properties := map[string]json.RawMessage{}
		if decodeError := object.Decode(fieldProperties, &properties); decodeError != nil {
			problems = append(problems, fmt.Sprintf(problemUnreadable, decodeError))
		} else if !hasDatetime(properties) {
			problems = append(problems, problemDatetime)
		}
	}
	if object.Has(fieldAssets) {
		assets := map[string]json.RawMessage{}
		if decodeError := object.Decode(fieldAssets, &assets); decodeError != nil {
			problems = append(problems, fmt.Sprintf(problemUnreadable, decodeError))
		}
	}
	return problems
}

func hasDatetime(properties map[string]json.RawMessage) bool {
	if rawDatetime, present := properties[fieldDatetime]; present && strings.TrimSpace(string(rawDatetime)) != jsonNull {
		return true
	}
	_, hasStart := properties[fieldStartDatetime]
	_, hasEnd := properties[fieldEndDatetime]
	return hasStart && hasEnd
}

func validBbox(bbox []float64) bool {
	return len(bbox) == 4 || len(bbox) == 6
}
