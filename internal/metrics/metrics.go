// Package metrics records release run statistics and writes them as a Prometheus textfile that
// node_exporter's textfile collector can pick up.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/temirov/stacrelease/internal/catalog"
	"github.com/temirov/stacrelease/internal/prune"
)

const (
	namespace = "stacrelease"

	labelCollection = "collection"
	labelCommand    = "command"
	labelStatus     = "status"

	createDirectoryFormat = "create metrics directory %s: %w"
	writeTextfileFormat   = "write metrics textfile %s: %w"
)

// Recorder owns a private registry so that every run exports only its own series.
type Recorder struct {
	registry           *prometheus.Registry
	deletions          *prometheus.CounterVec
	pruneFailures      prometheus.Counter
	pruneCollections   prometheus.Gauge
	catalogItems       prometheus.Gauge
	catalogSkipped     prometheus.Gauge
	validationChecked  prometheus.Gauge
	validationProblems prometheus.Gauge
	syncDuration       prometheus.Gauge
	lastRun            *prometheus.GaugeVec
}

// NewRecorder registers every release collector on a fresh registry.
func NewRecorder() *Recorder {
	recorder := &Recorder{
		registry: prometheus.NewRegistry(),
		deletions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prune",
			Name:      "deletions_total",
			Help:      "Directories removed (or planned for removal in dry-run mode) per collection.",
		}, []string{labelCollection}),
		pruneFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prune",
			Name:      "failures_total",
			Help:      "Collections aborted because a deletion failed.",
		}),
		pruneCollections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "prune",
			Name:      "collections",
			Help:      "Collections visited by the last prune.",
		}),
		catalogItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "items",
			Help:      "Items relocated by the last catalog build.",
		}),
		catalogSkipped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "skipped_collections",
			Help:      "Configured collections left out of the last catalog build.",
		}),
		validationChecked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "objects_checked",
			Help:      "Catalogs, collections and items checked by the last validation.",
		}),
		validationProblems: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "validation",
			Name:      "problems",
			Help:      "Problems found by the last validation.",
		}),
		syncDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Wall time of the last external sync command.",
		}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time at which a command last finished, by outcome.",
		}, []string{labelCommand, labelStatus}),
	}
	recorder.registry.MustRegister(
		recorder.deletions,
		recorder.pruneFailures,
		recorder.pruneCollections,
		recorder.catalogItems,
		recorder.catalogSkipped,
		recorder.validationChecked,
		recorder.validationProblems,
		recorder.syncDuration,
		recorder.lastRun,
	)
	return recorder
}

// ObservePrune records the deletions and failures of one prune run.
func (recorder *Recorder) ObservePrune(report prune.Report) {
	recorder.pruneCollections.Set(float64(report.Collections))
	for _, deletion := range report.Deletions {
		recorder.deletions.WithLabelValues(deletion.Collection).Inc()
	}
	recorder.pruneFailures.Add(float64(len(report.Failures)))
}

// ObserveCatalogBuild records the outcome of a catalog build.
func (recorder *Recorder) ObserveCatalogBuild(report catalog.BuildReport) {
	recorder.catalogItems.Set(float64(report.Items))
	recorder.catalogSkipped.Set(float64(len(report.Skipped)))
}

// ObserveValidation records the outcome of a catalog validation.
func (recorder *Recorder) ObserveValidation(report catalog.ValidationReport) {
	recorder.validationChecked.Set(float64(report.Checked()))
	recorder.validationProblems.Set(float64(len(report.Problems)))
}

// ObserveSync records how long the external sync command ran.
func (recorder *Recorder) ObserveSync(duration time.Duration) {
	recorder.syncDuration.Set(duration.Seconds())
}

// MarkRun stamps the completion time of a command.
func (recorder *Recorder) MarkRun(command, status string, finishedAt time.Time) {
	recorder.lastRun.WithLabelValues(command, status).Set(float64(finishedAt.Unix()))
}

// Gatherer exposes the registry, mainly for tests.
func (recorder *Recorder) Gatherer() prometheus.Gatherer {
	return recorder.registry
}

// WriteTextfile atomically replaces path with the current metrics in the text exposition format.
func (recorder *Recorder) WriteTextfile(path string) error {
	directory := filepath.Dir(path)
	if mkdirError := os.MkdirAll(directory, 0o755); mkdirError != nil {
		return fmt.Errorf(createDirectoryFormat, directory, mkdirError)
	}
	if writeError := prometheus.WriteToTextfile(path, recorder.registry); writeError != nil {
		return fmt.Errorf(writeTextfileFormat, path, writeError)
	}
	return nil
}
