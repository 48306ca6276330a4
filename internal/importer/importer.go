package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/claude/liftlog/internal/models"
	"gopkg.in/yaml.v3"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	TemplatesImported   int
	TemplatesDuplicated int
	TemplatesInvalid    int
}

// Sink receives imported templates. *tracker.Tracker satisfies it.
type Sink interface {
	Workouts() []models.WorkoutTemplate
	AddWorkout(tmpl models.WorkoutTemplate) models.WorkoutTemplate
}

// Importer reads workout template YAML files and adds them to a Sink.
// Templates whose title already exists (case-insensitive) are skipped.
type Importer struct {
	sink   Sink
	log    *slog.Logger
	dryRun bool
	stats  Stats
}

// New creates a new Importer.
func New(sink Sink, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{sink: sink, log: log, dryRun: dryRun}
}

// Import processes path, which is either one YAML file or a directory whose
// *.yaml and *.yml files are imported in name order.
func (imp *Importer) Import(ctx context.Context, path string) (*Stats, error) {
	files, err := templateFiles(path)
	if err != nil {
		return &imp.stats, err
	}

	seen := map[string]bool{}
	for _, t := range imp.sink.Workouts() {
		seen[titleKey(t.Title)] = true
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return &imp.stats, err
		}

		templates, err := ParseFile(f)
		if err != nil {
			imp.log.Warn("parse failed", "file", f, "error", err)
			imp.stats.FilesErrored++
			continue
		}
		if len(templates) == 0 {
			imp.stats.FilesSkipped++
			continue
		}
		imp.stats.FilesProcessed++

		for _, tmpl := range templates {
			if err := tmpl.Validate(); err != nil {
				imp.log.Warn("invalid template", "file", filepath.Base(f), "title", tmpl.Title, "error", err)
				imp.stats.TemplatesInvalid++
				continue
			}
			key := titleKey(tmpl.Title)
			if seen[key] {
				imp.log.Info("skipping duplicate template", "title", tmpl.Title)
				imp.stats.TemplatesDuplicated++
				continue
			}
			seen[key] = true

			if imp.dryRun {
				imp.stats.TemplatesImported++
				continue
			}
			added := imp.sink.AddWorkout(tmpl)
			imp.log.Info("imported template", "id", added.ID, "title", added.Title, "exercises", len(added.Exercises))
			imp.stats.TemplatesImported++
		}
	}

	return &imp.stats, nil
}

func templateFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(path, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// fileDoc is one YAML document: a single template, or a list of them under
// "workouts".
type fileDoc struct {
	Workouts               []models.WorkoutTemplate `yaml:"workouts"`
	models.WorkoutTemplate `yaml:",inline"`
}

// ParseFile reads every YAML document in a file. Ids in the file are
// ignored; the sink assigns fresh ones.
func ParseFile(path string) ([]models.WorkoutTemplate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes templates from a YAML stream.
func Parse(r io.Reader) ([]models.WorkoutTemplate, error) {
	dec := yaml.NewDecoder(r)
	var out []models.WorkoutTemplate
	for {
		var doc fileDoc
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding template yaml: %w", err)
		}
		if doc.Title != "" || len(doc.Exercises) > 0 {
			out = append(out, doc.WorkoutTemplate)
		}
		out = append(out, doc.Workouts...)
	}
	for i := range out {
		out[i].ID = ""
		for j := range out[i].Exercises {
			out[i].Exercises[j].ID = ""
		}
	}
	return out, nil
}

func titleKey(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}
