package changeset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/destel/rill"
	"github.com/paulmach/osm"
	"go.uber.org/zap"

	"github.com/osmtools/survey2osm/internal/changes"
	"github.com/osmtools/survey2osm/internal/logger"
	"github.com/osmtools/survey2osm/internal/tile"
)

// Output directory names under the output root.
const (
	CleanDir  = "changesets"
	WarnedDir = "warnings"
)

// Writer writes tiled changes to disk: one change-<tile>.osm per tile,
// clean tiles under changesets/ and warned tiles under warnings/, each
// warned tile with a companion warn-<tile>.log listing one warning per
// line. Tiles are independent, so they are written in parallel.
type Writer struct {
	OutputDir     string
	Generator     string
	ChangesetTags osm.Tags
	Workers       int
}

type tileJob struct {
	dir     string
	name    string
	changes []changes.Change
}

// WriteGroups writes both groupings. It returns after every tile is on
// disk; the first write error aborts the remaining tiles.
func (w *Writer) WriteGroups(groups tile.Groups) error {
	for _, dir := range []string{CleanDir, WarnedDir} {
		if err := os.MkdirAll(filepath.Join(w.OutputDir, dir), 0755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	jobs := make([]tileJob, 0, len(groups.Clean)+len(groups.Warned))
	for name, cs := range groups.Clean {
		jobs = append(jobs, tileJob{dir: CleanDir, name: name, changes: cs})
	}
	for name, cs := range groups.Warned {
		jobs = append(jobs, tileJob{dir: WarnedDir, name: name, changes: cs})
	}

	workers := w.Workers
	if workers < 1 {
		workers = 1
	}
	return rill.ForEach(rill.FromSlice(jobs, nil), workers, w.writeTile)
}

func (w *Writer) writeTile(job tileJob) error {
	emitter := NewEmitter()
	for _, c := range job.changes {
		emitter.Add(c)
	}
	doc := emitter.Document(Metadata{
		Generator:  w.Generator,
		Tags:       w.ChangesetTags,
		SourceFile: job.name,
	})

	dir := filepath.Join(w.OutputDir, job.dir)
	path := filepath.Join(dir, fmt.Sprintf("change-%s.osm", job.name))
	if err := writeFile(path, func(f *os.File) error { return doc.Write(f) }); err != nil {
		return err
	}

	if warnings := emitter.Warnings(); len(warnings) > 0 {
		warnPath := filepath.Join(dir, fmt.Sprintf("warn-%s.log", job.name))
		err := writeFile(warnPath, func(f *os.File) error {
			_, err := f.WriteString(strings.Join(warnings, "\n") + "\n")
			return err
		})
		if err != nil {
			return err
		}
	}

	logger.Named("writer").Debug("Wrote tile",
		zap.String("tile", job.name),
		zap.String("dir", job.dir),
		zap.Int("changes", emitter.Len()))
	return nil
}

func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	return nil
}
