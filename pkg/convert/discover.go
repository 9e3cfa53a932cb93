package convert

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/iziplay/pubmed-records/pkg/archive"
	"github.com/iziplay/pubmed-records/pkg/artifact"
)

// DefaultPatterns matches the baseline and update files as distributed, plus
// recompressed and uncompressed copies.
var DefaultPatterns = []string{"*.xml.gz", "*.xml.zst", "*.xml"}

var ErrNotDirectory = errors.New("input is not a directory")

// Discover lists the archives in dir whose base name matches one of
// patterns, sorted by path. Subdirectories are only walked when recursive is
// set.
func Discover(dir string, patterns []string, recursive bool) ([]string, error) {
	if len(patterns) == 0 {
		patterns = DefaultPatterns
	}
	for _, p := range patterns {
		if _, err := filepath.Match(p, "x"); err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot read input directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && !recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		for _, p := range patterns {
			if ok, _ := filepath.Match(p, d.Name()); ok {
				paths = append(paths, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot list input directory: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}

// ArtifactName is the artifact file name for an archive: its identity plus
// the extension of the artifact format.
func ArtifactName(path string, opts artifact.Options) string {
	return archive.Identity(path) + opts.Extension()
}
