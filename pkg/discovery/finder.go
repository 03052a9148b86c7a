package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/matzehuels/modscan/pkg/metadata"
)

// Consumer receives locators from a [Finder]. requiresRemap is attached to
// every candidate created from the batch.
type Consumer func(locators []string, requiresRemap bool)

// Finder enumerates top-level candidate locators. Implementations report
// in a stable order; the order is kept through discovery.
type Finder interface {
	FindCandidates(ctx context.Context, out Consumer) error
}

// FinderFunc adapts a function to the [Finder] interface.
type FinderFunc func(ctx context.Context, out Consumer) error

// FindCandidates calls f.
func (f FinderFunc) FindCandidates(ctx context.Context, out Consumer) error { return f(ctx, out) }

// PathFinder reports an explicit list of paths verbatim.
type PathFinder struct {
	Paths         []string
	RequiresRemap bool
}

// FindCandidates reports p.Paths as a single batch.
func (p PathFinder) FindCandidates(ctx context.Context, out Consumer) error {
	if len(p.Paths) > 0 {
		out(p.Paths, p.RequiresRemap)
	}
	return nil
}

// DirectoryFinder reports the archives in a mods directory: regular files
// ending in .jar or .zip and subdirectories holding a metadata file. Hidden
// entries are skipped and the result is sorted by name. A missing directory
// yields no candidates.
type DirectoryFinder struct {
	Dir           string
	RequiresRemap bool
}

// FindCandidates lists d.Dir.
func (d DirectoryFinder) FindCandidates(ctx context.Context, out Consumer) error {
	entries, err := os.ReadDir(d.Dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	var found []string
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		full := filepath.Join(d.Dir, name)
		switch {
		case e.IsDir():
			if _, err := os.Stat(filepath.Join(full, metadata.FileName)); err == nil {
				found = append(found, full)
			}
		case e.Type().IsRegular() && isArchiveName(name):
			found = append(found, full)
		}
	}

	sort.Strings(found)
	if len(found) > 0 {
		out(found, d.RequiresRemap)
	}
	return nil
}

func isArchiveName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".jar" || ext == ".zip"
}
