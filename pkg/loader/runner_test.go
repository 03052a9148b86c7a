package loader

import (
	"archive/zip"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/metadata"
	"github.com/matzehuels/modscan/pkg/report"
)

type recorder struct{ msgs []string }

func (r *recorder) Log(_ report.Level, category, msg string) {
	r.msgs = append(r.msgs, category+": "+msg)
}

func writeJar(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
}

func writeMod(t *testing.T, dir, file, id, version string, extra string) {
	t.Helper()
	doc := fmt.Sprintf(`{"id": %q, "version": %q%s}`, id, version, extra)
	writeJar(t, filepath.Join(dir, file), map[string]string{metadata.FileName: doc})
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
}

func TestExecute(t *testing.T) {
	mods := t.TempDir()
	writeMod(t, mods, "a-1.0.jar", "moda", "1.0.0", "")
	writeMod(t, mods, "a-2.0.jar", "moda", "2.0.0", "")
	writeMod(t, mods, "b.jar", "modb", "1.0.0", `, "provides": ["legacy"]`)
	writeMod(t, mods, "c.jar", "modc", "1.0.0", `, "depends": {"missing": "*"}`)
	writeJar(t, filepath.Join(mods, "plain.jar"), map[string]string{"readme.txt": "x"})

	rec := &recorder{}
	res, err := NewRunner(rec, quietLogger()).Execute(context.Background(), Options{ModsDir: mods})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	var ids []string
	for _, c := range res.Resolution.Accepted {
		ids = append(ids, c.String())
	}
	if want := []string{"moda 2.0.0", "modb 1.0.0"}; !slices.Equal(ids, want) {
		t.Errorf("accepted = %v, want %v", ids, want)
	}
	if res.Stats.Candidates != 5 || res.Stats.NonConforming != 1 || res.Stats.Accepted != 2 || res.Stats.Conflicts != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}

	want := []string{
		"discovery: Found 1 non-fabric mod(s):\n\t- plain.jar",
		"resolution: Found 1 loaded mods that have providers:\n\t- modb 1.0.0 (in modb 1.0.0)",
	}
	if len(rec.msgs) != 3 || !slices.Equal(rec.msgs[:2], want) {
		t.Fatalf("messages = %q", rec.msgs)
	}
	if !strings.Contains(rec.msgs[2], "MISSING_DEPENDENCY") {
		t.Errorf("conflict dump = %q", rec.msgs[2])
	}
}

func TestExecuteOverridesFile(t *testing.T) {
	mods := t.TempDir()
	writeMod(t, mods, "a-1.0.jar", "moda", "1.0.0", "")
	writeMod(t, mods, "a-2.0.jar", "moda", "2.0.0", "")

	ovPath := filepath.Join(t.TempDir(), "overrides.toml")
	if err := os.WriteFile(ovPath, []byte("[mods.moda]\npin = \"1.0.0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := NewRunner(nil, quietLogger()).Execute(context.Background(), Options{
		ModsDir:       mods,
		OverridesPath: ovPath,
		CacheDir:      filepath.Join(t.TempDir(), "cache"),
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := res.Resolution.Accepted; len(got) != 1 || got[0].Metadata.Version.String() != "1.0.0" {
		t.Errorf("accepted = %v, want pinned moda 1.0.0", got)
	}
}

func countEntries(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return nil
	})
	return n
}

func TestExecuteNoCache(t *testing.T) {
	mods := t.TempDir()
	lib := filepath.Join(t.TempDir(), "lib.jar")
	writeJar(t, lib, map[string]string{metadata.FileName: `{"id": "libmod", "version": "1.0.0"}`})
	libBytes, err := os.ReadFile(lib)
	if err != nil {
		t.Fatal(err)
	}
	writeJar(t, filepath.Join(mods, "a.jar"), map[string]string{
		metadata.FileName:       `{"id": "moda", "version": "1.0.0", "jars": [{"file": "META-INF/jars/lib.jar"}]}`,
		"META-INF/jars/lib.jar": string(libBytes),
	})

	tests := []struct {
		name    string
		noCache bool
		stored  bool
	}{
		{"file cache", false, true},
		{"no cache", true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "cache")
			res, err := NewRunner(nil, quietLogger()).Execute(context.Background(), Options{
				ModsDir:  mods,
				CacheDir: dir,
				NoCache:  tt.noCache,
			})
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if res.Stats.Accepted != 2 {
				t.Errorf("Accepted = %d, want moda and libmod", res.Stats.Accepted)
			}
			if got := countEntries(t, dir) > 0; got != tt.stored {
				t.Errorf("cache stored entries = %v, want %v", got, tt.stored)
			}
		})
	}
}

func TestExecuteErrors(t *testing.T) {
	runner := NewRunner(nil, quietLogger())

	_, err := runner.Execute(context.Background(), Options{MaxDepth: -1})
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("negative depth error = %v", err)
	}

	_, err = runner.Execute(context.Background(), Options{ModsDir: t.TempDir(), OverridesPath: "overrides.ini"})
	if !errors.Is(err, errors.ErrCodeUnsupported) {
		t.Errorf("bad overrides error = %v", err)
	}

	notDir := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(notDir, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	_, err = runner.Execute(context.Background(), Options{ModsDir: notDir})
	if !errors.Is(err, errors.ErrCodeFinderFailed) {
		t.Errorf("finder error = %v, want FINDER_FAILED", err)
	}
}

func TestOptionsDefaults(t *testing.T) {
	var o Options
	if err := o.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if o.ModsDir != DefaultModsDir || o.MaxDepth != 16 || o.Workers != 8 {
		t.Errorf("defaults = %+v", o)
	}

	o = Options{ExtraPaths: []string{"x.jar"}}
	_ = o.ValidateAndSetDefaults()
	if o.ModsDir != "" {
		t.Error("explicit paths should not add the default mods dir")
	}
	if len(o.finders()) != 1 {
		t.Errorf("finders = %d, want 1", len(o.finders()))
	}
}
