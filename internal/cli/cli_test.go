package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modscan/pkg/observability"
)

func zipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
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
	return buf.Bytes()
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, zipBytes(t, files), 0o644); err != nil {
		t.Fatal(err)
	}
}

// setupMods creates a working directory with a mods folder holding two
// fabric mods and one plain archive. alpha embeds alpha-lib; beta has an
// unmet dependency.
func setupMods(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))

	lib := zipBytes(t, map[string]string{
		"fabric.mod.json": `{"schemaVersion": 1, "id": "alpha-lib", "version": "0.3.0", "provides": ["alpha_lib_legacy"]}`,
	})
	writeZip(t, "mods/alpha.jar", map[string]string{
		"fabric.mod.json":       `{"schemaVersion": 1, "id": "alpha", "version": "1.0.0", "jars": [{"file": "META-INF/jars/lib.jar"}]}`,
		"META-INF/jars/lib.jar": string(lib),
	})
	writeZip(t, "mods/beta.jar", map[string]string{
		"fabric.mod.json": `{"schemaVersion": 1, "id": "beta", "version": "2.0.0", "depends": {"gamma": "*"}}`,
	})
	writeZip(t, "mods/textures.zip", map[string]string{"pack.png": "png"})
	return dir
}

func execute(t *testing.T, args ...string) (stdout, logs string, err error) {
	t.Helper()
	var out, errOut, logBuf bytes.Buffer
	c := New(&logBuf, LogInfo)
	root := c.RootCommand()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	return out.String(), logBuf.String(), err
}

func TestScanJSON(t *testing.T) {
	setupMods(t)

	stdout, logs, err := execute(t, "scan", "--format", "json")
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}

	var sum scanSummary
	if err := json.Unmarshal([]byte(stdout), &sum); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(sum.Mods) != 2 || sum.Mods[0].ID != "alpha" || sum.Mods[1].ID != "alpha-lib" {
		t.Fatalf("Mods = %+v, want alpha and alpha-lib", sum.Mods)
	}
	if sum.Mods[0].Nested || !sum.Mods[1].Nested {
		t.Errorf("Nested flags = %v %v", sum.Mods[0].Nested, sum.Mods[1].Nested)
	}
	if sum.Candidates != 4 {
		t.Errorf("Candidates = %d, want 4", sum.Candidates)
	}
	if sum.Rejected != 1 {
		t.Errorf("Rejected = %d, want 1", sum.Rejected)
	}
	if len(sum.NonFabric) != 1 || filepath.Base(sum.NonFabric[0]) != "textures.zip" {
		t.Errorf("NonFabric = %v", sum.NonFabric)
	}
	if sum.Environment != "client" {
		t.Errorf("Environment = %q", sum.Environment)
	}

	if !strings.Contains(logs, "Found 1 non-fabric mod(s):") {
		t.Errorf("logs lack non-fabric report:\n%s", logs)
	}
	if !strings.Contains(logs, "MISSING_DEPENDENCY") {
		t.Errorf("logs lack conflict report:\n%s", logs)
	}
	if !strings.Contains(logs, "alpha-lib 0.3.0 (in alpha 1.0.0)") {
		t.Errorf("logs lack provider report:\n%s", logs)
	}
}

func TestScanText(t *testing.T) {
	setupMods(t)

	stdout, _, err := execute(t, "scan", "--no-cache")
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	for _, want := range []string{"alpha", "1.0.0", "Loaded 2 mods, 1 rejected", "beta"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output lacks %q:\n%s", want, stdout)
		}
	}
}

func TestScanStrict(t *testing.T) {
	setupMods(t)

	_, _, err := execute(t, "scan", "--strict", "--format", "yaml")
	if err == nil || !strings.Contains(err.Error(), "1 mod(s) rejected") {
		t.Errorf("strict scan error = %v", err)
	}
}

func TestScanFlagErrors(t *testing.T) {
	setupMods(t)

	tests := [][]string{
		{"scan", "--env", "moon"},
		{"scan", "--format", "xml"},
		{"scan", "--workers", "-1"},
		{"scan", "--config", "missing.toml"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args[1:], " "), func(t *testing.T) {
			if _, _, err := execute(t, args...); err == nil {
				t.Errorf("%v: expected error", args)
			}
		})
	}
}

func TestScanConfigFile(t *testing.T) {
	dir := setupMods(t)
	cfg := "mods_dir = \"elsewhere\"\nextra_paths = [\"mods/alpha.jar\"]\n"
	if err := os.WriteFile(filepath.Join(dir, "modscan.toml"), []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := execute(t, "scan", "--format", "json")
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	var sum scanSummary
	if err := json.Unmarshal([]byte(stdout), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Candidates != 2 || len(sum.Mods) != 2 {
		t.Errorf("summary = %+v, want only the extra path", sum)
	}

	// Flags win over the config file; the extra path duplicates a mods
	// directory entry and is reported once.
	stdout, _, err = execute(t, "scan", "--format", "json", "--mods", "mods")
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	sum = scanSummary{}
	if err := json.Unmarshal([]byte(stdout), &sum); err != nil {
		t.Fatal(err)
	}
	if sum.Candidates != 4 {
		t.Errorf("Candidates = %d, want 4", sum.Candidates)
	}
}

func TestScanPositionalPaths(t *testing.T) {
	dir := setupMods(t)
	writeZip(t, filepath.Join(dir, "dev", "gamma.jar"), map[string]string{
		"fabric.mod.json": `{"schemaVersion": 1, "id": "gamma", "version": "0.1.0"}`,
	})

	stdout, _, err := execute(t, "scan", "--strict", "--format", "json", "dev/gamma.jar")
	if err != nil {
		t.Fatalf("scan error = %v", err)
	}
	var sum scanSummary
	if err := json.Unmarshal([]byte(stdout), &sum); err != nil {
		t.Fatal(err)
	}
	// gamma satisfies beta's dependency.
	if sum.Rejected != 0 || len(sum.Mods) != 4 {
		t.Errorf("summary = %+v, want 4 mods and no rejections", sum)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "version: dev") {
		t.Errorf("version output = %q", stdout)
	}
}

func TestGraphDOT(t *testing.T) {
	setupMods(t)

	stdout, _, err := execute(t, "graph")
	if err != nil {
		t.Fatalf("graph error = %v", err)
	}
	if !strings.HasPrefix(stdout, "digraph G {") {
		t.Errorf("graph output is not DOT:\n%s", stdout)
	}

	out := filepath.Join(t.TempDir(), "mods.dot")
	if _, _, err := execute(t, "graph", "-o", out, "--detailed"); err != nil {
		t.Fatalf("graph -o error = %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("alpha")) {
		t.Errorf("DOT file lacks alpha:\n%s", data)
	}
}

func TestGraphFormat(t *testing.T) {
	tests := []struct {
		explicit, output, want string
	}{
		{"", "", formatDOT},
		{"", "mods.svg", formatSVG},
		{"", "mods.SVG", formatSVG},
		{"", "mods.gv", formatDOT},
		{"DOT", "mods.svg", formatDOT},
		{"png", "", "png"},
	}
	for _, tt := range tests {
		if got := graphFormat(tt.explicit, tt.output); got != tt.want {
			t.Errorf("graphFormat(%q, %q) = %q, want %q", tt.explicit, tt.output, got, tt.want)
		}
	}
}

func TestCacheCommands(t *testing.T) {
	dir := setupMods(t)
	cacheDir := filepath.Join(dir, "cache", appName)

	stdout, _, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(stdout) != cacheDir {
		t.Errorf("cache path = %q, want %q", stdout, cacheDir)
	}

	// A scan caches the probe of the nested lib jar.
	if _, _, err := execute(t, "scan"); err != nil {
		t.Fatal(err)
	}
	stdout, _, err = execute(t, "cache", "clear")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Cleared") {
		t.Errorf("cache clear output = %q", stdout)
	}

	// --no-cache runs store nothing.
	if _, _, err := execute(t, "scan", "--no-cache"); err != nil {
		t.Fatal(err)
	}
	stdout, _, err = execute(t, "cache", "clear")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(stdout, "Cache is empty") {
		t.Errorf("clear after --no-cache scan output = %q", stdout)
	}
}

func TestSetLogLevelInstallsHooks(t *testing.T) {
	t.Cleanup(observability.Reset)

	var buf bytes.Buffer
	c := New(&buf, LogInfo)
	c.SetLogLevel(LogDebug)

	observability.Pipeline().OnResolveStart(context.Background(), 3)
	if !strings.Contains(buf.String(), "candidates=3") {
		t.Errorf("debug hooks not routed to logger: %q", buf.String())
	}
	if c.Logger.GetLevel() != log.DebugLevel {
		t.Errorf("level = %v", c.Logger.GetLevel())
	}
}
