package metadata

import (
	stderrors "errors"
	"io"
	"io/fs"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/matzehuels/modscan/pkg/errors"
)

type fakeVersionOverrides map[string]VersionOverride

func (f fakeVersionOverrides) VersionOverride(id string) (VersionOverride, bool) {
	o, ok := f[id]
	return o, ok
}

type fakeDependencyOverrides map[string]DependencyOverride

func (f fakeDependencyOverrides) DependencyOverride(id string) (DependencyOverride, bool) {
	o, ok := f[id]
	return o, ok
}

func parse(t *testing.T, doc string) (*Metadata, error) {
	t.Helper()
	return Parse(strings.NewReader(doc), "test.jar", nil, nil)
}

func TestParseFull(t *testing.T) {
	m, err := parse(t, `{
		"schemaVersion": 1,
		"id": "mod1",
		"version": "0.1.0",
		"name": "Mod One",
		"environment": "client",
		"depends": {"fabricloader": ">=0.15", "mod2": ["^2.2", "3.x"]},
		"recommends": {"modmenu": "*"},
		"breaks": {"oldmod": "<1.0"},
		"provides": ["mod1_legacy", "mod1_legacy"],
		"jars": [{"file": "META-INF/jars/lib.jar"}]
	}`)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if m.ID != "mod1" || m.Version.String() != "0.1.0" || m.Name != "Mod One" {
		t.Errorf("identity = %s %s %q", m.ID, m.Version, m.Name)
	}
	if m.Environment != EnvClient {
		t.Errorf("Environment = %v, want client", m.Environment)
	}
	if got := len(m.DependenciesOf(Depends)); got != 2 {
		t.Fatalf("depends = %d, want 2", got)
	}
	// Entries of one kind are ordered by target identity.
	if d := m.DependenciesOf(Depends)[1]; d.ModID != "mod2" || len(d.Ranges) != 2 {
		t.Errorf("second depends = %+v", d)
	}
	if d := m.DependenciesOf(Recommends)[0]; len(d.Ranges) != 0 {
		t.Errorf("* range should collapse to any, got %v", d.Ranges)
	}
	if len(m.DependenciesOf(Breaks)) != 1 {
		t.Errorf("breaks = %v", m.DependenciesOf(Breaks))
	}
	if len(m.Provides) != 1 || m.Provides[0] != "mod1_legacy" {
		t.Errorf("Provides = %v, want deduplicated [mod1_legacy]", m.Provides)
	}
	if !m.HasForeignProvides() {
		t.Error("HasForeignProvides() = false")
	}
	if len(m.Jars) != 1 || m.Jars[0] != "META-INF/jars/lib.jar" {
		t.Errorf("Jars = %v", m.Jars)
	}
}

func TestParseDefaults(t *testing.T) {
	m, err := parse(t, "{\"id\": \"mod5\", \"version\": \"1.0\", \"ID\": \"other\"}\n\n")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Name != "mod5" {
		t.Errorf("Name = %q, want id fallback", m.Name)
	}
	if m.Environment != EnvCommon {
		t.Errorf("Environment = %v, want common", m.Environment)
	}
	if m.HasForeignProvides() {
		t.Error("HasForeignProvides() = true for no provides")
	}
}

func TestParseFailures(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		reason string
	}{
		{"not json", `{"id": `, "malformed document"},
		{"trailing garbage", `{"id": "mod1", "version": "1.0"} this is not json`, "malformed document"},
		{"second document", `{"id": "mod1", "version": "1.0"} {}`, "malformed document"},
		{"not an object", `["mod1", "1.0"]`, "malformed document"},
		{"wrong key case", `{"ID": "mod1", "VERSION": "1.0"}`, "mod id cannot be empty"},
		{"wrong version case", `{"id": "mod1", "Version": "1.0"}`, "missing version"},
		{"missing id", `{"version": "1.0"}`, "mod id cannot be empty"},
		{"invalid id", `{"id": "Bad Id", "version": "1.0"}`, "invalid mod id"},
		{"missing version", `{"id": "mod1"}`, "missing version"},
		{"malformed version", `{"id": "mod1", "version": "one"}`, "malformed version"},
		{"provides self", `{"id": "mod1", "version": "1.0", "provides": ["mod1"]}`, "provides its own id"},
		{"bad range", `{"id": "mod1", "version": "1.0", "depends": {"mod2": ">=x"}}`, "depends entry \"mod2\""},
		{"bad range type", `{"id": "mod1", "version": "1.0", "depends": {"mod2": 3}}`, "expected a string"},
		{"unknown env", `{"id": "mod1", "version": "1.0", "environment": "moon"}`, "unknown environment"},
		{"schema", `{"schemaVersion": 7, "id": "mod1", "version": "1.0"}`, "unsupported schemaVersion"},
		{"escaping jar", `{"id": "mod1", "version": "1.0", "jars": [{"file": "../x.jar"}]}`, "escapes its archive"},
		{"jar key case", `{"id": "mod1", "version": "1.0", "jars": [{"FILE": "META-INF/jars/a.jar"}]}`, "jars:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.doc)
			if err == nil {
				t.Fatal("Parse() expected error")
			}
			var pe *ParseError
			if !stderrors.As(err, &pe) {
				t.Fatalf("error %T is not *ParseError", err)
			}
			if pe.Location != "test.jar" {
				t.Errorf("Location = %q", pe.Location)
			}
			if !strings.Contains(pe.Reason, tt.reason) {
				t.Errorf("Reason = %q, want to contain %q", pe.Reason, tt.reason)
			}
			if !errors.Is(err, errors.ErrCodeInvalidMetadata) {
				t.Errorf("error should carry %s", errors.ErrCodeInvalidMetadata)
			}
		})
	}
}

func TestParseSizeLimit(t *testing.T) {
	doc := `{"id": "mod1", "version": "1.0"}`
	fits := doc + strings.Repeat(" ", MaxFileBytes-len(doc))
	if _, err := parse(t, fits); err != nil {
		t.Fatalf("Parse() at the limit error = %v", err)
	}

	_, err := parse(t, fits+" ")
	var pe *ParseError
	if !stderrors.As(err, &pe) {
		t.Fatalf("Parse() past the limit error = %v, want *ParseError", err)
	}
	if pe.Cause == nil || !strings.Contains(pe.Cause.Error(), "exceeds") {
		t.Errorf("Cause = %v, want size error", pe.Cause)
	}
}

func TestParseVersionOverride(t *testing.T) {
	vo := fakeVersionOverrides{
		"mod1":  {Version: "9.0.0", Ranges: map[string]string{"mod2": ">=5", "mod3": ""}},
		"other": {Version: "1.1.1"},
	}
	doc := `{"id": "mod1", "version": "1.0", "depends": {"mod2": "1.x", "mod3": "2.x"}}`

	m, err := Parse(strings.NewReader(doc), "x", vo, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Version.String() != "9.0.0" {
		t.Errorf("Version = %s, want overridden 9.0.0", m.Version)
	}
	deps := m.DependenciesOf(Depends)
	if deps[0].Matches(MustParseVersion("1.5")) || !deps[0].Matches(MustParseVersion("5.0")) {
		t.Errorf("mod2 range not replaced: %v", deps[0])
	}
	if len(deps[1].Ranges) != 0 {
		t.Errorf("mod3 range should be deleted, got %v", deps[1].Ranges)
	}
}

func TestParseVersionOverrideRescuesMalformedVersion(t *testing.T) {
	vo := fakeVersionOverrides{"mod1": {Version: "1.0.0"}}
	m, err := Parse(strings.NewReader(`{"id": "mod1", "version": "garbage"}`), "x", vo, nil)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if m.Version.String() != "1.0.0" {
		t.Errorf("Version = %s", m.Version)
	}
}

func TestParseDependencyOverride(t *testing.T) {
	do := fakeDependencyOverrides{
		"mod1": {
			Replace: map[DependencyKind]map[string][]string{
				Breaks: {"newbreak": {"*"}},
			},
			Remove: map[DependencyKind][]string{
				Depends: {"mod2"},
			},
			Add: map[DependencyKind]map[string][]string{
				Depends:    {"mod3": {"^1.0"}, "mod4": {"2.x", "3.x"}},
				Recommends: {"modmenu": {"*"}},
			},
		},
	}
	doc := `{"id": "mod1", "version": "1.0",
		"depends": {"mod2": "*", "mod3": "0.x"},
		"breaks": {"oldmod": "*"}}`

	m, err := Parse(strings.NewReader(doc), "x", nil, do)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	var got []string
	for _, d := range m.Dependencies {
		got = append(got, d.String())
	}
	want := []string{
		"depends mod3 ^1.0",
		"depends mod4 2.x || 3.x",
		"recommends modmenu *",
		"breaks newbreak *",
	}
	if strings.Join(got, "; ") != strings.Join(want, "; ") {
		t.Errorf("Dependencies =\n%v\nwant\n%v", got, want)
	}
}

func TestExtract(t *testing.T) {
	fsys := fstest.MapFS{
		FileName: &fstest.MapFile{Data: []byte(`{"id": "mod1", "version": "1.0"}`)},
	}
	m, err := Extract(FSOpener(fsys), "dir", nil, nil)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if m.ID != "mod1" {
		t.Errorf("ID = %q", m.ID)
	}

	_, err = Extract(FSOpener(fstest.MapFS{}), "empty", nil, nil)
	if !stderrors.Is(err, ErrNoMetadata) {
		t.Errorf("Extract(empty) error = %v, want ErrNoMetadata", err)
	}
	if !errors.Is(err, errors.ErrCodeMissingMetadata) {
		t.Errorf("missing metadata should carry %s", errors.ErrCodeMissingMetadata)
	}
}

type trackingReader struct {
	io.Reader
	closed bool
}

func (r *trackingReader) Close() error {
	r.closed = true
	return nil
}

func TestExtractClosesOnParseFailure(t *testing.T) {
	rc := &trackingReader{Reader: strings.NewReader("not json")}
	_, err := Extract(func() (io.ReadCloser, error) { return rc, nil }, "x", nil, nil)
	if err == nil {
		t.Fatal("expected parse failure")
	}
	if !rc.closed {
		t.Error("stream was not closed after parse failure")
	}
}

func TestExtractOpenError(t *testing.T) {
	_, err := Extract(func() (io.ReadCloser, error) { return nil, fs.ErrPermission }, "x", nil, nil)
	if !errors.Is(err, errors.ErrCodeArchive) {
		t.Errorf("open failure code = %v, want %v", errors.GetCode(err), errors.ErrCodeArchive)
	}
}
