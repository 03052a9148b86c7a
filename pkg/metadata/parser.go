package metadata

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/matzehuels/modscan/pkg/errors"
)

// MaxFileBytes bounds the size of a metadata file. Readers need not load
// more than MaxFileBytes+1 bytes to let [Parse] reject an oversized one.
const MaxFileBytes = 4 << 20

// ErrNoMetadata marks an archive or directory without a metadata file.
// It is distinct from a [ParseError]: both route a candidate to the
// non-conforming set, but only a ParseError carries a parse reason.
var ErrNoMetadata = errors.New(errors.ErrCodeMissingMetadata, "no %s found", FileName)

// ParseError describes metadata that is present but unusable.
type ParseError struct {
	Reason   string // What is wrong
	Location string // Source identifier, e.g. the candidate locator
	Cause    error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s in %s: %s", FileName, e.Location, e.Reason)
}

// Unwrap exposes the INVALID_METADATA code to errors.Is.
func (e *ParseError) Unwrap() error {
	return errors.Wrap(errors.ErrCodeInvalidMetadata, e.Cause, "%s", e.Reason)
}

type rawJar struct {
	File string `json:"file"`
}

// UnmarshalJSON reads the "file" key with its exact spelling.
func (j *rawJar) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	j.File = ""
	if f, ok := fields["file"]; ok {
		return json.Unmarshal(f, &j.File)
	}
	return nil
}

// documentKeys are the top-level keys read from a metadata document.
var documentKeys = []string{
	"schemaVersion", "id", "version", "name", "description", "environment",
	"depends", "recommends", "suggests", "conflicts", "breaks",
	"provides", "jars",
}

type rawMetadata struct {
	SchemaVersion *int                       `json:"schemaVersion"`
	ID            string                     `json:"id"`
	Version       *string                    `json:"version"`
	Name          string                     `json:"name"`
	Description   string                     `json:"description"`
	Environment   string                     `json:"environment"`
	Depends       map[string]json.RawMessage `json:"depends"`
	Recommends    map[string]json.RawMessage `json:"recommends"`
	Suggests      map[string]json.RawMessage `json:"suggests"`
	Conflicts     map[string]json.RawMessage `json:"conflicts"`
	Breaks        map[string]json.RawMessage `json:"breaks"`
	Provides      []string                   `json:"provides"`
	Jars          []rawJar                   `json:"jars"`
}

func (r *rawMetadata) relations(kind DependencyKind) map[string]json.RawMessage {
	switch kind {
	case Depends:
		return r.Depends
	case Recommends:
		return r.Recommends
	case Suggests:
		return r.Suggests
	case Conflicts:
		return r.Conflicts
	case Breaks:
		return r.Breaks
	}
	return nil
}

// Parse reads a metadata document from r. source identifies the stream in
// errors. The version override for the package identity is applied first,
// then the dependency override; either may be nil.
//
// Parse does not close r.
func Parse(r io.Reader, source string, vo VersionOverrides, do DependencyOverrides) (*Metadata, error) {
	if vo == nil {
		vo = NoOverrides{}
	}
	if do == nil {
		do = NoOverrides{}
	}

	fail := func(cause error, format string, args ...any) (*Metadata, error) {
		return nil, &ParseError{Reason: fmt.Sprintf(format, args...), Location: source, Cause: cause}
	}

	raw, err := decodeDocument(r)
	if err != nil {
		return fail(err, "malformed document")
	}

	if raw.SchemaVersion != nil && (*raw.SchemaVersion < 0 || *raw.SchemaVersion > 1) {
		return fail(nil, "unsupported schemaVersion %d", *raw.SchemaVersion)
	}

	if err := errors.ValidateModID(raw.ID); err != nil {
		return fail(err, "%s", errors.UserMessage(err))
	}

	vover, _ := vo.VersionOverride(raw.ID)

	versionText := ""
	switch {
	case vover.Version != "":
		versionText = vover.Version
	case raw.Version != nil:
		versionText = *raw.Version
	default:
		return fail(nil, "missing version")
	}
	version, err := ParseVersion(versionText)
	if err != nil {
		return fail(err, "malformed version %q", versionText)
	}

	env, ok := ParseEnvironment(raw.Environment)
	if !ok {
		return fail(nil, "unknown environment %q", raw.Environment)
	}

	m := &Metadata{
		ID:          raw.ID,
		Version:     version,
		Name:        raw.Name,
		Description: raw.Description,
		Environment: env,
	}
	if m.Name == "" {
		m.Name = m.ID
	}

	for _, kind := range DependencyKinds {
		rel := raw.relations(kind)
		for _, id := range slices.Sorted(maps.Keys(rel)) {
			specs, err := decodeRangeSpecs(rel[id])
			if err != nil {
				return fail(err, "%s entry %q: expected a string or an array of strings", kind, id)
			}
			if repl, ok := vover.Ranges[id]; ok {
				specs = []string{repl}
			}
			ranges, err := parseRanges(specs)
			if err != nil {
				return fail(err, "%s entry %q: %s", kind, id, errors.UserMessage(err))
			}
			m.Dependencies = append(m.Dependencies, Dependency{ModID: id, Ranges: ranges, Kind: kind})
		}
	}

	for _, p := range raw.Provides {
		if p == m.ID {
			return fail(nil, "provides its own id %q", p)
		}
		if err := errors.ValidateModID(p); err != nil {
			return fail(err, "provides: %s", errors.UserMessage(err))
		}
		if !slices.Contains(m.Provides, p) {
			m.Provides = append(m.Provides, p)
		}
	}

	for _, j := range raw.Jars {
		if err := errors.ValidateNestedPath(j.File); err != nil {
			return fail(err, "jars: %s", errors.UserMessage(err))
		}
		m.Jars = append(m.Jars, j.File)
	}

	if dover, ok := do.DependencyOverride(m.ID); ok {
		deps, err := applyDependencyOverride(m.Dependencies, dover)
		if err != nil {
			return fail(err, "dependency override: %s", errors.UserMessage(err))
		}
		m.Dependencies = deps
	}

	return m, nil
}

func decodeRangeSpecs(msg json.RawMessage) ([]string, error) {
	var one string
	if err := json.Unmarshal(msg, &one); err == nil {
		return []string{one}, nil
	}
	var many []string
	if err := json.Unmarshal(msg, &many); err != nil {
		return nil, err
	}
	if len(many) == 0 {
		return []string{"*"}, nil
	}
	return many, nil
}

// decodeDocument reads exactly one JSON object from r; trailing data is an
// error. Keys must match their declared spelling; differently cased keys are
// ignored like any other unknown key.
func decodeDocument(r io.Reader) (*rawMetadata, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", MaxFileBytes)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}

	known := make(map[string]json.RawMessage, len(documentKeys))
	for _, k := range documentKeys {
		if v, ok := fields[k]; ok {
			known[k] = v
		}
	}
	data, err = json.Marshal(known)
	if err != nil {
		return nil, err
	}
	var raw rawMetadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &raw, nil
}
