// Package overrides loads user-maintained corrections to package metadata
// from a TOML or YAML file.
//
// A file holds one table per package identity:
//
//	[mods.foo]
//	version = "1.2.0"     # replace foo's declared version
//	pin = "1.0.0"         # choose this version of foo during resolution
//
//	[mods.foo.ranges]     # replace dependency ranges; "" removes the constraint
//	bar = ">=2.0"
//
//	[mods.foo.depends]    # replace every entry of a kind
//	baz = "*"
//
//	[mods.foo."+recommends"] # add entries
//	modmenu = ["1.x", "2.x"]
//
//	[mods.foo."-breaks"]  # remove entries
//	oldmod = ""
//
// The YAML form has the same shape. A [Map] implements the override query
// interfaces of the metadata and resolve packages.
package overrides

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/metadata"
)

// Format is an override file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file extension.
func FormatFor(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return FormatTOML, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	}
	return "", errors.New(errors.ErrCodeUnsupported, "unsupported override file %q (want .toml, .yaml or .yml)", path)
}

// Entry is the override set of one package identity.
type Entry struct {
	Version      string                      // Replacement version
	Pin          string                      // Version to select during resolution
	Ranges       map[string]string           // Dependency target -> replacement range
	Dependencies metadata.DependencyOverride // Per-kind edits
}

// Map holds entries by package identity.
type Map map[string]Entry

// VersionOverride implements [metadata.VersionOverrides].
func (m Map) VersionOverride(modID string) (metadata.VersionOverride, bool) {
	e, ok := m[modID]
	if !ok || (e.Version == "" && len(e.Ranges) == 0) {
		return metadata.VersionOverride{}, false
	}
	return metadata.VersionOverride{Version: e.Version, Ranges: e.Ranges}, true
}

// DependencyOverride implements [metadata.DependencyOverrides].
func (m Map) DependencyOverride(modID string) (metadata.DependencyOverride, bool) {
	e, ok := m[modID]
	d := e.Dependencies
	if !ok || (len(d.Replace) == 0 && len(d.Remove) == 0 && len(d.Add) == 0) {
		return metadata.DependencyOverride{}, false
	}
	return d, true
}

// Pin implements resolve.Pins.
func (m Map) Pin(modID string) (string, bool) {
	e, ok := m[modID]
	if !ok || e.Pin == "" {
		return "", false
	}
	return e.Pin, true
}

// IDs returns the overridden identities in sorted order.
func (m Map) IDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// File is a Map loaded from disk.
type File struct {
	Path   string
	Format Format
	Map
}

// Load reads and parses the override file at path.
func Load(path string) (*File, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read override file")
	}
	m, err := Parse(data, format)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse %s", path)
	}
	return &File{Path: path, Format: format, Map: m}, nil
}

type document struct {
	Mods map[string]map[string]any `toml:"mods" yaml:"mods"`
}

// Parse decodes an override document.
func Parse(data []byte, format Format) (Map, error) {
	var doc document
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, errors.New(errors.ErrCodeUnsupported, "unsupported override format %q", format)
	}

	m := make(Map, len(doc.Mods))
	for id, raw := range doc.Mods {
		if err := errors.ValidateModID(id); err != nil {
			return nil, err
		}
		e, err := decodeEntry(raw)
		if err != nil {
			return nil, fmt.Errorf("mods.%s: %w", id, err)
		}
		m[id] = e
	}
	return m, nil
}

func decodeEntry(raw map[string]any) (Entry, error) {
	var e Entry
	for key, val := range raw {
		var err error
		switch key {
		case "version":
			e.Version, err = asString(val)
		case "pin":
			e.Pin, err = asString(val)
		case "ranges":
			e.Ranges, err = decodeRanges(val)
		default:
			err = decodeKind(&e.Dependencies, key, val)
		}
		if err != nil {
			return Entry{}, fmt.Errorf("%s: %w", key, err)
		}
	}
	return e, nil
}

// decodeKind handles "kind", "+kind" and "-kind" keys.
func decodeKind(d *metadata.DependencyOverride, key string, val any) error {
	op, name := "", key
	if strings.HasPrefix(key, "+") || strings.HasPrefix(key, "-") {
		op, name = key[:1], key[1:]
	}
	kind, ok := metadata.ParseDependencyKind(name)
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown key")
	}

	if op == "-" {
		ids, err := decodeIDs(val)
		if err != nil {
			return err
		}
		if d.Remove == nil {
			d.Remove = make(map[metadata.DependencyKind][]string)
		}
		d.Remove[kind] = append(d.Remove[kind], ids...)
		return nil
	}

	entries, err := decodeEntries(val)
	if err != nil {
		return err
	}
	target := &d.Replace
	if op == "+" {
		target = &d.Add
	}
	if *target == nil {
		*target = make(map[metadata.DependencyKind]map[string][]string)
	}
	(*target)[kind] = entries
	return nil
}

// decodeEntries reads a table of target -> range or list of ranges.
func decodeEntries(val any) (map[string][]string, error) {
	table, ok := val.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a table, got %T", val)
	}
	out := make(map[string][]string, len(table))
	for id, v := range table {
		switch v := v.(type) {
		case string:
			out[id] = []string{v}
		case []any:
			for _, item := range v {
				s, err := asString(item)
				if err != nil {
					return nil, fmt.Errorf("%s: %w", id, err)
				}
				out[id] = append(out[id], s)
			}
		default:
			return nil, errors.New(errors.ErrCodeInvalidInput, "%s: expected a range or a list of ranges, got %T", id, v)
		}
	}
	return out, nil
}

// decodeIDs accepts a list of identities or a table keyed by identity.
func decodeIDs(val any) ([]string, error) {
	switch v := val.(type) {
	case []any:
		ids := make([]string, 0, len(v))
		for _, item := range v {
			s, err := asString(item)
			if err != nil {
				return nil, err
			}
			ids = append(ids, s)
		}
		return ids, nil
	case map[string]any:
		ids := make([]string, 0, len(v))
		for id := range v {
			ids = append(ids, id)
		}
		slices.Sort(ids)
		return ids, nil
	}
	return nil, errors.New(errors.ErrCodeInvalidInput, "expected a list of mod ids, got %T", val)
}

func decodeRanges(val any) (map[string]string, error) {
	table, ok := val.(map[string]any)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "expected a table, got %T", val)
	}
	out := make(map[string]string, len(table))
	for id, v := range table {
		s, err := asString(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		out[id] = s
	}
	return out, nil
}

func asString(v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", errors.New(errors.ErrCodeInvalidInput, "expected a string, got %T", v)
	}
	return s, nil
}
