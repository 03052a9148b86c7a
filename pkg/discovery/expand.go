package discovery

import (
	"context"
	"encoding/json"
	"io/fs"

	"github.com/matzehuels/modscan/pkg/cache"
	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/metadata"
	"github.com/matzehuels/modscan/pkg/observability"
)

// probeCacheNamespace versions the cached probe records.
const probeCacheNamespace = "probe:v1"

// probe is the intermediate outcome of inspecting one archive, produced by
// the worker pool before the arena is built.
type probe struct {
	locator  string
	hash     string
	meta     *metadata.Metadata
	err      error
	children []*probe

	// clean marks subtrees without I/O failures or depth cuts; only those
	// are cached.
	clean  bool
	height int
	record *probeRecord
}

// probeRecord is the cached form of a clean nested probe. Metadata is kept
// as the raw document so overrides apply on every run.
type probeRecord struct {
	Doc     []byte            `json:"doc,omitempty"`
	Missing bool              `json:"missing,omitempty"`
	Jars    []string          `json:"jars,omitempty"`
	Nested  map[string]string `json:"nested,omitempty"` // entry path -> content hash
	Height  int               `json:"height"`
}

// probeTop inspects a top-level candidate.
func (d *Discoverer) probeTop(ctx context.Context, e entry) *probe {
	p := &probe{locator: e.locator}
	a, err := openPath(e.locator)
	if err != nil {
		p.err = err
		return p
	}
	defer a.close()

	p.hash = a.hash
	d.inspect(ctx, p, a.fsys, 0)
	d.log.Debug("probed", "locator", p.locator, "conforming", p.meta != nil, "nested", len(p.children))
	return p
}

// probeEntry inspects the archive stored at path inside fsys.
func (d *Discoverer) probeEntry(ctx context.Context, fsys fs.FS, parent, path string, depth int) *probe {
	loc := parent + NestedSeparator + path
	if depth > d.opts.MaxDepth {
		return &probe{
			locator: loc,
			err:     errors.New(errors.ErrCodeNestingTooDeep, "%s is nested deeper than %d levels", loc, d.opts.MaxDepth),
		}
	}

	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return &probe{locator: loc, err: errors.Wrap(errors.ErrCodeArchive, err, "read nested archive %s", loc)}
	}

	hash := cache.Hash(data)
	if p, ok := d.loadProbe(ctx, loc, hash, depth); ok {
		d.log.Debug("probe cache hit", "locator", loc)
		return p
	}

	a, err := openBytes(data, loc)
	if err != nil {
		return &probe{locator: loc, hash: hash, err: err}
	}
	defer a.close()

	p := &probe{locator: loc, hash: hash}
	d.inspect(ctx, p, a.fsys, depth)
	d.storeProbe(ctx, p)
	return p
}

// inspect extracts the metadata of an opened archive and recursively
// probes the archives nested in it.
func (d *Discoverer) inspect(ctx context.Context, p *probe, fsys fs.FS, depth int) {
	doc, docErr := readDoc(fsys)
	p.meta, p.err = metadata.Extract(docOpener(doc, docErr), p.locator, d.opts.VersionOverrides, d.opts.DependencyOverrides)

	entries := jarEntries(fsys)
	rec := &probeRecord{
		Doc:     doc,
		Missing: docErr != nil,
		Jars:    entries,
		Nested:  make(map[string]string),
	}
	p.clean = docErr == nil || errors.Is(p.err, errors.ErrCodeMissingMetadata)

	for _, path := range nestedPaths(p.meta, entries) {
		if ctx.Err() != nil {
			p.clean = false
			return
		}
		child := d.probeEntry(ctx, fsys, p.locator, path, depth+1)
		p.children = append(p.children, child)
		p.clean = p.clean && child.clean
		p.height = max(p.height, child.height+1)
		if child.hash != "" {
			rec.Nested[path] = child.hash
		}
	}
	rec.Height = p.height
	p.record = rec
}

// loadProbe rebuilds a nested probe from the cache. Any missing record in
// the subtree, or a subtree that would now exceed the depth limit, is a miss.
func (d *Discoverer) loadProbe(ctx context.Context, loc, hash string, depth int) (*probe, bool) {
	data, ok, err := d.cache.Get(ctx, cache.Key(probeCacheNamespace, hash))
	if err != nil {
		d.log.Warn("probe cache read failed", "locator", loc, "err", err)
		return nil, false
	}
	if !ok {
		observability.Cache().OnCacheMiss(ctx, "probe")
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, "probe")
	var rec probeRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, false
	}
	if depth+rec.Height > d.opts.MaxDepth {
		return nil, false
	}

	var docErr error
	if rec.Missing {
		docErr = fs.ErrNotExist
	}
	p := &probe{locator: loc, hash: hash, clean: true, height: rec.Height, record: &rec}
	p.meta, p.err = metadata.Extract(docOpener(rec.Doc, docErr), loc, d.opts.VersionOverrides, d.opts.DependencyOverrides)

	for _, path := range nestedPaths(p.meta, rec.Jars) {
		childHash, ok := rec.Nested[path]
		if !ok {
			return nil, false
		}
		child, ok := d.loadProbe(ctx, loc+NestedSeparator+path, childHash, depth+1)
		if !ok {
			return nil, false
		}
		p.children = append(p.children, child)
	}
	return p, true
}

// storeProbe caches a clean nested probe. Children were stored before
// their parent, so a stored record always has its subtree available.
func (d *Discoverer) storeProbe(ctx context.Context, p *probe) {
	if !p.clean || p.record == nil {
		return
	}
	data, err := json.Marshal(p.record)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, cache.Key(probeCacheNamespace, p.hash), data, 0); err != nil {
		d.log.Warn("probe cache write failed", "locator", p.locator, "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, "probe", len(data))
}
