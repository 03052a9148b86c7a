package discovery

import (
	"archive/zip"
	"bytes"
	"io"
	"io/fs"
	"os"

	"github.com/matzehuels/modscan/pkg/cache"
	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/metadata"
)

// jarGlob matches the conventional location of embedded archives. It is
// used for containers without usable metadata.
const jarGlob = "META-INF/jars/*.jar"

// archive is an opened candidate. close must be called exactly once.
type archive struct {
	fsys  fs.FS
	hash  string
	close func() error
}

// openPath opens a top-level candidate: a directory or a zip archive.
func openPath(path string) (*archive, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "open %s", path)
	}
	if info.IsDir() {
		return &archive{fsys: os.DirFS(path), close: func() error { return nil }}, nil
	}

	hash, err := hashFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "read %s", path)
	}
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "open %s", path)
	}
	return &archive{fsys: zr, hash: hash, close: zr.Close}, nil
}

// openBytes opens a nested archive already read into memory.
func openBytes(data []byte, locator string) (*archive, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "open %s", locator)
	}
	return &archive{fsys: zr, hash: cache.Hash(data), close: func() error { return nil }}, nil
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return cache.HashReader(f)
}

// readDoc reads the metadata file at the root of fsys, stopping one byte
// past the size limit so oversized files still fail to parse.
func readDoc(fsys fs.FS) ([]byte, error) {
	f, err := fsys.Open(metadata.FileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(io.LimitReader(f, metadata.MaxFileBytes+1))
}

// docOpener replays the outcome of readDoc for [metadata.Extract].
func docOpener(doc []byte, err error) metadata.Opener {
	return func() (io.ReadCloser, error) {
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(doc)), nil
	}
}

// jarEntries lists the conventional embedded archives of fsys.
func jarEntries(fsys fs.FS) []string {
	matches, _ := fs.Glob(fsys, jarGlob)
	return matches
}

// nestedPaths picks the archives to expand: the declared jars of a
// conforming container, otherwise every conventional embedded archive.
func nestedPaths(m *metadata.Metadata, entries []string) []string {
	if m != nil {
		return m.Jars
	}
	return entries
}
