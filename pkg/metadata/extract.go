package metadata

import (
	stderrors "errors"
	"io"
	"io/fs"

	"github.com/matzehuels/modscan/pkg/errors"
)

// Opener opens the metadata stream of one candidate.
type Opener func() (io.ReadCloser, error)

// Extract opens the metadata stream, parses it and closes it on every exit
// path. An opener reporting fs.ErrNotExist yields [ErrNoMetadata].
func Extract(open Opener, source string, vo VersionOverrides, do DependencyOverrides) (*Metadata, error) {
	rc, err := open()
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoMetadata
		}
		return nil, errors.Wrap(errors.ErrCodeArchive, err, "open %s in %s", FileName, source)
	}
	defer rc.Close()

	return Parse(rc, source, vo, do)
}

// FSOpener returns an Opener reading [FileName] from the root of fsys.
func FSOpener(fsys fs.FS) Opener {
	return func() (io.ReadCloser, error) {
		return fsys.Open(FileName)
	}
}
