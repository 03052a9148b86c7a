package discovery

import (
	"path"
	"strings"

	"github.com/matzehuels/modscan/pkg/metadata"
)

// NestedSeparator joins the locator of a containing archive and the path of
// an archive nested inside it.
const NestedSeparator = "!/"

// Candidate is one discovered archive or directory. Candidates are owned by
// a [Graph]; containment edges live in the graph, not on the candidate.
type Candidate struct {
	ID            int                // Arena index, stable for the run
	Locator       string             // Filesystem path, or outer!/inner/path.jar when nested
	Hash          string             // SHA-256 of the archive bytes ("" for directories)
	Metadata      *metadata.Metadata // Extracted metadata, nil when non-conforming
	ParseErr      error              // Why Metadata is nil (nil when conforming)
	RequiresRemap bool               // Inherited from the finder that reported the top-level archive
	TopLevel      bool               // Reported by a finder rather than found inside another archive
}

// Conforming reports whether the candidate carries usable metadata.
func (c *Candidate) Conforming() bool { return c.Metadata != nil }

// FileName returns the final segment of the locator, looking through the
// nested separator.
func (c *Candidate) FileName() string { return BaseName(c.Locator) }

// String renders "id version" for conforming candidates and the locator
// otherwise.
func (c *Candidate) String() string {
	if c.Metadata == nil {
		return c.Locator
	}
	return c.Metadata.ID + " " + c.Metadata.Version.String()
}

// BaseName returns the final path segment of a locator. Both OS separators
// and the nested separator split segments.
func BaseName(locator string) string {
	if i := strings.LastIndex(locator, NestedSeparator); i >= 0 {
		locator = locator[i+len(NestedSeparator):]
	}
	locator = strings.ReplaceAll(locator, "\\", "/")
	return path.Base(locator)
}
