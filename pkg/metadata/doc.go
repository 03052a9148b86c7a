// Package metadata models the identity, version and dependency declarations
// of a plugin package and extracts them from a package's metadata file.
//
// # Model
//
// [Metadata] is an immutable value: identity, [Version], [Dependency]
// relations, provided identities, an [Environment] restriction and the
// nested archives the package embeds. Versions are semantic-version-like
// and totally ordered; [VersionRange] expresses the constraints a
// dependency places on its target.
//
// # Extraction
//
// [Parse] reads a JSON document shaped like:
//
//	{
//	  "schemaVersion": 1,
//	  "id": "mod1",
//	  "version": "0.1.0",
//	  "environment": "*",
//	  "depends": {"fabricloader": ">=0.15", "mod2": ["^2.2", "3.x"]},
//	  "breaks": {"oldmod": "<1.0"},
//	  "provides": ["mod1_legacy"],
//	  "jars": [{"file": "META-INF/jars/lib.jar"}]
//	}
//
// Overrides are applied while parsing, version override first and
// dependency override second, each looked up by the package's own identity.
// Unusable documents yield a [*ParseError]; [Extract] additionally maps a
// missing file to [ErrNoMetadata] and always closes the stream.
package metadata
