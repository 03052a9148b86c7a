// Package pkg provides the core libraries for modscan: discovering plugin
// archives the way a Fabric-style mod loader does and deciding which of
// them load.
//
// # Overview
//
// A loader is handed a mods directory full of jars. Some carry a
// fabric.mod.json, some embed further jars under META-INF/jars, and some
// are not mods at all. The pkg directory is organized around that flow:
//
//  1. [metadata] - The package model: identity, versions, ranges and
//     dependency relations, parsed from fabric.mod.json with overrides.
//  2. [discovery] - Finders, archive probing and the candidate graph that
//     records which archive was found inside which.
//  3. [resolve] - Environment filtering, version selection, provided
//     identities and dependency validation.
//  4. [report] - The three log blocks a loader prints: non-fabric files,
//     nested providers and resolution issues.
//  5. [loader] - Orchestration (discover → resolve → report) shared by the
//     CLI and embedding hosts.
//
// # Architecture
//
//	mods/ + extra paths
//	         ↓
//	    [discovery] finders → worker pool → candidate graph
//	         ↓
//	    [resolve] one candidate per identity
//	         ↓
//	    [report] sink (charmbracelet/log by default)
//
// # Quick Start
//
//	runner := loader.NewRunner(report.NewLogSink(logger), logger)
//	res, err := runner.Execute(ctx, loader.Options{
//	    ModsDir:       "mods",
//	    Environment:   metadata.EnvServer,
//	    OverridesPath: "config/fabric_loader_dependencies.toml",
//	})
//	if err != nil {
//	    return err
//	}
//	for _, c := range res.Resolution.Accepted {
//	    fmt.Println(c.Metadata.ID, c.Metadata.Version)
//	}
//
// # Supporting Packages
//
// [overrides] loads per-mod version and dependency overrides from TOML or
// YAML. [cache] stores archive probes keyed by content hash so unchanged
// nested jars are not reopened. [observability] exposes pipeline and cache
// hooks. [render/containment] exports the candidate graph as DOT or SVG.
// [errors] carries the error codes and severities shared by every stage.
//
// [metadata]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/metadata
// [discovery]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/discovery
// [resolve]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/resolve
// [report]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/report
// [loader]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/loader
// [overrides]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/overrides
// [cache]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/cache
// [observability]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/observability
// [render/containment]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/render/containment
// [errors]: https://pkg.go.dev/github.com/matzehuels/modscan/pkg/errors
package pkg
