// Package discovery finds candidate plugin packages and builds the graph of
// archives nested inside them.
//
// A [Discoverer] runs its [Finder]s in order, probes every reported archive
// or directory on a worker pool, and builds a [Graph] arena sequentially in
// submission order, so candidate IDs are stable across runs. Nested archives
// come from the jars a package declares, or for containers without usable
// metadata from every META-INF/jars/*.jar entry. Identical nested archives
// (by content hash) become a single [Candidate] with several parents.
//
//	d := discovery.New(discovery.Options{MaxDepth: 8},
//	    discovery.DirectoryFinder{Dir: "mods"},
//	    discovery.PathFinder{Paths: extra},
//	)
//	res, err := d.Discover(ctx)
//	if err != nil {
//	    return err // finder failure or cancellation
//	}
//	for _, c := range res.Conforming {
//	    fmt.Println(c.Metadata.ID, c.Metadata.Version)
//	}
//
// Failures to read or parse a single candidate never abort the run. The
// candidate lands in [Result.NonConforming] and a [Diagnostic] explains why.
package discovery
