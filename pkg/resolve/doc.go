// Package resolve selects the consistent set of candidates to load.
//
// [Resolver.Resolve] runs in fixed stages over the conforming candidates of
// a discovery run:
//
//  1. Drop candidates whose environment excludes the run environment.
//  2. Group by identity. A single candidate wins outright; otherwise a pin
//     selects, and without a pin the highest version does. Two candidates
//     sharing the top version is a conflict and nothing is chosen.
//  3. Let selected candidates compete for every identity they provide,
//     using the same rule. Losers are removed.
//  4. Validate dependencies once against the surviving set. Missing or
//     mismatched required dependencies and present breaking targets
//     remove the dependent; recommendations and soft conflicts only warn.
//
// The resolver never returns an error; every rejection is a [Conflict] in
// [Result.Diagnostics]. Resolve is pure apart from pin lookups.
package resolve
