package resolve

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/modscan/pkg/discovery"
	"github.com/matzehuels/modscan/pkg/errors"
	"github.com/matzehuels/modscan/pkg/metadata"
)

// Pins looks up a user-pinned version for an identity.
type Pins interface {
	Pin(modID string) (version string, ok bool)
}

// Options configures a [Resolver].
type Options struct {
	// Env is the run environment. EnvCommon accepts every candidate.
	Env metadata.Environment

	// Pins selects versions for identities with several candidates.
	// Nil means no pins.
	Pins Pins

	// Logger receives debug output. Nil discards it.
	Logger *log.Logger
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	if o.Pins == nil {
		o.Pins = noPins{}
	}
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return o
}

type noPins struct{}

func (noPins) Pin(string) (string, bool) { return "", false }

// Result is the outcome of a resolution.
type Result struct {
	Accepted    []*discovery.Candidate // Discovery order
	Diagnostics []Conflict             // Stage order, then candidate order

	provided map[string]*discovery.Candidate
}

// Lookup returns the accepted candidate answering for id, either as its
// own identity or as a provided one.
func (r *Result) Lookup(id string) (*discovery.Candidate, bool) {
	c, ok := r.provided[id]
	return c, ok
}

// Rejected returns the diagnostics that removed a candidate.
func (r *Result) Rejected() []Conflict {
	var out []Conflict
	for _, c := range r.Diagnostics {
		if c.Rejecting() {
			out = append(out, c)
		}
	}
	return out
}

// Resolver selects candidates. It holds no state between calls.
type Resolver struct {
	opts Options
}

// New creates a Resolver.
func New(opts Options) *Resolver {
	return &Resolver{opts: opts.WithDefaults()}
}

// run carries the working state of one Resolve call.
type run struct {
	opts    Options
	diags   []Conflict
	removed map[*discovery.Candidate]bool
	dropped map[*discovery.Candidate]map[string]bool // lost alias claims
}

// Resolve selects the loadable subset of cands. Candidates without
// metadata are ignored.
func (r *Resolver) Resolve(cands []*discovery.Candidate) *Result {
	st := &run{
		opts:    r.opts,
		removed: make(map[*discovery.Candidate]bool),
		dropped: make(map[*discovery.Candidate]map[string]bool),
	}
	logger := r.opts.Logger

	var order []string
	groups := make(map[string][]*discovery.Candidate)
	for _, c := range cands {
		if c.Metadata == nil {
			continue
		}
		if !c.Metadata.Environment.Matches(r.opts.Env) {
			logger.Debug("environment excludes candidate", "mod", c.Metadata.ID, "env", c.Metadata.Environment)
			continue
		}
		id := c.Metadata.ID
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], c)
	}

	var selected []*discovery.Candidate
	for _, id := range order {
		winner := st.choose(id, groups[id], ReasonSuperseded, func(*discovery.Candidate) errors.Severity {
			return errors.SeverityInfo
		})
		if winner != nil {
			selected = append(selected, winner)
		}
	}

	st.settleProvides(selected)

	provided := make(map[string]*discovery.Candidate)
	for _, c := range selected {
		if st.removed[c] {
			continue
		}
		for _, id := range c.Metadata.Identities() {
			if st.answers(c, id) {
				provided[id] = c
			}
		}
	}

	for _, c := range selected {
		if !st.removed[c] {
			st.validate(c, provided)
		}
	}

	res := &Result{Diagnostics: st.diags, provided: make(map[string]*discovery.Candidate)}
	chosen := make(map[*discovery.Candidate]bool, len(selected))
	for _, c := range selected {
		if !st.removed[c] {
			chosen[c] = true
		}
	}
	for _, c := range cands {
		if chosen[c] {
			res.Accepted = append(res.Accepted, c)
		}
	}
	for id, c := range provided {
		if chosen[c] {
			res.provided[id] = c
		}
	}
	logger.Debug("resolved", "accepted", len(res.Accepted), "diagnostics", len(res.Diagnostics))
	return res
}

// choose applies the selection rule to the contenders for identity: a pin
// when set, else the highest version. Losers are reported with loser at
// the severity sev returns for them. A nil return means the identity is
// unresolved.
func (st *run) choose(identity string, contenders []*discovery.Candidate, loser Reason, sev func(*discovery.Candidate) errors.Severity) *discovery.Candidate {
	if len(contenders) == 1 {
		return contenders[0]
	}

	var winner *discovery.Candidate
	if pin, ok := st.opts.Pins.Pin(identity); ok {
		winner = st.pinned(identity, pin, contenders)
		if winner == nil {
			return nil
		}
	} else {
		winner = contenders[0]
		for _, c := range contenders[1:] {
			if c.Metadata.Version.Compare(winner.Metadata.Version) > 0 {
				winner = c
			}
		}
		var top []*discovery.Candidate
		for _, c := range contenders {
			if c.Metadata.Version.Equal(winner.Metadata.Version) {
				top = append(top, c)
			}
		}
		if len(top) > 1 {
			// Contenders lose their claim; owners of identity lose the candidate.
			tieSev := errors.SeverityWarning
			if slices.ContainsFunc(contenders, func(c *discovery.Candidate) bool { return c.Metadata.ID == identity }) {
				tieSev = errors.SeverityError
			}
			st.report(Conflict{
				ModID:    identity,
				Origins:  origins(top),
				Reason:   ReasonVersionTie,
				Severity: tieSev,
				Message: fmt.Sprintf("%d candidates for %s share version %s; none was selected",
					len(top), identity, winner.Metadata.Version),
			})
			return nil
		}
	}

	for _, c := range contenders {
		if c == winner {
			continue
		}
		st.report(Conflict{
			ModID:    identity,
			Origins:  []string{c.Locator, winner.Locator},
			Reason:   loser,
			Severity: sev(c),
			Message:  fmt.Sprintf("%s %s lost %s to %s %s", c.Metadata.ID, c.Metadata.Version, identity, winner.Metadata.ID, winner.Metadata.Version),
		})
	}
	return winner
}

// pinned returns the first contender at the pinned version.
func (st *run) pinned(identity, pin string, contenders []*discovery.Candidate) *discovery.Candidate {
	want, err := metadata.ParseVersion(pin)
	if err == nil {
		for _, c := range contenders {
			if c.Metadata.Version.Equal(want) {
				return c
			}
		}
	}

	var found []string
	for _, c := range contenders {
		found = append(found, c.Metadata.Version.String())
	}
	st.report(Conflict{
		ModID:    identity,
		Origins:  origins(contenders),
		Reason:   ReasonPinUnsatisfied,
		Severity: errors.SeverityError,
		Message: fmt.Sprintf("no candidate for %s matches pinned version %s (found %s)",
			identity, pin, strings.Join(found, ", ")),
	})
	return nil
}

// settleProvides lets selected candidates compete for every identity they
// answer for. Identities are settled in order of first appearance.
//
// A candidate losing its own identity is removed. A candidate losing an
// alias keeps its own identity and stops answering for the alias.
func (st *run) settleProvides(selected []*discovery.Candidate) {
	var order []string
	seen := make(map[string]bool)
	for _, c := range selected {
		for _, id := range c.Metadata.Identities() {
			if !seen[id] {
				seen[id] = true
				order = append(order, id)
			}
		}
	}

	for _, id := range order {
		var contenders []*discovery.Candidate
		for _, c := range selected {
			if !st.removed[c] && st.answers(c, id) {
				contenders = append(contenders, c)
			}
		}
		if len(contenders) < 2 {
			continue
		}
		owns := func(c *discovery.Candidate) bool { return c.Metadata.ID == id }
		winner := st.choose(id, contenders, ReasonProvidedElsewhere, func(c *discovery.Candidate) errors.Severity {
			if owns(c) {
				return errors.SeverityError
			}
			return errors.SeverityWarning
		})
		for _, c := range contenders {
			switch {
			case c == winner:
			case owns(c):
				st.removed[c] = true
			default:
				st.dropAlias(c, id)
			}
		}
	}
}

// validate checks the dependencies of c against the accepted set.
func (st *run) validate(c *discovery.Candidate, provided map[string]*discovery.Candidate) {
	m := c.Metadata
	reject := func(reason Reason, target *discovery.Candidate, format string, args ...any) {
		o := []string{c.Locator}
		if target != nil {
			o = append(o, target.Locator)
		}
		st.report(Conflict{
			ModID:    m.ID,
			Origins:  o,
			Reason:   reason,
			Severity: errors.SeverityError,
			Message:  fmt.Sprintf(format, args...),
		})
		st.removed[c] = true
	}
	warn := func(reason Reason, target *discovery.Candidate, format string, args ...any) {
		o := []string{c.Locator}
		if target != nil {
			o = append(o, target.Locator)
		}
		st.report(Conflict{
			ModID:    m.ID,
			Origins:  o,
			Reason:   reason,
			Severity: errors.SeverityWarning,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	for _, dep := range m.Dependencies {
		target := provided[dep.ModID]
		switch dep.Kind {
		case metadata.Depends:
			switch {
			case target == nil:
				reject(ReasonMissingDependency, nil,
					"%s %s requires %s %s, which is missing", m.ID, m.Version, dep.ModID, metadata.FormatRanges(dep.Ranges))
			case !dep.Matches(target.Metadata.Version):
				reject(ReasonDependencyVersion, target,
					"%s %s requires %s %s, but %s is present", m.ID, m.Version, dep.ModID, metadata.FormatRanges(dep.Ranges), target.Metadata.Version)
			}
		case metadata.Breaks:
			if target != nil && dep.Matches(target.Metadata.Version) {
				reject(ReasonBreaks, target,
					"%s %s is incompatible with %s %s", m.ID, m.Version, dep.ModID, target.Metadata.Version)
			}
		case metadata.Recommends:
			if target == nil || !dep.Matches(target.Metadata.Version) {
				warn(ReasonMissingRecommended, target,
					"%s %s recommends %s %s", m.ID, m.Version, dep.ModID, metadata.FormatRanges(dep.Ranges))
			}
		case metadata.Conflicts:
			if target != nil && dep.Matches(target.Metadata.Version) {
				warn(ReasonConflicts, target,
					"%s %s conflicts with %s %s", m.ID, m.Version, dep.ModID, target.Metadata.Version)
			}
		}
	}
}

func (st *run) report(c Conflict) {
	st.opts.Logger.Debug("conflict", "mod", c.ModID, "reason", c.Reason)
	st.diags = append(st.diags, c)
}

// answers reports whether c still answers for id.
func (st *run) answers(c *discovery.Candidate, id string) bool {
	return !st.dropped[c][id] && slices.Contains(c.Metadata.Identities(), id)
}

func (st *run) dropAlias(c *discovery.Candidate, id string) {
	if st.dropped[c] == nil {
		st.dropped[c] = make(map[string]bool)
	}
	st.dropped[c][id] = true
}

func origins(cs []*discovery.Candidate) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Locator
	}
	return out
}
