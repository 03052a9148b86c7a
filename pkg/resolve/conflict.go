package resolve

import (
	"strings"

	"github.com/matzehuels/modscan/pkg/errors"
)

// Reason classifies a [Conflict].
type Reason string

const (
	ReasonVersionTie         Reason = "VERSION_TIE"
	ReasonPinUnsatisfied     Reason = "PIN_UNSATISFIED"
	ReasonSuperseded         Reason = "SUPERSEDED"
	ReasonProvidedElsewhere  Reason = "PROVIDED_ELSEWHERE"
	ReasonMissingDependency  Reason = "MISSING_DEPENDENCY"
	ReasonDependencyVersion  Reason = "DEPENDENCY_VERSION"
	ReasonBreaks             Reason = "BREAKS"
	ReasonMissingRecommended Reason = "MISSING_RECOMMENDED"
	ReasonConflicts          Reason = "CONFLICTS"
)

// Conflict is one resolution diagnostic.
type Conflict struct {
	ModID    string          // Identity the conflict is about
	Origins  []string        // Locators of the candidates involved
	Reason   Reason          // Machine-readable classification
	Severity errors.Severity // Error: a candidate was rejected
	Message  string          // Human-readable explanation
}

// Rejecting reports whether the conflict removed a candidate or left an
// identity unresolved.
func (c Conflict) Rejecting() bool { return c.Severity == errors.SeverityError }

// Err converts the conflict into a RESOLUTION_CONFLICT error.
func (c Conflict) Err() error {
	return errors.New(errors.ErrCodeResolutionConflict, "%s: %s", c.Reason, c.Message)
}

// String returns the message followed by the origins.
func (c Conflict) String() string {
	if len(c.Origins) == 0 {
		return c.Message
	}
	return c.Message + " [" + strings.Join(c.Origins, ", ") + "]"
}
