package creature

import (
	"errors"
	"fmt"
)

// Contract violations. Callers branch on kind with errors.Is / errors.As.
// Running out of energy is not an error: it kills the creature.
var (
	ErrDeadEntity         = errors.New("dead-entity access")
	ErrInvalidAction      = errors.New("invalid-action")
	ErrInvariantViolation = errors.New("invariant-violation")
)

// ActionError reports a policy decision outside the race's action set.
type ActionError struct {
	Creature   string
	Index      int
	NumActions int
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: policy chose action %d, valid range is [0,%d)", e.Creature, e.Index, e.NumActions)
}

// Unwrap makes errors.Is(err, ErrInvalidAction) hold.
func (e *ActionError) Unwrap() error { return ErrInvalidAction }
