package race

import "fmt"

// Action is one entry of the fixed action enumeration.
type Action uint8

const (
	ActionLeft  Action = iota // Move in the negative grid direction
	ActionRight               // Move in the positive grid direction
	ActionEat                 // Feed from the current cell
	ActionMate                // Look for a spouse in the current cell
	ActionFight               // Attack a creature sharing the cell
)

// CanonicalActions is the default action set in dispatch order.
var CanonicalActions = []Action{ActionLeft, ActionRight, ActionEat, ActionMate, ActionFight}

var actionNames = [...]string{
	ActionLeft:  "left",
	ActionRight: "right",
	ActionEat:   "eat",
	ActionMate:  "mate",
	ActionFight: "fight",
}

// String implements fmt.Stringer.
func (a Action) String() string {
	if int(a) < len(actionNames) {
		return actionNames[a]
	}
	return fmt.Sprintf("action(%d)", uint8(a))
}

// ParseAction maps an action name to its Action.
func ParseAction(name string) (Action, error) {
	for i, n := range actionNames {
		if n == name {
			return Action(i), nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", name)
}
