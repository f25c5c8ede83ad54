package grid_world

import "fmt"

// Action is a displacement applied to the agent's position.
type Action struct {
	DRow, DCol int
}

var (
	Up        = Action{DRow: -1, DCol: 0}
	Left      = Action{DRow: 0, DCol: -1}
	Down      = Action{DRow: 1, DCol: 0}
	Right     = Action{DRow: 0, DCol: 1}
	UpLeft    = Action{DRow: -1, DCol: -1}
	DownLeft  = Action{DRow: 1, DCol: -1}
	DownRight = Action{DRow: 1, DCol: 1}
	UpRight   = Action{DRow: -1, DCol: 1}

	// FourWay and EightWay are the canonical action sets. Their order is the
	// tie-break order for greedy action selection.
	FourWay  = []Action{Up, Left, Down, Right}
	EightWay = []Action{Up, Left, Down, Right, UpLeft, DownLeft, DownRight, UpRight}
)

var actionNames = map[Action]string{
	Up:        "up",
	Left:      "left",
	Down:      "down",
	Right:     "right",
	UpLeft:    "up-left",
	DownLeft:  "down-left",
	DownRight: "down-right",
	UpRight:   "up-right",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("<%d,%d>", a.DRow, a.DCol)
}

// Apply returns the position reached by applying the action to s, without any bounds checks.
func (a Action) Apply(s State) State {
	return State{Row: s.Row + a.DRow, Col: s.Col + a.DCol}
}

// Perpendicular returns the two actions at right angles to this one.
func (a Action) Perpendicular() (Action, Action) {
	return Action{DRow: -a.DCol, DCol: a.DRow}, Action{DRow: a.DCol, DCol: -a.DRow}
}

// ActionSet returns the named action set: "four" or "eight".
func ActionSet(name string) ([]Action, error) {
	switch name {
	case "", "four":
		return FourWay, nil
	case "eight":
		return EightWay, nil
	}
	return nil, fmt.Errorf("unknown action set %q", name)
}
