package grid_world

import (
	"errors"
	"fmt"
)

// State is the agent's position on the grid. Row 0 is the top row when printed,
// column 0 is the leftmost column.
type State struct {
	Row, Col int
}

func (s State) String() string {
	return fmt.Sprintf("(%d,%d)", s.Row, s.Col)
}

// Cell is a single grid position and its static properties.
// The cell type is not part of the state's identity, but is used by the reward function.
type Cell struct {
	State
	CellType rune
}

// Blocked reports whether the agent may never occupy this cell.
func (c Cell) Blocked() bool {
	return c.CellType == WALL
}

// Step is a single time step of an agent: do action a in
// state s, observe reward r and successor s'.
type Step struct {
	State     State
	Action    Action
	Reward    float64
	Successor State
}

// Episode is a sequence of Steps.
type Episode []Step

// TotalReward sums the rewards over the episode.
func (ep Episode) TotalReward() (total float64) {
	for _, step := range ep {
		total += step.Reward
	}
	return
}

const (
	// Track cell types
	WALL  = 'W'
	FREE  = 'o'
	START = '-'
	GOAL  = '+'
)

// ErrInvalidMap is wrapped by every map construction error.
var ErrInvalidMap = errors.New("invalid map")

// A few built-in maps. The debug map is the 3x3 open grid; the other two have walls.
var (
	DebugTrack []string = []string{
		"-oo",
		"ooo",
		"oo+",
	}

	// Corridor has a unique shortest path of six steps.
	Corridor []string = []string{
		"-oo",
		"WWo",
		"+oo",
	}

	// Labyrinth is a larger map with a few dead ends, in the spirit of the classical 5x5 board
	// whose interior walls force a detour around the goal.
	Labyrinth []string = []string{
		"-ooWoooo",
		"oWoWoWWo",
		"oWoooWoo",
		"oWWWoWoW",
		"oooWoooo",
		"WWoWWWWo",
		"ooooooWo",
		"oWWWWooo",
		"ooooWoW+",
	}

	Tracks = map[string][]string{
		"debug":     DebugTrack,
		"corridor":  Corridor,
		"labyrinth": Labyrinth,
	}
)

// GridMap is the static map for a training run: cells, start and goal. It is never
// modified after construction.
type GridMap struct {
	cells [][]Cell
	start State
	goal  State
}

// Convert builds a GridMap from track strings, one string per row, top row first.
// Exactly one START and one GOAL cell are required.
func Convert(track []string) (*GridMap, error) {
	if len(track) == 0 || len(track[0]) == 0 {
		return nil, fmt.Errorf("%w: empty track", ErrInvalidMap)
	}

	width := len(track[0])
	cells := make([][]Cell, 0, len(track))
	starts, goals := []State{}, []State{}
	for row, line := range track {
		if len(line) != width {
			return nil, fmt.Errorf("%w: row %d has width %d, expected %d", ErrInvalidMap, row, len(line), width)
		}
		cells = append(cells, make([]Cell, 0, width))
		for col, cell_type := range line {
			state := State{Row: row, Col: col}
			switch cell_type {
			case WALL, FREE:
			case START:
				starts = append(starts, state)
			case GOAL:
				goals = append(goals, state)
			default:
				return nil, fmt.Errorf("%w: unknown cell type %q at %v", ErrInvalidMap, cell_type, state)
			}
			cells[row] = append(cells[row], Cell{State: state, CellType: cell_type})
		}
	}

	if len(starts) != 1 {
		return nil, fmt.Errorf("%w: expected one start cell, found %d", ErrInvalidMap, len(starts))
	}
	if len(goals) != 1 {
		return nil, fmt.Errorf("%w: expected one goal cell, found %d", ErrInvalidMap, len(goals))
	}

	return newGridMap(cells, starts[0], goals[0])
}

// NewGridMap builds a map from an explicit description: dimensions, blocked coordinates,
// start and goal.
func NewGridMap(rows, cols int, blocked []State, start, goal State) (*GridMap, error) {
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: dimensions %dx%d", ErrInvalidMap, rows, cols)
	}

	cells := make([][]Cell, rows)
	for row := range cells {
		cells[row] = make([]Cell, cols)
		for col := range cells[row] {
			cells[row][col] = Cell{State: State{Row: row, Col: col}, CellType: FREE}
		}
	}
	for _, b := range blocked {
		if b.Row < 0 || b.Row >= rows || b.Col < 0 || b.Col >= cols {
			return nil, fmt.Errorf("%w: blocked cell %v out of bounds", ErrInvalidMap, b)
		}
		cells[b.Row][b.Col].CellType = WALL
	}
	// Start and goal types are only assigned to free cells; newGridMap rejects the rest.
	if inBounds(cells, start) && !cells[start.Row][start.Col].Blocked() {
		cells[start.Row][start.Col].CellType = START
	}
	if inBounds(cells, goal) && !cells[goal.Row][goal.Col].Blocked() {
		cells[goal.Row][goal.Col].CellType = GOAL
	}

	return newGridMap(cells, start, goal)
}

func newGridMap(cells [][]Cell, start, goal State) (*GridMap, error) {
	for _, pos := range []struct {
		name  string
		state State
	}{{"start", start}, {"goal", goal}} {
		if !inBounds(cells, pos.state) {
			return nil, fmt.Errorf("%w: %s %v out of bounds", ErrInvalidMap, pos.name, pos.state)
		}
		if cells[pos.state.Row][pos.state.Col].Blocked() {
			return nil, fmt.Errorf("%w: %s %v is blocked", ErrInvalidMap, pos.name, pos.state)
		}
	}
	if start == goal {
		return nil, fmt.Errorf("%w: start and goal are both %v", ErrInvalidMap, start)
	}

	return &GridMap{
		cells: cells,
		start: start,
		goal:  goal,
	}, nil
}

func inBounds(cells [][]Cell, s State) bool {
	return s.Row >= 0 && s.Row < len(cells) && s.Col >= 0 && s.Col < len(cells[0])
}

func (gm *GridMap) Rows() int { return len(gm.cells) }

func (gm *GridMap) Cols() int { return len(gm.cells[0]) }

func (gm *GridMap) Start() State { return gm.start }

func (gm *GridMap) Goal() State { return gm.goal }

// InBounds reports whether the state lies on the map.
func (gm *GridMap) InBounds(s State) bool {
	return inBounds(gm.cells, s)
}

// IsBlocked reports whether the state is a wall. Out of bounds states are not blocked,
// they are simply not on the map.
func (gm *GridMap) IsBlocked(s State) bool {
	return gm.InBounds(s) && gm.cells[s.Row][s.Col].Blocked()
}

// Cell returns the cell at the passed state, which must be in bounds.
func (gm *GridMap) Cell(s State) Cell {
	return gm.cells[s.Row][s.Col]
}

// Visit visits every cell in row-major order using the passed function.
func (gm *GridMap) Visit(fn func(cell Cell)) {
	for row := range gm.cells {
		for col := range gm.cells[row] {
			fn(gm.cells[row][col])
		}
	}
}

// States returns every state the agent can occupy, in row-major order.
func (gm *GridMap) States() (states []State) {
	gm.Visit(func(cell Cell) {
		if !cell.Blocked() {
			states = append(states, cell.State)
		}
	})
	return
}
