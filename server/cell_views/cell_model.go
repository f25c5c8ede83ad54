// cell_views contains views derived from the Cell view-model.
package cell_views

import (
	"math"

	"qnav/grid_world"
	"qnav/reinforcement"
)

// Cell is a grid cell's view parameters. Fields should be immediately usable in templates and
// element updates: X is the column and Y the row, which is already the svg orientation since
// row 0 is printed at the top.
type Cell struct {
	X, Y int
	// Max is max_a Q(s,a), zero for walls and the goal.
	Max float64
	// PolicyArrowRotation is the svg rotation in degrees, clockwise from up, of the greedy action.
	PolicyArrowRotation int
	// ArrowVisibility hides the policy arrow where there is no policy.
	ArrowVisibility string
	Fill            string
	OnPath          bool
}

// Grid is the view-model of a training snapshot.
type Grid struct {
	RunID       string
	Episode     int
	ReachedGoal bool
	PathLength  int
	// Cells is indexed [row][col].
	Cells [][]Cell
}

// Convert transforms a snapshot into the Grid view-model for consumption by cell views.
func Convert(snap reinforcement.Snapshot) *Grid {
	onPath := make(map[grid_world.State]bool, len(snap.Path))
	for _, state := range snap.Path {
		onPath[state] = true
	}

	cells := make([][]Cell, snap.Grid.Rows())
	for row := range cells {
		cells[row] = make([]Cell, snap.Grid.Cols())
	}

	snap.Grid.Visit(func(gc grid_world.Cell) {
		state := gc.State
		cell := Cell{
			X:               state.Col,
			Y:               state.Row,
			ArrowVisibility: "hidden",
			OnPath:          onPath[state],
		}
		if !gc.Blocked() && gc.CellType != grid_world.GOAL {
			best := snap.Table.BestAction(state)
			cell.Max = snap.Table.MaxValue(state)
			cell.PolicyArrowRotation = getDegrees(best)
			cell.ArrowVisibility = "visible"
		}
		cell.Fill = getFill(gc.CellType, cell.OnPath)
		cells[state.Row][state.Col] = cell
	})

	return &Grid{
		RunID:       snap.RunID,
		Episode:     snap.Episode,
		ReachedGoal: snap.ReachedGoal,
		PathLength:  max(0, len(snap.Path)-1),
		Cells:       cells,
	}
}

// getDegrees converts an action's displacement into the degrees passed to svg's rotate()
// transform function for an upward arrow rune. Rows grow downward, as do svg y coordinates.
func getDegrees(action grid_world.Action) int {
	rad := math.Atan2(float64(action.DCol), float64(-action.DRow))
	return int(math.Round(rad * 180 / math.Pi))
}

func getFill(cellType rune, onPath bool) (fill string) {
	switch cellType {
	case grid_world.WALL:
		fill = "dimgray"
	case grid_world.START:
		fill = "lightblue"
	case grid_world.GOAL:
		fill = "lightyellow"
	default:
		fill = "lightgray"
		if onPath {
			fill = "palegreen"
		}
	}
	return
}
