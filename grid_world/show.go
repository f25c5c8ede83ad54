package grid_world

import (
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
)

var actionRunes = map[Action]rune{
	Up:        '↑',
	Left:      '←',
	Down:      '↓',
	Right:     '→',
	UpLeft:    '↖',
	DownLeft:  '↙',
	DownRight: '↘',
	UpRight:   '↗',
}

// Rune returns an arrow for the action, for console display.
func (a Action) Rune() rune {
	if r, ok := actionRunes[a]; ok {
		return r
	}
	return '?'
}

// ShowGrid prints the map, for visual reference.
func ShowGrid(w io.Writer, grid *GridMap) {
	for row := 0; row < grid.Rows(); row++ {
		for col := 0; col < grid.Cols(); col++ {
			cell := grid.Cell(State{Row: row, Col: col})
			fmt.Fprintf(w, "%s ", colorize(cell, string(cell.CellType)))
		}
		fmt.Fprintln(w)
	}
}

// ShowPolicy prints the greedy action of every free cell as an arrow. Cells on the
// passed path are highlighted, so a rollout can be read off the console.
func ShowPolicy(w io.Writer, grid *GridMap, bestAction func(State) Action, path []State) {
	onPath := make(map[State]bool, len(path))
	for _, s := range path {
		onPath[s] = true
	}

	for row := 0; row < grid.Rows(); row++ {
		fmt.Fprint(w, " ")
		for col := 0; col < grid.Cols(); col++ {
			cell := grid.Cell(State{Row: row, Col: col})
			switch {
			case cell.Blocked():
				fmt.Fprint(w, aurora.Blue("W"), " ")
			case cell.CellType == GOAL:
				fmt.Fprint(w, aurora.Green("+"), " ")
			case onPath[cell.State]:
				fmt.Fprint(w, aurora.Bold(aurora.Yellow(string(bestAction(cell.State).Rune()))), " ")
			default:
				fmt.Fprint(w, string(bestAction(cell.State).Rune()), " ")
			}
		}
		fmt.Fprintln(w)
	}
}

// ShowMaxValues prints the value of every free cell, i.e. the max over its action values.
func ShowMaxValues(w io.Writer, grid *GridMap, maxValue func(State) float64) {
	fmt.Fprintln(w, "Max vals:")
	total := 0.0
	for row := 0; row < grid.Rows(); row++ {
		fmt.Fprint(w, " ")
		for col := 0; col < grid.Cols(); col++ {
			cell := grid.Cell(State{Row: row, Col: col})
			if cell.Blocked() {
				fmt.Fprintf(w, "%7s ", "-")
				continue
			}
			val := maxValue(cell.State)
			total += val
			fmt.Fprint(w, colorize(cell, fmt.Sprintf("%7.2f", val)), " ")
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Total: %.2f\n", total)
}

func colorize(cell Cell, s string) aurora.Value {
	switch cell.CellType {
	case WALL:
		return aurora.Blue(s)
	case START:
		return aurora.Cyan(s)
	case GOAL:
		return aurora.Green(s)
	}
	return aurora.White(s)
}
