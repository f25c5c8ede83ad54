package cell_views

import (
	"fmt"
	"html/template"

	"qnav/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

const gridCellDim = 80 // Cell height/width in pixels

// ValuesGrid shows each cell's max value and greedy action, shading the cells on the
// current greedy rollout path.
type ValuesGrid struct {
	id      string
	updates <-chan []fastview.EleUpdate
}

func NewValuesGrid(
	done <-chan struct{},
	grids <-chan *Grid,
) *ValuesGrid {
	vg := &ValuesGrid{id: "valuesgrid"}
	vg.updates = channerics.Convert(done, grids, vg.onUpdate)
	return vg
}

func (vg *ValuesGrid) Updates() <-chan []fastview.EleUpdate {
	return vg.updates
}

// Parse defines the grid's svg, one group per cell.
func (vg *ValuesGrid) Parse(t *template.Template) (name string, err error) {
	name = vg.id
	_, err = t.Funcs(template.FuncMap{"rolloutText": rolloutText}).Parse(
		`{{ define "` + name + `" }}
		<div id="` + vg.id + `-status" style="font-family: monospace; padding: 10px;">
			run <span id="` + vg.id + `-run">{{ .RunID }}</span>
			episode <span id="` + vg.id + `-episode">{{ .Episode }}</span>
			rollout <span id="` + vg.id + `-rollout">{{ rolloutText .ReachedGoal .PathLength }}</span>
		</div>
		<div>
			{{ $rows := len .Cells }}
			{{ $cols := len (index .Cells 0) }}
			{{ $cell_width := ` + fmt.Sprint(gridCellDim) + ` }}
			{{ $cell_height := $cell_width }}
			{{ $half_height := div $cell_height 2 }}
			{{ $half_width := div $cell_width 2 }}
			<svg id="` + vg.id + `"
				width="{{ add (mult $cell_width $cols) 1 }}px"
				height="{{ add (mult $cell_height $rows) 1 }}px"
				style="shape-rendering: crispEdges;">
				{{ range $row := .Cells }}
					{{ range $cell := $row }}
					<g>
						<rect id="{{$cell.X}}-{{$cell.Y}}-cell-rect"
							x="{{ mult $cell.X $cell_width }}"
							y="{{ mult $cell.Y $cell_height }}"
							width="{{ $cell_width }}"
							height="{{ $cell_height }}"
							fill="{{ $cell.Fill }}"
							stroke="black"
							stroke-width="1"/>
						<text id="{{$cell.X}}-{{$cell.Y}}-value-text"
							x="{{ add (mult $cell.X $cell_width) $half_width }}"
							y="{{ add (mult $cell.Y $cell_height) (sub $half_height 10) }}"
							stroke="blue"
							dominant-baseline="text-top" text-anchor="middle"
							>{{ printf "%.2f" $cell.Max }}</text>
						<g transform="translate({{ add (mult $cell.X $cell_width) $half_width }}, {{ add (mult $cell.Y $cell_height) (add $half_height 15) }})">
							<text id="{{$cell.X}}-{{$cell.Y}}-policy-arrow"
							stroke="blue" stroke-width="1"
							dominant-baseline="central" text-anchor="middle"
							visibility="{{ $cell.ArrowVisibility }}"
							transform="rotate({{ $cell.PolicyArrowRotation }})"
							>&uarr;</text>
						</g>
					</g>
					{{ end }}
				{{ end }}
			</svg>
		</div>
		{{ end }}`)
	return
}

func rolloutText(reachedGoal bool, pathLength int) string {
	if reachedGoal {
		return fmt.Sprintf("reaches goal in %d steps", pathLength)
	}
	return fmt.Sprintf("stopped after %d steps", pathLength)
}

// onUpdate returns the set of view updates needed for the view to reflect the current values.
func (vg *ValuesGrid) onUpdate(grid *Grid) (ops []fastview.EleUpdate) {
	ops = append(ops,
		textUpdate(vg.id+"-run", grid.RunID),
		textUpdate(vg.id+"-episode", fmt.Sprint(grid.Episode)),
		textUpdate(vg.id+"-rollout", rolloutText(grid.ReachedGoal, grid.PathLength)),
	)

	for _, row := range grid.Cells {
		for _, cell := range row {
			ops = append(ops,
				textUpdate(fmt.Sprintf("%d-%d-value-text", cell.X, cell.Y), fmt.Sprintf("%.2f", cell.Max)),
				fastview.EleUpdate{
					EleId: fmt.Sprintf("%d-%d-policy-arrow", cell.X, cell.Y),
					Ops: []fastview.Op{
						{Key: "transform", Value: fmt.Sprintf("rotate(%d)", cell.PolicyArrowRotation)},
						{Key: "visibility", Value: cell.ArrowVisibility},
					},
				},
				fastview.EleUpdate{
					EleId: fmt.Sprintf("%d-%d-cell-rect", cell.X, cell.Y),
					Ops:   []fastview.Op{{Key: "fill", Value: cell.Fill}},
				},
			)
		}
	}
	return
}

func textUpdate(id, text string) fastview.EleUpdate {
	return fastview.EleUpdate{
		EleId: id,
		Ops:   []fastview.Op{{Key: "textContent", Value: text}},
	}
}
