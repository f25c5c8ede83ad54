package cell_views

import (
	"fmt"
	"html/template"
	"math"
	"strconv"
	"strings"

	"qnav/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

// ValueFunction provides a view of the current value function as an isometric 2d
// projection of the 3d surface (col, row, max value).
type ValueFunction struct {
	id      string
	updates <-chan []fastview.EleUpdate

	width, height float64 // canvas size in pixels
	xyscale       float64 // pixels per x or y unit
	zscale        float64 // pixels per z unit
	sinAng        float64
	cosAng        float64
}

// NewValueFunction sizes the view for a grid of the passed dimensions.
func NewValueFunction(
	done <-chan struct{},
	rows, cols int,
	grids <-chan *Grid,
) *ValueFunction {
	const cellDim = 60
	// angle of x, y axes
	ang := math.Pi / 6
	vf := &ValueFunction{
		id:      "valuefunction",
		width:   float64(cols) * cellDim,
		height:  float64(rows) * cellDim,
		xyscale: cellDim,
		zscale:  cellDim * 0.3,
		sinAng:  math.Sin(ang),
		cosAng:  math.Cos(ang),
	}
	vf.updates = channerics.Convert(done, grids, vf.onUpdate)
	return vf
}

func (vf *ValueFunction) Updates() <-chan []fastview.EleUpdate {
	return vf.updates
}

type point struct{ x, y float64 }

// project maps a grid position and its height to the isometric canvas.
func (vf *ValueFunction) project(col, row int, height float64) point {
	x, y := float64(col), float64(row)
	return point{
		x: (x - y) * vf.cosAng * vf.xyscale,
		y: (x+y)*vf.sinAng*vf.xyscale - height*vf.zscale,
	}
}

// facet is the quadrilateral of the surface spanned by a cell and its right, lower and
// lower-right neighbours.
type facet struct {
	Id      string
	corners [4]point
	avg     float64
}

// Points formats the corners for the svg polygon points attribute.
func (f facet) Points() string {
	var sb strings.Builder
	for i, c := range f.corners {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d,%d", int(c.x), int(c.y))
	}
	return sb.String()
}

// facets returns the surface in drawing order: row by row, right to left, so that nearer
// facets are drawn over farther ones.
func (vf *ValueFunction) facets(cells [][]Cell) []facet {
	if len(cells) < 2 || len(cells[0]) < 2 {
		return nil
	}

	var out []facet
	for ri := 0; ri < len(cells)-1; ri++ {
		for ci := len(cells[ri]) - 2; ci >= 0; ci-- {
			quad := [4]Cell{cells[ri+1][ci], cells[ri][ci], cells[ri][ci+1], cells[ri+1][ci+1]}
			f := facet{Id: fmt.Sprintf("%d-%d-value-polygon", ci, ri)}
			for i, cell := range quad {
				f.corners[i] = vf.project(cell.X, cell.Y, cell.Max)
				f.avg += cell.Max / 4
			}
			out = append(out, f)
		}
	}
	return out
}

// onUpdate reshapes and recolors every facet, then fits the surface to the canvas.
func (vf *ValueFunction) onUpdate(grid *Grid) []fastview.EleUpdate {
	facets := vf.facets(grid.Cells)
	if facets == nil {
		return nil
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range grid.Cells {
		for _, cell := range row {
			lo = math.Min(lo, cell.Max)
			hi = math.Max(hi, cell.Max)
		}
	}

	topLeft := point{math.Inf(1), math.Inf(1)}
	bottomRight := point{math.Inf(-1), math.Inf(-1)}
	updates := make([]fastview.EleUpdate, 0, len(facets)+1)
	for _, f := range facets {
		for _, c := range f.corners {
			topLeft.x, topLeft.y = math.Min(topLeft.x, c.x), math.Min(topLeft.y, c.y)
			bottomRight.x, bottomRight.y = math.Max(bottomRight.x, c.x), math.Max(bottomRight.y, c.y)
		}
		updates = append(updates, fastview.EleUpdate{
			EleId: f.Id,
			Ops: []fastview.Op{
				{Key: "points", Value: f.Points()},
				{Key: "fill", Value: getRGBFill(f.avg, lo, hi)},
			},
		})
	}

	// Only shrink, never enlarge.
	scale := math.Min(1, math.Min(
		2*vf.width/(bottomRight.x-topLeft.x),
		2*vf.height/(bottomRight.y-topLeft.y),
	))
	updates = append(updates, fastview.EleUpdate{
		EleId: vf.id + "-group",
		Ops: []fastview.Op{{
			Key:   "transform",
			Value: fmt.Sprintf("scale(%f) translate(%d %d)", scale, int(-topLeft.x), int(-topLeft.y)),
		}},
	})
	return updates
}

// getRGBFill shades from blue at lo to red at hi.
func getRGBFill(val, lo, hi float64) string {
	redPct := 50
	if hi > lo {
		redPct = int(100 * (val - lo) / (hi - lo))
	}
	return fmt.Sprintf("rgb(%d%%,0%%,%d%%)", redPct, 100-redPct)
}

// Parse defines an svg holding one black polygon per facet; updates shade and fit them.
func (vf *ValueFunction) Parse(t *template.Template) (string, error) {
	t = t.Funcs(template.FuncMap{
		"facets": vf.facets,
	})
	_, err := t.Parse(`{{ define "` + vf.id + `" }}
	<div style="padding:40px;">
		<svg id="` + vf.id + `" xmlns='http://www.w3.org/2000/svg'
			width="` + strconv.Itoa(int(2*vf.width)) + `px"
			height="` + strconv.Itoa(int(2*vf.height)) + `px"
			style="shape-rendering: crispEdges; stroke: lightgrey; stroke-opacity: 1.0; stroke-width: 3;">
			<g id="` + vf.id + `-group" transform="translate(0 0)">
			{{ range facets .Cells }}
				<polygon id="{{ .Id }}" fill="black" fill-opacity="1.0" points="{{ .Points }}" />
			{{ end }}
			</g>
		</svg>
	</div>
	{{ end }}`)
	return vf.id, err
}
