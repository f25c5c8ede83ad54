package grid_world

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestConvert(t *testing.T) {
	Convey("When a track is converted", t, func() {
		Convey("When the track is valid", func() {
			grid, err := Convert(Corridor)
			So(err, ShouldBeNil)
			So(grid.Rows(), ShouldEqual, 3)
			So(grid.Cols(), ShouldEqual, 3)
			So(grid.Start(), ShouldResemble, State{Row: 0, Col: 0})
			So(grid.Goal(), ShouldResemble, State{Row: 2, Col: 0})
			So(grid.IsBlocked(State{Row: 1, Col: 0}), ShouldBeTrue)
			So(grid.IsBlocked(State{Row: 1, Col: 2}), ShouldBeFalse)
			So(len(grid.States()), ShouldEqual, 7)
		})

		Convey("When the track has no goal", func() {
			_, err := Convert([]string{"-oo", "ooo"})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When the track has two starts", func() {
			_, err := Convert([]string{"-o-", "oo+"})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When the track is ragged", func() {
			_, err := Convert([]string{"-oo", "o+"})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When the track has an unknown cell type", func() {
			_, err := Convert([]string{"-x+"})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When the track is empty", func() {
			_, err := Convert(nil)
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When every built-in track is converted", func() {
			for name, track := range Tracks {
				_, err := Convert(track)
				So(err, ShouldBeNil)
				So(name, ShouldNotBeEmpty)
			}
		})
	})
}

func TestNewGridMap(t *testing.T) {
	Convey("When a map is built from a description", t, func() {
		Convey("When the description is valid", func() {
			grid, err := NewGridMap(3, 4, []State{{Row: 1, Col: 1}}, State{Row: 0, Col: 0}, State{Row: 2, Col: 3})
			So(err, ShouldBeNil)
			So(grid.Cols(), ShouldEqual, 4)
			So(grid.Cell(State{Row: 0, Col: 0}).CellType, ShouldEqual, START)
			So(grid.Cell(State{Row: 2, Col: 3}).CellType, ShouldEqual, GOAL)
			So(grid.IsBlocked(State{Row: 1, Col: 1}), ShouldBeTrue)
		})

		Convey("When the start is out of bounds", func() {
			_, err := NewGridMap(3, 3, nil, State{Row: -1, Col: 0}, State{Row: 2, Col: 2})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When the goal is blocked", func() {
			_, err := NewGridMap(3, 3, []State{{Row: 2, Col: 2}}, State{Row: 0, Col: 0}, State{Row: 2, Col: 2})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When the start equals the goal", func() {
			_, err := NewGridMap(3, 3, nil, State{Row: 1, Col: 1}, State{Row: 1, Col: 1})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When a blocked cell is out of bounds", func() {
			_, err := NewGridMap(3, 3, []State{{Row: 5, Col: 5}}, State{Row: 0, Col: 0}, State{Row: 2, Col: 2})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})

		Convey("When the dimensions are not positive", func() {
			_, err := NewGridMap(0, 3, nil, State{Row: 0, Col: 0}, State{Row: 0, Col: 1})
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})
	})
}

func TestStep(t *testing.T) {
	Convey("When the environment steps", t, func() {
		grid, err := Convert(Corridor)
		So(err, ShouldBeNil)
		rewards := Rewards{Goal: 10, Step: -1, Blocked: -5}
		env := NewEnvironment(grid, FourWay, rewards)

		Convey("Reset returns the start", func() {
			So(env.Reset(), ShouldResemble, grid.Start())
		})

		Convey("When the action points off the top-left corner", func() {
			for _, action := range []Action{Up, Left} {
				reward, next, terminal := env.Step(State{Row: 0, Col: 0}, action)
				So(next, ShouldResemble, State{Row: 0, Col: 0})
				So(reward, ShouldEqual, -5)
				So(terminal, ShouldBeFalse)
			}
		})

		Convey("When the action points into a wall", func() {
			reward, next, terminal := env.Step(State{Row: 0, Col: 1}, Down)
			So(next, ShouldResemble, State{Row: 0, Col: 1})
			So(reward, ShouldEqual, -5)
			So(terminal, ShouldBeFalse)
		})

		Convey("When the action is a legal move", func() {
			reward, next, terminal := env.Step(State{Row: 0, Col: 1}, Right)
			So(next, ShouldResemble, State{Row: 0, Col: 2})
			So(reward, ShouldEqual, -1)
			So(terminal, ShouldBeFalse)
		})

		Convey("When the action reaches the goal", func() {
			reward, next, terminal := env.Step(State{Row: 2, Col: 1}, Left)
			So(next, ShouldResemble, grid.Goal())
			So(reward, ShouldEqual, 10)
			So(terminal, ShouldBeTrue)
		})

		Convey("When stepping from the goal", func() {
			reward, next, terminal := env.Step(grid.Goal(), Up)
			So(next, ShouldResemble, grid.Goal())
			So(reward, ShouldEqual, 0)
			So(terminal, ShouldBeTrue)
		})

		Convey("No state-action pair ever leaves the map or lands on a wall", func() {
			eightWay := NewEnvironment(grid, EightWay, rewards)
			for _, state := range grid.States() {
				for _, action := range eightWay.Actions() {
					_, next, _ := eightWay.Step(state, action)
					So(grid.InBounds(next), ShouldBeTrue)
					So(grid.IsBlocked(next), ShouldBeFalse)
				}
			}
		})

		Convey("Step is a pure function of state and action", func() {
			r1, n1, t1 := env.Step(State{Row: 1, Col: 2}, Down)
			r2, n2, t2 := env.Step(State{Row: 1, Col: 2}, Down)
			So(r1, ShouldEqual, r2)
			So(n1, ShouldResemble, n2)
			So(t1, ShouldEqual, t2)
		})
	})
}

func TestSlip(t *testing.T) {
	Convey("When the environment slips", t, func() {
		grid, err := NewGridMap(3, 3, nil, State{Row: 1, Col: 1}, State{Row: 2, Col: 2})
		So(err, ShouldBeNil)

		Convey("When the slip probability is one, the agent always moves perpendicular", func() {
			env := NewEnvironment(grid, FourWay, DefaultRewards, WithSlip(1.0, rand.New(rand.NewSource(3))))
			for i := 0; i < 100; i++ {
				_, next, _ := env.Step(State{Row: 1, Col: 1}, Up)
				So(next.Row, ShouldEqual, 1)
				So(next.Col, ShouldNotEqual, 1)
			}
		})

		Convey("When the slip probability is zero, the agent always moves as chosen", func() {
			env := NewEnvironment(grid, FourWay, DefaultRewards, WithSlip(0, rand.New(rand.NewSource(3))))
			_, next, _ := env.Step(State{Row: 1, Col: 1}, Up)
			So(next, ShouldResemble, State{Row: 0, Col: 1})
		})
	})
}

func TestActions(t *testing.T) {
	Convey("When actions are inspected", t, func() {
		Convey("Perpendicular actions are at right angles", func() {
			a, b := Up.Perpendicular()
			So([]Action{a, b}, ShouldContain, Left)
			So([]Action{a, b}, ShouldContain, Right)
			c, d := DownRight.Perpendicular()
			So([]Action{c, d}, ShouldContain, DownLeft)
			So([]Action{c, d}, ShouldContain, UpRight)
		})

		Convey("Action sets are looked up by name", func() {
			four, err := ActionSet("four")
			So(err, ShouldBeNil)
			So(four, ShouldResemble, FourWay)
			eight, err := ActionSet("eight")
			So(err, ShouldBeNil)
			So(len(eight), ShouldEqual, 8)
			_, err = ActionSet("six")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestFromImage(t *testing.T) {
	Convey("When a map is read from an image", t, func() {
		img := image.NewRGBA(image.Rect(0, 0, 3, 2))
		for x := 0; x < 3; x++ {
			for y := 0; y < 2; y++ {
				img.Set(x, y, color.White)
			}
		}
		img.Set(0, 0, color.RGBA{G: 255, A: 255})
		img.Set(1, 0, color.Black)
		img.Set(2, 1, color.RGBA{R: 255, A: 255})

		buf := &bytes.Buffer{}
		So(png.Encode(buf, img), ShouldBeNil)

		grid, err := FromImage(buf)
		So(err, ShouldBeNil)
		So(grid.Rows(), ShouldEqual, 2)
		So(grid.Cols(), ShouldEqual, 3)
		So(grid.Start(), ShouldResemble, State{Row: 0, Col: 0})
		So(grid.Goal(), ShouldResemble, State{Row: 1, Col: 2})
		So(grid.IsBlocked(State{Row: 0, Col: 1}), ShouldBeTrue)

		Convey("When the input is not an image", func() {
			_, err := FromImage(strings.NewReader("not a png"))
			So(errors.Is(err, ErrInvalidMap), ShouldBeTrue)
		})
	})
}

func TestShow(t *testing.T) {
	Convey("When the grid and policy are printed", t, func() {
		grid, err := Convert(DebugTrack)
		So(err, ShouldBeNil)
		buf := &bytes.Buffer{}

		ShowGrid(buf, grid)
		So(buf.String(), ShouldContainSubstring, "+")

		buf.Reset()
		ShowPolicy(buf, grid, func(State) Action { return Right }, []State{grid.Start()})
		So(buf.String(), ShouldContainSubstring, "→")

		buf.Reset()
		ShowMaxValues(buf, grid, func(State) float64 { return 1 })
		So(buf.String(), ShouldContainSubstring, "Total: 9.00")
	})
}
