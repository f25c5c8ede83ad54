package fastview

import (
	"context"
	"html/template"
	"strconv"
	"testing"
	"time"

	channerics "github.com/niceyeti/channerics/channels"
	. "github.com/smartystreets/goconvey/convey"
)

// textView publishes each view-model string as the text of a single element.
type textView struct {
	id      string
	updates <-chan []EleUpdate
}

func newTextView(id string) ViewBuilderFunc[string] {
	return func(done <-chan struct{}, models <-chan string) ViewComponent {
		tv := &textView{id: id}
		tv.updates = channerics.Convert(done, models, func(text string) []EleUpdate {
			return []EleUpdate{{EleId: tv.id, Ops: []Op{{Key: "textContent", Value: text}}}}
		})
		return tv
	}
}

func (tv *textView) Updates() <-chan []EleUpdate { return tv.updates }

func (tv *textView) Parse(t *template.Template) (string, error) {
	_, err := t.Parse(`{{ define "` + tv.id + `" }}<span id="` + tv.id + `">{{ . }}</span>{{ end }}`)
	return tv.id, err
}

func receive(updates <-chan []EleUpdate) []EleUpdate {
	select {
	case update := <-updates:
		return update
	case <-time.After(time.Second):
		return nil
	}
}

func TestViewBuilder(t *testing.T) {
	Convey("When views are built", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		Convey("When no views were added", func() {
			_, err := NewViewBuilder[int, string]().
				WithModel(make(chan int), strconv.Itoa).
				Build()
			So(err, ShouldEqual, ErrNoViews)
		})

		Convey("When no model was added", func() {
			_, err := NewViewBuilder[int, string]().
				WithView(newTextView("a")).
				Build()
			So(err, ShouldEqual, ErrNoModel)
		})

		Convey("When the builder succeeds", func() {
			input := make(chan int)
			views, err := NewViewBuilder[int, string]().
				WithContext(ctx).
				WithModel(input, strconv.Itoa).
				WithView(newTextView("a"), newTextView("b")).
				Build()
			So(err, ShouldBeNil)
			So(len(views), ShouldEqual, 2)

			go func() { input <- 42 }()

			// every view receives every converted model
			for i, id := range []string{"a", "b"} {
				updates := receive(views[i].Updates())
				So(updates, ShouldResemble, []EleUpdate{
					{EleId: id, Ops: []Op{{Key: "textContent", Value: "42"}}},
				})
			}

			name, err := views[1].Parse(template.New("root"))
			So(err, ShouldBeNil)
			So(name, ShouldEqual, "b")
		})
	})
}
