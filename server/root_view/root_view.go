package root_view

import (
	"context"
	"fmt"
	"html/template"
	"maps"
	"slices"
	"strings"
	"time"

	"qnav/reinforcement"
	"qnav/server/cell_views"
	"qnav/server/fastview"

	channerics "github.com/niceyeti/channerics/channels"
)

const batchRate = 20 * time.Millisecond

// RootView is the index page: it hosts the view components and merges their updates.
type RootView struct {
	views   []fastview.ViewComponent
	updates <-chan []fastview.EleUpdate
}

// NewRootView builds the main page and the views it contains for a grid of the passed
// dimensions. Snapshots are converted once to the cell view-model and broadcast to every view.
func NewRootView(
	ctx context.Context,
	rows, cols int,
	snapshots <-chan reinforcement.Snapshot,
) (*RootView, error) {
	views, err := fastview.NewViewBuilder[reinforcement.Snapshot, *cell_views.Grid]().
		WithContext(ctx).
		WithModel(snapshots, cell_views.Convert).
		WithView(
			func(done <-chan struct{}, grids <-chan *cell_views.Grid) fastview.ViewComponent {
				return cell_views.NewValuesGrid(done, grids)
			},
			func(done <-chan struct{}, grids <-chan *cell_views.Grid) fastview.ViewComponent {
				return cell_views.NewValueFunction(done, rows, cols, grids)
			}).
		Build()
	if err != nil {
		return nil, err
	}

	return &RootView{
		views:   views,
		updates: merge(ctx.Done(), views),
	}, nil
}

// Updates returns the batched element updates of every view.
func (rv *RootView) Updates() <-chan []fastview.EleUpdate {
	return rv.updates
}

// Parse defines the page template, the views' templates nested in its body, and returns the
// page's template name. The arithmetic funcs are registered here for the views' use.
func (rv *RootView) Parse(parent *template.Template) (string, error) {
	t := parent.Funcs(template.FuncMap{
		"add":  func(i, j int) int { return i + j },
		"sub":  func(i, j int) int { return i - j },
		"mult": func(i, j int) int { return i * j },
		"div":  func(i, j int) int { return i / j },
	})

	var body strings.Builder
	for _, view := range rv.views {
		viewName, err := view.Parse(t)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&body, `{{ template %q . }}`, viewName)
	}

	page := strings.NewReplacer(
		"{{NAME}}", pageName,
		"{{BODY}}", body.String(),
	).Replace(pageTemplate)
	if _, err := t.Parse(page); err != nil {
		return "", fmt.Errorf("parse %s: %w", pageName, err)
	}
	return pageName, nil
}

const pageName = "mainpage"

// pageTemplate connects to /ws and applies pushed element updates, reconnecting when the
// server goes away. Each update names an element id and the attributes to set on it;
// the textContent key sets the element's text instead.
const pageTemplate = `
{{ define "{{NAME}}" }}
<!DOCTYPE html>
<html>
	<head>
		<link rel="icon" href="data:,">
		<script>
			function apply(update) {
				const ele = document.getElementById(update.EleId);
				if (ele === null) {
					return;
				}
				for (const op of update.Ops) {
					if (op.Key === "textContent") {
						ele.textContent = op.Value;
					} else {
						ele.setAttribute(op.Key, op.Value);
					}
				}
			}

			function connect(delay) {
				const status = document.getElementById("connection");
				const ws = new WebSocket("ws://" + location.host + "/ws");
				ws.onopen = () => {
					status.textContent = "live";
					delay = 500;
				};
				ws.onmessage = (event) => JSON.parse(event.data).forEach(apply);
				ws.onclose = () => {
					status.textContent = "disconnected";
					setTimeout(() => connect(Math.min(delay * 2, 10000)), delay);
				};
			}

			window.addEventListener("load", () => connect(500));
		</script>
	</head>
	<body>
	<div style="font-family: monospace; padding: 10px;">
		<span id="connection">connecting</span> |
		<a href="/stats">statistics</a> | <a href="/rollout">rollout</a>
	</div>
	{{BODY}}
	</body></html>
{{ end }}
`

// merge combines the views' update channels into one channel of coalesced batches.
func merge(done <-chan struct{}, views []fastview.ViewComponent) <-chan []fastview.EleUpdate {
	var sources []<-chan []fastview.EleUpdate
	for _, view := range views {
		sources = append(sources, view.Updates())
	}
	return coalesce(done, channerics.Merge(done, sources...), batchRate)
}

// coalesce gathers updates into a batch keyed by element id, where a later update to an
// element replaces the earlier one. Each period the batch is offered to the output and kept
// growing if nobody takes it, so the views never wait on a client.
func coalesce(
	done <-chan struct{},
	source <-chan []fastview.EleUpdate,
	period time.Duration,
) <-chan []fastview.EleUpdate {
	output := make(chan []fastview.EleUpdate)

	go func() {
		defer close(output)

		pending := map[string]fastview.EleUpdate{}
		ticks := channerics.NewTicker(done, period)
		input := channerics.OrDone(done, source)
		for {
			select {
			case <-done:
				return
			case updates, ok := <-input:
				if !ok {
					return
				}
				for _, update := range updates {
					pending[update.EleId] = update
				}
			case <-ticks:
				if len(pending) == 0 {
					continue
				}
				select {
				case output <- slices.Collect(maps.Values(pending)):
					pending = map[string]fastview.EleUpdate{}
				default:
				}
			}
		}
	}()

	return output
}
