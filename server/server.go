package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"qnav/reinforcement"
	"qnav/server/cell_views"
	"qnav/server/fastview"
	"qnav/server/root_view"
	"qnav/server/stats_views"

	"github.com/gorilla/mux"
	channerics "github.com/niceyeti/channerics/channels"
)

const (
	shutdownGracePeriod = 5 * time.Second
	statsWindow         = 20
)

// Server serves the training views: the index page with its websocket of element updates,
// the episode statistics chart, and the latest greedy rollout as json.
// The index page's update channel is shared, so only one websocket client at a time
// receives updates.
type Server struct {
	addr      string
	rootView  *root_view.RootView
	telemetry *reinforcement.Telemetry
	latest    atomic.Pointer[reinforcement.Snapshot]
	router    *mux.Router
}

// NewServer builds all of the views from the initial snapshot's grid and returns a server.
// Snapshots received on the passed chan update the views, and are consumed whether or not a
// client is connected.
func NewServer(
	ctx context.Context,
	addr string,
	initial reinforcement.Snapshot,
	snapshots <-chan reinforcement.Snapshot,
	telemetry *reinforcement.Telemetry,
) (*Server, error) {
	outputs := channerics.Broadcast(ctx.Done(), snapshots, 2)
	rootView, err := root_view.NewRootView(ctx, initial.Grid.Rows(), initial.Grid.Cols(), outputs[0])
	if err != nil {
		return nil, fmt.Errorf("build views: %w", err)
	}

	server := &Server{
		addr:      addr,
		rootView:  rootView,
		telemetry: telemetry,
	}
	server.latest.Store(&initial)
	go func() {
		for snap := range outputs[1] {
			server.latest.Store(&snap)
		}
	}()

	server.router = mux.NewRouter()
	server.router.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	server.router.HandleFunc("/ws", server.serveWebsocket)
	server.router.HandleFunc("/stats", server.serveStats).Methods(http.MethodGet)
	server.router.HandleFunc("/rollout", server.serveRollout).Methods(http.MethodGet)
	return server, nil
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until the context is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:    server.addr,
		Handler: server.router,
	}

	errs := make(chan error, 1)
	go func() {
		errs <- srv.ListenAndServe()
	}()
	log.Printf("serving on http://%s", server.addr)

	select {
	case err := <-errs:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: shutdown: %w", err)
	}
	if err := <-errs; !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// serveWebsocket publishes view updates to the client via websocket.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	cli, err := fastview.NewClient(server.rootView.Updates(), w, r)
	if err != nil {
		log.Println(err)
		return
	}

	if err := cli.Sync(); err != nil {
		log.Println("websocket client:", err)
	}
}

// Serve the index.html main page, rendered with the latest snapshot.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	grid := cell_views.Convert(*server.latest.Load())
	if err := renderTemplate(w, server.rootView, grid); err != nil {
		log.Println("render index:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (server *Server) serveStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	snap := server.latest.Load()
	if err := stats_views.Render(w, snap.RunID, server.telemetry.History(), statsWindow); err != nil {
		log.Println(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RolloutResponse is the json form of the latest greedy rollout.
type RolloutResponse struct {
	RunID       string          `json:"runId"`
	Episode     int             `json:"episode"`
	ReachedGoal bool            `json:"reachedGoal"`
	Steps       int             `json:"steps"`
	Path        []PathStateJSON `json:"path"`
	Episodes    int64           `json:"episodesTrained"`
	Goals       int64           `json:"episodesReachedGoal"`
	Epsilon     float64         `json:"epsilon"`
}

type PathStateJSON struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func newRolloutResponse(snap *reinforcement.Snapshot, telemetry *reinforcement.Telemetry) RolloutResponse {
	path := make([]PathStateJSON, len(snap.Path))
	for i, state := range snap.Path {
		path[i] = PathStateJSON{Row: state.Row, Col: state.Col}
	}
	return RolloutResponse{
		RunID:       snap.RunID,
		Episode:     snap.Episode,
		ReachedGoal: snap.ReachedGoal,
		Steps:       max(0, len(snap.Path)-1),
		Path:        path,
		Episodes:    telemetry.Episodes(),
		Goals:       telemetry.Goals(),
		Epsilon:     telemetry.Epsilon.AtomicRead(),
	}
}

func (server *Server) serveRollout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := newRolloutResponse(server.latest.Load(), server.telemetry)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Println("encode rollout:", err)
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}
	return t.Execute(w, data)
}
