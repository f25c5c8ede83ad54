package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"qnav/grid_world"
	"qnav/reinforcement"
	"qnav/server/fastview"

	"github.com/gorilla/websocket"
	. "github.com/smartystreets/goconvey/convey"
)

func trainedSnapshot(t *testing.T, telemetry *reinforcement.Telemetry) reinforcement.Snapshot {
	grid, err := grid_world.Convert(grid_world.DebugTrack)
	if err != nil {
		t.Fatal(err)
	}
	env := grid_world.NewEnvironment(grid, grid_world.FourWay, grid_world.DefaultRewards)
	params := reinforcement.DefaultParams()
	trainer, err := reinforcement.NewTrainer(env, params, reinforcement.WithTelemetry(telemetry))
	if err != nil {
		t.Fatal(err)
	}
	table, _, err := trainer.Train(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return reinforcement.NewSnapshot(trainer.RunID(), params.NumEpisodes-1, env, table, params.MaxStepsPerEpisode)
}

func get(url string) (*http.Response, string) {
	resp, err := http.Get(url)
	So(err, ShouldBeNil)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	So(err, ShouldBeNil)
	return resp, string(body)
}

func TestServer(t *testing.T) {
	Convey("When the server is running", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		telemetry := reinforcement.NewTelemetry()
		snap := trainedSnapshot(t, telemetry)
		snapshots := make(chan reinforcement.Snapshot)
		server, err := NewServer(ctx, "localhost:0", snap, snapshots, telemetry)
		So(err, ShouldBeNil)

		ts := httptest.NewServer(server.Handler())
		defer ts.Close()

		Convey("When the index is requested", func() {
			resp, body := get(ts.URL + "/")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "<svg")
			So(body, ShouldContainSubstring, snap.RunID)
			So(body, ShouldContainSubstring, "reaches goal in 4 steps")
		})

		Convey("When the rollout is requested", func() {
			resp, body := get(ts.URL + "/rollout")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)

			var rollout RolloutResponse
			So(json.Unmarshal([]byte(body), &rollout), ShouldBeNil)
			So(rollout.RunID, ShouldEqual, snap.RunID)
			So(rollout.ReachedGoal, ShouldBeTrue)
			So(rollout.Steps, ShouldEqual, 4)
			So(rollout.Path[0], ShouldResemble, PathStateJSON{Row: 0, Col: 0})
			So(rollout.Path[4], ShouldResemble, PathStateJSON{Row: 2, Col: 2})
			So(rollout.Episodes, ShouldEqual, 500)
		})

		Convey("When the stats are requested", func() {
			resp, body := get(ts.URL + "/stats")
			So(resp.StatusCode, ShouldEqual, http.StatusOK)
			So(body, ShouldContainSubstring, "echarts")
			So(body, ShouldContainSubstring, "Total reward")
		})

		Convey("When a route does not exist", func() {
			resp, _ := get(ts.URL + "/missing")
			So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
		})

		Convey("When a new snapshot is published", func() {
			next := snap
			next.Episode = 1000
			snapshots <- next

			Convey("When the rollout is requested", func() {
				// the latest snapshot is stored asynchronously
				var rollout RolloutResponse
				for i := 0; i < 50 && rollout.Episode != 1000; i++ {
					_, body := get(ts.URL + "/rollout")
					So(json.Unmarshal([]byte(body), &rollout), ShouldBeNil)
					time.Sleep(10 * time.Millisecond)
				}
				So(rollout.Episode, ShouldEqual, 1000)
			})

			Convey("When a websocket client connects", func() {
				wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
				conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
				So(err, ShouldBeNil)
				defer conn.Close()

				So(conn.SetReadDeadline(time.Now().Add(3*time.Second)), ShouldBeNil)
				var updates []fastview.EleUpdate
				So(conn.ReadJSON(&updates), ShouldBeNil)
				So(updates, ShouldNotBeEmpty)
			})
		})
	})
}
