package emserve_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emlayout"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/emserve"
	"github.com/emodeling/emod/lib/log"
)

func startServer(t *testing.T, opts emserve.ServeOpts) *emserve.Server {
	t.Helper()
	ctx := log.WithTB(context.Background(), t, nil)
	ctx, cancel := context.WithCancel(ctx)

	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	if opts.Port == "" {
		opts.Port = "0"
	}
	env := xos.NewEnv(os.Environ())
	s, err := emserve.New(ctx, cmdlog.Log(env, io.Discard), env, opts)
	require.NoError(t, err)

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		_ = s.Run()
	}()
	t.Cleanup(func() {
		cancel()
		<-runDone
	})
	return s
}

func dial(t *testing.T, s *emserve.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	c, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/layout", s.Addr()), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close(websocket.StatusNormalClosure, "")
	})
	return c
}

func layoutRequest(id int64) *emserve.LayoutRequest {
	return &emserve.LayoutRequest{
		RequestID: id,
		SerializedSnapshot: emgraph.SerializedSnapshot{
			Nodes: []*emgraph.SerializedNode{
				{ID: "t1", Category: "trigger", GroupID: "a"},
				{ID: "c1", Category: "command", GroupID: "b"},
			},
			Links: []*emgraph.SerializedLink{
				{ID: "l1", Source: "t1", Target: "c1"},
			},
			Groups: []*emgraph.SerializedSlice{
				{ID: "a"}, {ID: "b", Order: 1},
			},
		},
	}
}

func TestServerLayout(t *testing.T) {
	t.Parallel()

	s := startServer(t, emserve.ServeOpts{})
	c := dial(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	require.NoError(t, wsjson.Write(ctx, c, layoutRequest(1)))

	var resp emserve.LayoutResponse
	require.NoError(t, wsjson.Read(ctx, c, &resp))
	assert.Equal(t, emserve.TypeSuccess, resp.Type)
	assert.EqualValues(t, 1, resp.RequestID)
	require.Contains(t, resp.Positions, "t1")
	require.Contains(t, resp.Positions, "c1")
	for id, p := range resp.Positions {
		assert.Zero(t, math.Mod(p.X, emlayout.DefaultGridUnit), "%s x off grid", id)
		assert.Zero(t, math.Mod(p.Y, emlayout.DefaultGridUnit), "%s y off grid", id)
	}
}

type boomEngine struct{}

func (boomEngine) Layout(ctx context.Context, g *emelk.Graph) (*emelk.Graph, error) {
	return nil, errors.New("boom")
}

func TestServerLayoutError(t *testing.T) {
	t.Parallel()

	s := startServer(t, emserve.ServeOpts{Engine: boomEngine{}})
	c := dial(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	require.NoError(t, wsjson.Write(ctx, c, layoutRequest(1)))

	var resp emserve.LayoutResponse
	require.NoError(t, wsjson.Read(ctx, c, &resp))
	assert.Equal(t, emserve.TypeError, resp.Type)
	assert.EqualValues(t, 1, resp.RequestID)
	assert.Contains(t, resp.Message, "boom")
}

func TestServerViewer(t *testing.T) {
	t.Parallel()

	s := startServer(t, emserve.ServeOpts{})

	resp, err := http.Get(fmt.Sprintf("http://%s/", s.Addr()))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "emod-canvas")

	resp2, err := http.Get(fmt.Sprintf("http://%s/static/viewer.js", s.Addr()))
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestServerWatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"nodes": [
			{"id": "t1", "category": "trigger", "groupId": "a"},
			{"id": "c1", "category": "command", "groupId": "b"}
		],
		"links": [{"id": "l1", "source": "t1", "target": "c1"}],
		"groups": [{"id": "a"}, {"id": "b", "order": 1}]
	}`), 0644))

	s := startServer(t, emserve.ServeOpts{WatchPath: path})
	c := dial(t, s)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()

	// the connect handshake delivers the last computed layout
	var resp emserve.LayoutResponse
	require.NoError(t, wsjson.Read(ctx, c, &resp))
	assert.Equal(t, emserve.TypeSuccess, resp.Type)
	assert.Contains(t, resp.Positions, "t1")

	// editing the file broadcasts a recompute
	require.NoError(t, os.WriteFile(path, []byte(`{
		"nodes": [
			{"id": "t1", "category": "trigger", "groupId": "a"},
			{"id": "c1", "category": "command", "groupId": "b"},
			{"id": "e1", "category": "event", "groupId": "b"}
		],
		"links": [{"id": "l1", "source": "t1", "target": "c1"}],
		"groups": [{"id": "a"}, {"id": "b", "order": 1}]
	}`), 0644))

	for {
		require.NoError(t, wsjson.Read(ctx, c, &resp))
		if resp.Type == emserve.TypeSuccess {
			if _, ok := resp.Positions["e1"]; ok {
				break
			}
		}
	}
}
