// Package emserve runs the layout service: a websocket endpoint speaking
// the layout protocol, an embedded viewer page, and an optional watch mode
// that recomputes and broadcasts whenever a model file changes on disk.
package emserve

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"oss.terrastruct.com/cmdlog"
	"oss.terrastruct.com/xos"

	"github.com/emodeling/emod/emlayout"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/emlayout/emgrid"
	"github.com/emodeling/emod/lib/xhttp"
)

//go:embed static
var staticFS embed.FS

type ServeOpts struct {
	Host string
	Port string

	// WatchPath is a model snapshot JSON file to watch. Whenever it
	// changes, its layout is recomputed and broadcast to every connected
	// client. Empty disables watch mode.
	WatchPath string
	// OpenBrowser opens the viewer once the first watch layout lands.
	OpenBrowser bool

	// Engine defaults to the built-in rank grid.
	Engine emelk.Engine
	Layout *emlayout.Opts
}

type Server struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *cmdlog.Logger
	env *xos.Env
	ServeOpts

	// session serves watch-mode recomputes; each websocket client gets its
	// own session on top of the shared engine.
	session   *emlayout.Session
	computeCh chan struct{}

	fw               *fsnotify.Watcher
	l                net.Listener
	staticFileServer http.Handler

	clientsMu sync.Mutex
	closing   bool
	clientsWG sync.WaitGroup
	clients   map[*wsclient]struct{}

	errMu sync.Mutex
	err   error

	resMu       sync.Mutex
	res         *LayoutResponse
	broadcastID int64
}

func New(ctx context.Context, clog *cmdlog.Logger, env *xos.Env, opts ServeOpts) (*Server, error) {
	ctx, cancel := context.WithCancel(ctx)

	s := &Server{
		ctx:    ctx,
		cancel: cancel,

		log:       clog,
		env:       env,
		ServeOpts: opts,

		computeCh: make(chan struct{}, 1),
		clients:   make(map[*wsclient]struct{}),
	}
	if s.Engine == nil {
		s.Engine = emgrid.Engine{}
	}
	s.session = emlayout.NewSession(s.Engine, s.Layout)

	err := s.init()
	if err != nil {
		s.session.Close()
		cancel()
		return nil, err
	}
	return s, nil
}

func (s *Server) init() error {
	if s.WatchPath != "" {
		fw, err := fsnotify.NewWatcher()
		if err != nil {
			return err
		}
		s.fw = fw
	}
	sfs, err := fs.Sub(staticFS, "static")
	if err != nil {
		return err
	}
	s.staticFileServer = http.FileServer(http.FS(sfs))
	return s.listen()
}

func (s *Server) listen() error {
	l, err := net.Listen("tcp", net.JoinHostPort(s.Host, s.Port))
	if err != nil {
		return err
	}
	s.l = l
	s.log.Success.Printf("listening on http://%v", s.l.Addr())
	return nil
}

// Addr is the bound listen address, for callers that asked for port 0.
func (s *Server) Addr() net.Addr {
	return s.l.Addr()
}

// Run serves until the context is canceled or a loop fails.
func (s *Server) Run() error {
	defer s.close()

	if s.WatchPath != "" {
		s.goFunc(s.watchLoop)
		s.goFunc(s.computeLoop)
	}

	err := s.goServe()
	if err != nil {
		return err
	}

	s.wg.Wait()
	s.close()
	return s.err
}

func (s *Server) close() {
	s.clientsMu.Lock()
	if s.closing {
		s.clientsMu.Unlock()
		return
	}
	s.closing = true
	s.clientsMu.Unlock()

	s.cancel()
	if s.fw != nil {
		s.setErr(s.fw.Close())
	}
	if s.l != nil {
		s.setErr(s.l.Close())
	}
	s.session.Close()
	s.clientsWG.Wait()
}

func (s *Server) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

func (s *Server) goFunc(fn func(context.Context) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.cancel()

		err := fn(s.ctx)
		s.setErr(err)
	}()
}

func (s *Server) goServe() error {
	m := http.NewServeMux()
	m.HandleFunc("/", s.handleRoot)
	m.Handle("/static/", http.StripPrefix("/static", s.staticFileServer))
	m.Handle("/layout", xhttp.HandlerFuncAdapter{Log: s.log, Func: s.handleLayout})

	srv := xhttp.NewServer(s.log.Warn, xhttp.Log(s.log, m))
	s.goFunc(func(ctx context.Context) error {
		return xhttp.Serve(ctx, time.Second*30, srv, s.l)
	})

	return nil
}

func (s *Server) handleRoot(hw http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(hw, r)
		return
	}
	title := "emod"
	if s.WatchPath != "" {
		title = filepath.Base(s.WatchPath)
	}
	hw.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(hw, `<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>%s</title>
	<script src="/static/viewer.js" defer></script>
	<link rel="stylesheet" href="/static/viewer.css">
</head>
<body>
	<div id="emod-err" style="display: none"></div>
	<div id="emod-canvas"></div>
</body>
</html>`, title)
}

func (s *Server) getRes() *LayoutResponse {
	s.resMu.Lock()
	defer s.resMu.Unlock()
	return s.res
}

func (s *Server) broadcast(res *LayoutResponse) {
	s.resMu.Lock()
	s.res = res
	s.resMu.Unlock()

	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	clientsSuffix := ""
	if len(s.clients) != 1 {
		clientsSuffix = "s"
	}
	s.log.Info.Printf("broadcasting layout to %d client%s", len(s.clients), clientsSuffix)
	for cl := range s.clients {
		select {
		case cl.resultsCh <- struct{}{}:
		default:
		}
	}
}
