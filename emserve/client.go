package emserve

import (
	"context"
	"errors"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/emodeling/emod/emlayout"
	"github.com/emodeling/emod/lib/xhttp"
)

func (s *Server) handleLayout(hw http.ResponseWriter, r *http.Request) error {
	s.clientsMu.Lock()
	if s.closing {
		s.clientsMu.Unlock()
		return xhttp.Errorf(http.StatusServiceUnavailable, "server shutting down...", "server shutting down...")
	}
	// Register before the upgrade so close() waits for us. Registering
	// after would leave a window between the hijack and the registration
	// where close could return without waiting.
	s.clientsWG.Add(1)
	s.clientsMu.Unlock()

	c, err := websocket.Accept(hw, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		s.clientsWG.Done()
		return err
	}

	go func() {
		defer s.clientsWG.Done()
		defer c.Close(websocket.StatusInternalError, "the sky is falling")

		ctx, cancel := context.WithTimeout(s.ctx, time.Hour)
		defer cancel()

		cl := &wsclient{
			s:         s,
			c:         c,
			session:   emlayout.NewSession(s.Engine, s.Layout),
			resultsCh: make(chan struct{}, 1),
			respCh:    make(chan *LayoutResponse, 16),
		}
		defer cl.session.Close()

		s.clientsMu.Lock()
		s.clients[cl] = struct{}{}
		s.clientsMu.Unlock()
		defer func() {
			s.clientsMu.Lock()
			delete(s.clients, cl)
			s.clientsMu.Unlock()
		}()

		go wsHeartbeat(ctx, c)
		go func() {
			defer cancel()
			_ = cl.readLoop(ctx)
		}()
		_ = cl.writeLoop(ctx)
	}()
	return nil
}

// wsclient is one connected editor. It owns a layout session, so rapid
// requests from one editor supersede each other without starving other
// clients.
type wsclient struct {
	s       *Server
	c       *websocket.Conn
	session *emlayout.Session

	// resultsCh wakes the write loop for watch broadcasts.
	resultsCh chan struct{}
	// respCh carries answers to this client's own requests.
	respCh chan *LayoutResponse
}

func (cl *wsclient) readLoop(ctx context.Context) error {
	for {
		var req LayoutRequest
		err := wsjson.Read(ctx, cl.c, &req)
		if err != nil {
			return err
		}
		// Enqueue here, not in the answer goroutine: issue order must
		// follow arrival order or an older request could supersede a
		// newer one and leave it unanswered.
		snap := req.SerializedSnapshot.Decode(ctx)
		p, err := cl.session.Enqueue(ctx, snap, parseOpts(cl.s.Layout, req.Options))
		if err != nil {
			return err
		}
		go cl.answer(ctx, req.RequestID, p)
	}
}

// answer settles one request. A superseded request gets no reply: the
// newer request's answer stands in for it, so the editor's own id
// bookkeeping never sees a stale response.
func (cl *wsclient) answer(ctx context.Context, reqID int64, p *emlayout.Pending) {
	res, err := p.Await(ctx)
	switch {
	case errors.Is(err, emlayout.ErrSuperseded),
		errors.Is(err, emlayout.ErrClosed),
		errors.Is(err, context.Canceled):
		return
	case err != nil:
		cl.send(ctx, errorResponse(reqID, err))
	default:
		cl.send(ctx, successResponse(reqID, res))
	}
}

func (cl *wsclient) send(ctx context.Context, res *LayoutResponse) {
	select {
	case cl.respCh <- res:
	case <-ctx.Done():
	}
}

func (cl *wsclient) writeLoop(ctx context.Context) error {
	// a fresh client starts from the last broadcast layout
	if res := cl.s.getRes(); res != nil {
		err := cl.write(ctx, res)
		if err != nil {
			return err
		}
	}
	for {
		select {
		case res := <-cl.respCh:
			err := cl.write(ctx, res)
			if err != nil {
				return err
			}
		case <-cl.resultsCh:
			if res := cl.s.getRes(); res != nil {
				err := cl.write(ctx, res)
				if err != nil {
					return err
				}
			}
		case <-ctx.Done():
			cl.c.Close(websocket.StatusGoingAway, "server shutting down...")
			return ctx.Err()
		}
	}
}

func (cl *wsclient) write(ctx context.Context, res *LayoutResponse) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*30)
	defer cancel()

	return wsjson.Write(ctx, cl.c, res)
}

func wsHeartbeat(ctx context.Context, c *websocket.Conn) {
	defer c.Close(websocket.StatusInternalError, "the sky is falling")

	t := time.NewTimer(0)
	<-t.C
	for {
		err := c.Ping(ctx)
		if err != nil {
			return
		}

		t.Reset(time.Second * 30)
		select {
		case <-t.C:
		case <-ctx.Done():
			return
		}
	}
}
