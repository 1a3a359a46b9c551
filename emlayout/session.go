package emlayout

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"cdr.dev/slog"
	"oss.terrastruct.com/xcontext"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emlayout/emelk"
	"github.com/emodeling/emod/lib/log"
)

var (
	// ErrSuperseded means a newer request replaced this one before it
	// produced an answer. Wait for the newer answer instead.
	ErrSuperseded = errors.New("layout request superseded by a newer one")

	// ErrClosed means the session stopped before the request completed.
	ErrClosed = errors.New("layout session closed")
)

// Session serializes layout passes for one open diagram. All requests
// funnel through a single worker; a newer request displaces whatever is
// queued or settling, and an engine answer for anything but the newest
// request is discarded. At most one engine call runs at a time.
type Session struct {
	engine emelk.Engine
	opts   *Opts

	lastID   int64
	requests chan *request

	closeOnce sync.Once
	closed    chan struct{}
	done      chan struct{}
}

type request struct {
	ctx  context.Context
	id   int64
	snap *emgraph.Snapshot
	opts *Opts
	resp chan *response
}

type response struct {
	res *Result
	err error
}

func NewSession(engine emelk.Engine, opts *Opts) *Session {
	s := &Session{
		engine:   engine,
		opts:     opts.withDefaults(),
		requests: make(chan *request, 1),
		closed:   make(chan struct{}),
		done:     make(chan struct{}),
	}
	go s.work()
	return s
}

// Compute asks for a layout of snap and waits for the answer. Request ids
// are monotonic; the id is echoed on the Result. opts == nil uses the
// session's options. If a newer request arrives while this one is queued,
// settling, or running, this one fails with ErrSuperseded.
func (s *Session) Compute(ctx context.Context, snap *emgraph.Snapshot, opts *Opts) (*Result, error) {
	p, err := s.Enqueue(ctx, snap, opts)
	if err != nil {
		return nil, err
	}
	return p.Await(ctx)
}

// Pending is an issued request. Await it exactly once.
type Pending struct {
	req *request
}

// Enqueue issues a request without waiting for its answer. Issue order
// fixes supersession order: a later Enqueue always displaces an earlier
// one, never the reverse, which is what lets a caller pump requests off a
// wire in arrival order and settle them concurrently.
func (s *Session) Enqueue(ctx context.Context, snap *emgraph.Snapshot, opts *Opts) (*Pending, error) {
	select {
	case <-s.closed:
		return nil, ErrClosed
	default:
	}

	req := &request{
		ctx: ctx,
		id:  atomic.AddInt64(&s.lastID, 1),
		// copied so the worker reads the model as of issue time, not
		// whatever the caller mutates it into while the engine runs
		snap: snap.Copy(),
		opts: opts,
		resp: make(chan *response, 1),
	}

	// Queue the request, displacing any older one. If a newer request is
	// already queued, ours is the one displaced and we keep pumping the
	// newer one on its owner's behalf.
	queued := req
	for {
		select {
		case <-s.closed:
			if queued != req {
				// settle the pulled-out newer request, or its owner
				// would await a response nobody will send
				queued.resp <- &response{err: ErrClosed}
			}
			return nil, ErrClosed
		case s.requests <- queued:
		case other := <-s.requests:
			if other.id > queued.id {
				queued, other = other, queued
			}
			other.resp <- &response{err: ErrSuperseded}
			continue
		}
		break
	}
	return &Pending{req: req}, nil
}

// Await blocks until the request settles.
func (p *Pending) Await(ctx context.Context) (*Result, error) {
	select {
	case r := <-p.req.resp:
		return r.res, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Close stops the worker and fails queued and in-flight requests with
// ErrClosed. It waits for the worker to exit.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
	<-s.done
	return nil
}

func (s *Session) work() {
	defer close(s.done)
	for {
		select {
		case <-s.closed:
			s.drain()
			return
		case req := <-s.requests:
			req = s.settle(req)
			if req == nil {
				return
			}
			res, err := s.run(req)

			select {
			case <-s.closed:
				req.resp <- &response{err: ErrClosed}
				s.drain()
				return
			default:
			}
			if atomic.LoadInt64(&s.lastID) != req.id {
				// a newer request was issued while the engine ran
				log.Debug(req.ctx, "discarding stale layout answer", slog.F("req", req.id))
				res, err = nil, ErrSuperseded
			}
			req.resp <- &response{res: res, err: err}
		}
	}
}

// settle debounces: a newer request arriving inside the window displaces
// the current one and restarts the wait, so edit bursts collapse into one
// engine call. Returns nil when the session closed.
func (s *Session) settle(req *request) *request {
	timer := time.NewTimer(s.opts.Debounce)
	defer func() {
		timer.Stop()
	}()
	for {
		select {
		case <-timer.C:
			return req
		case next := <-s.requests:
			if next.id < req.id {
				next.resp <- &response{err: ErrSuperseded}
				continue
			}
			req.resp <- &response{err: ErrSuperseded}
			req = next
			timer.Stop()
			timer = time.NewTimer(s.opts.Debounce)
		case <-s.closed:
			req.resp <- &response{err: ErrClosed}
			s.drain()
			return nil
		}
	}
}

func (s *Session) run(req *request) (*Result, error) {
	// The engine call is detached from the requester's context: a
	// superseding request discards the answer rather than cancelling the
	// call. Only closing the session cancels it.
	ctx := xcontext.WithoutCancel(req.ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Debug(ctx, "layout pass",
		slog.F("req", req.id),
		slog.F("nodes", len(req.snap.Nodes)),
		slog.F("links", len(req.snap.Links)),
	)
	opts := req.opts
	if opts == nil {
		opts = s.opts
	}
	res, err := Compute(ctx, s.engine, req.snap, opts)
	if err != nil {
		return nil, err
	}
	res.ID = req.id
	return res, nil
}

func (s *Session) drain() {
	for {
		select {
		case req := <-s.requests:
			req.resp <- &response{err: ErrClosed}
		default:
			return
		}
	}
}
