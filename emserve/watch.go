package emserve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/emodeling/emod/emgraph"
	"github.com/emodeling/emod/emlayout"
	"github.com/emodeling/emod/lib/xbrowser"
)

func (s *Server) requestCompute() {
	select {
	case s.computeCh <- struct{}{}:
	default:
	}
}

func (s *Server) nextBroadcastID() int64 {
	return atomic.AddInt64(&s.broadcastID, 1)
}

// watchLoop keeps s.WatchPath watched across editor rename-and-replace
// saves and turns change bursts into single compute requests. File
// notification APIs are unreliable enough that a slow poll backs them up.
func (s *Server) watchLoop(ctx context.Context) error {
	lastModified, err := s.ensureAddWatch(ctx, s.WatchPath)
	if err != nil {
		return err
	}
	s.log.Info.Printf("computing layout for %v...", s.WatchPath)
	s.requestCompute()

	eatBurstTimer := time.NewTimer(0)
	<-eatBurstTimer.C
	pollTicker := time.NewTicker(time.Second * 10)
	defer pollTicker.Stop()

	for {
		select {
		case <-pollTicker.C:
			mt, err := s.ensureAddWatch(ctx, s.WatchPath)
			if err != nil {
				return err
			}
			if !mt.Equal(lastModified) {
				lastModified = mt
				s.requestCompute()
			}
		case ev, ok := <-s.fw.Events:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			s.log.Debug.Printf("received file system event %v", ev)
			mt, err := s.ensureAddWatch(ctx, s.WatchPath)
			if err != nil {
				return err
			}
			if ev.Op == fsnotify.Chmod && mt.Equal(lastModified) {
				// benign chmod
				continue
			}
			lastModified = mt
			// Wait out the editor's write burst so one logical save
			// becomes one recompute and we never parse a half-written
			// file.
			eatBurstTimer.Reset(time.Millisecond * 16)
		case <-eatBurstTimer.C:
			s.log.Info.Printf("detected change in %s: recomputing...", s.WatchPath)
			s.requestCompute()
		case err, ok := <-s.fw.Errors:
			if !ok {
				return errors.New("fsnotify watcher closed")
			}
			s.log.Error.Printf("fsnotify error: %v", err)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// ensureAddWatch retries until the path is watchable again. Editors that
// save by rename leave a gap where the path does not exist.
func (s *Server) ensureAddWatch(ctx context.Context, path string) (time.Time, error) {
	interval := time.Millisecond * 16
	tc := time.NewTimer(0)
	<-tc.C
	for {
		mt, err := s.addWatch(path)
		if err == nil {
			return mt, nil
		}

		tc.Reset(interval)
		select {
		case <-tc.C:
			if interval < time.Second {
				interval *= 2
			}
		case <-ctx.Done():
			return time.Time{}, ctx.Err()
		}
	}
}

func (s *Server) addWatch(path string) (time.Time, error) {
	err := s.fw.Add(path)
	if err != nil {
		return time.Time{}, err
	}
	d, err := os.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return d.ModTime(), nil
}

func (s *Server) computeLoop(ctx context.Context) error {
	firstCompute := true
	for {
		select {
		case <-s.computeCh:
		case <-ctx.Done():
			return ctx.Err()
		}

		raw, err := os.ReadFile(s.WatchPath)
		if err != nil {
			s.log.Error.Printf("failed to read %s: %v", s.WatchPath, err)
			s.broadcast(errorResponse(s.nextBroadcastID(), err))
			continue
		}
		snap, err := emgraph.ParseSnapshot(ctx, raw)
		if err != nil {
			err = fmt.Errorf("failed to parse %s: %w", s.WatchPath, err)
			s.log.Error.Print(err)
			s.broadcast(errorResponse(s.nextBroadcastID(), err))
			continue
		}

		res, err := s.session.Compute(ctx, snap, nil)
		if errors.Is(err, emlayout.ErrSuperseded) {
			continue
		}
		if err != nil {
			s.log.Error.Printf("layout failed: %v", err)
			s.broadcast(errorResponse(s.nextBroadcastID(), err))
			continue
		}
		s.broadcast(successResponse(s.nextBroadcastID(), res))

		if firstCompute {
			firstCompute = false
			if s.OpenBrowser {
				url := fmt.Sprintf("http://%s", s.l.Addr())
				err = xbrowser.Open(ctx, s.env, url)
				if err != nil {
					s.log.Warn.Printf("failed to open browser to %v: %v", url, err)
				}
			}
		}
	}
}
