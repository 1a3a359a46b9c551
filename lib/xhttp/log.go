package xhttp

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"golang.org/x/text/message"

	"oss.terrastruct.com/cmdlog"
)

// responseWriter records the status and length of a response as it is
// written so Log can report them afterwards. Hijack and Flush pass through
// to the underlying writer since websocket endpoints need both.
type responseWriter struct {
	rw http.ResponseWriter

	written bool
	status  int
	length  int
}

var _ http.ResponseWriter = &responseWriter{}
var _ http.Hijacker = &responseWriter{}
var _ http.Flusher = &responseWriter{}

func (rw *responseWriter) Header() http.Header {
	return rw.rw.Header()
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.written = true
		rw.status = statusCode
	}
	rw.rw.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	if !rw.written && len(p) > 0 {
		rw.written = true
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
	}
	rw.length += len(p)
	return rw.rw.Write(p)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.rw.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying response writer does not implement http.Hijacker: %T", rw.rw)
	}
	return hj.Hijack()
}

func (rw *responseWriter) Flush() {
	f, ok := rw.rw.(http.Flusher)
	if !ok {
		return
	}
	f.Flush()
}

func (rw *responseWriter) Written() bool {
	return rw.written
}

// Log wraps next to log every request's method, path, status, response size
// and duration. Panics are caught and written as 500s.
func Log(clog *cmdlog.Logger, next http.Handler) http.Handler {
	englishPrinter := message.NewPrinter(message.MatchLanguage("en"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &responseWriter{
			rw: w,
		}

		defer func() {
			rec := recover()
			if rec != nil {
				clog.Error.Printf("caught panic: %#v\n%s", rec, debug.Stack())
				if !rw.written {
					JSON(clog, rw, http.StatusInternalServerError, map[string]interface{}{
						"error": http.StatusText(http.StatusInternalServerError),
					})
				}
			}
		}()

		start := time.Now()
		next.ServeHTTP(rw, r)
		dur := time.Since(start)

		if !rw.written {
			_, err := rw.Write(nil)
			if errors.Is(err, http.ErrHijacked) {
				// Hijacked connections only return here once the websocket
				// session ends so dur covers its whole lifetime.
				clog.Success.Printf("%s %s: connection hijacked for %v", r.Method, r.URL, dur)
				return
			}

			clog.Warn.Printf("%s %s %v: no response written", r.Method, r.URL, dur)
			return
		}

		lengthStr := englishPrinter.Sprint(rw.length)
		statusLogger(clog, rw.status).Printf("%s %s %d %sB %v", r.Method, r.URL, rw.status, lengthStr, dur)
	})
}

// statusLogger picks the prefix logger matching the response class so
// scanning server output for warns and errors surfaces bad requests.
func statusLogger(clog *cmdlog.Logger, status int) *log.Logger {
	switch {
	case status < 300:
		return clog.Success
	case status < 400:
		return clog.Info
	case status < 500:
		return clog.Warn
	default:
		return clog.Error
	}
}
