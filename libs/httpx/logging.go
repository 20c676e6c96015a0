package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

type recordingWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *recordingWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *recordingWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

type AccessLogOptions struct {
	// SlowThreshold raises requests slower than this to warn; zero disables it.
	SlowThreshold time.Duration
	// Quiet paths (health probes) are not logged unless they fail.
	Quiet []string
}

// WithAccessLog writes one line per request: 5xx at error, slow requests at warn.
func WithAccessLog(logger *slog.Logger, opts AccessLogOptions) Middleware {
	quiet := make(map[string]bool, len(opts.Quiet))
	for _, p := range opts.Quiet {
		quiet[p] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := &recordingWriter{ResponseWriter: w}

			next.ServeHTTP(rw, r)

			elapsed := time.Since(start)
			level := slog.LevelInfo
			switch {
			case rw.status >= http.StatusInternalServerError:
				level = slog.LevelError
			case opts.SlowThreshold > 0 && elapsed > opts.SlowThreshold:
				level = slog.LevelWarn
			case quiet[r.URL.Path]:
				return
			}
			Logger(r.Context(), logger).Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.status,
				"bytes", rw.bytes,
				"remote", clientKey(r),
				"duration_ms", elapsed.Milliseconds(),
			)
		})
	}
}
