package creds

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// traceTransport logs every outgoing Drive API call at debug level,
// adapted from the teacher's hand-rolled drive.Logger (drive/logging.go)
// into a zap-backed http.RoundTripper so call tracing composes with the
// rest of corpus-fetch's structured logging instead of writing to its own
// log.Logger.
type traceTransport struct {
	wrapped http.RoundTripper
	log     *zap.Logger
}

func newTraceTransport(wrapped http.RoundTripper, log *zap.Logger) http.RoundTripper {
	if wrapped == nil {
		wrapped = http.DefaultTransport
	}
	return &traceTransport{wrapped: wrapped, log: log}
}

func (t *traceTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.wrapped.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("url", req.URL.Path),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		t.log.Debug("drive api call failed", append(fields, zap.Error(err))...)
		return resp, err
	}
	t.log.Debug("drive api call", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
