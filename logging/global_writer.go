package logging

import (
	"io"
	"os"
	"sync"
)

// switchWriter forwards to a writer that can be replaced at runtime.
type switchWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (sw *switchWriter) Write(p []byte) (int, error) {
	sw.mu.RLock()
	defer sw.mu.RUnlock()
	return sw.w.Write(p)
}

func (sw *switchWriter) swap(w io.Writer) io.Writer {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	prev := sw.w
	sw.w = w
	return prev
}

var stderrSink = &switchWriter{w: os.Stderr}

// SetGlobalOutput redirects the stderr sink of every logger.
func SetGlobalOutput(w io.Writer) {
	stderrSink.swap(w)
}

// RedirectGlobalOutput sends the stderr sink to w until the returned
// function is called. The monitor uses it to keep log lines off the
// alternate screen.
func RedirectGlobalOutput(w io.Writer) (restore func()) {
	prev := stderrSink.swap(w)
	return func() { stderrSink.swap(prev) }
}

// GetGlobalOutput returns the shared stderr sink.
func GetGlobalOutput() io.Writer {
	return stderrSink
}
