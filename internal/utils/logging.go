// Package utils provides small filesystem and logging helpers shared across
// the tool.
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// LineWriter prefixes every line written through it with a sequence number
// and a timestamp. Partial writes are buffered until a newline arrives, so
// it is safe to hand to writers that emit records in several chunks.
type LineWriter struct {
	mu     sync.Mutex
	target io.Writer
	seq    atomic.Uint64
	buf    bytes.Buffer
}

func NewLineWriter(target io.Writer) *LineWriter {
	return &LineWriter{target: target}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// no full line yet, keep the remainder buffered
			w.buf.WriteString(line)
			break
		}
		if werr := w.writeLine(bytes.TrimRight([]byte(line), "\r\n")); werr != nil {
			return len(p), werr
		}
	}
	return len(p), nil
}

// Close flushes a trailing unterminated line, if any.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 {
		return nil
	}
	rest := w.buf.Bytes()
	w.buf.Reset()
	return w.writeLine(rest)
}

func (w *LineWriter) writeLine(line []byte) error {
	_, err := fmt.Fprintf(w.target, "line=%d time=%s %s\n",
		w.seq.Add(1), time.Now().Format(time.RFC3339), line)
	return err
}

// MultiLogHandler fans a slog record out to every handler that wants it.
type MultiLogHandler struct {
	handlers []slog.Handler
}

func NewMultiLogHandler(handlers ...slog.Handler) *MultiLogHandler {
	return &MultiLogHandler{handlers: handlers}
}

func (h *MultiLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *MultiLogHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if e := handler.Handle(ctx, r); e != nil {
				err = e
			}
		}
	}
	return err
}

func (h *MultiLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithAttrs(attrs)
	}
	return NewMultiLogHandler(next...)
}

func (h *MultiLogHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		next[i] = handler.WithGroup(name)
	}
	return NewMultiLogHandler(next...)
}
