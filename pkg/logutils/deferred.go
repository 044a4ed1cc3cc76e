package logutils

import (
	"bytes"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DeferredWriter buffers all writes in memory until Flush is called.
// Safe for concurrent use.
type DeferredWriter struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

// Write stores data in the internal buffer.
func (d *DeferredWriter) Write(p []byte) (n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.buf.Write(p)
}

// Flush writes all buffered data to w and clears the buffer.
func (d *DeferredWriter) Flush(w io.Writer) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.buf.Len() == 0 {
		return nil
	}

	_, err := d.buf.WriteTo(w)
	return err
}

// HoldConsole keeps console output of l in memory while a full screen program
// owns the terminal. release writes the held lines to stderr. Loggers that
// write to a file are returned unchanged.
func HoldConsole(l zerolog.Logger, file string) (held zerolog.Logger, release func()) {
	if file != Console {
		return l, func() {}
	}

	d := &DeferredWriter{}
	held = l.Output(zerolog.ConsoleWriter{Out: d, TimeFormat: time.Kitchen, NoColor: true})
	return held, func() { _ = d.Flush(os.Stderr) }
}
