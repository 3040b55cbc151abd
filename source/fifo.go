package source

import (
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/dudk/airwave"
)

const (
	fifoRetryDelay = time.Second
	// fifoReadTimeout bounds a single read against a connected but silent
	// writer, so the producer loop can observe the running flag.
	fifoReadTimeout = 100 * time.Millisecond
	// formatPollInterval is how often the control plane is asked for the
	// current stream format. The FIFO itself carries no in-band format.
	formatPollInterval = 2 * time.Second
)

// FIFO is the piped transport: raw interleaved PCM read from a filesystem
// named pipe, at whatever bit depth the control plane currently reports.
type FIFO struct {
	path    string
	file    *os.File
	format  airwave.Format
	control *Control
	polled  time.Time
}

// NewFIFO returns a piped reader for the configured path. The control
// plane address may be empty, in which case the initial format sticks.
func NewFIFO(config Config) *FIFO {
	f := &FIFO{
		path:   config.Path,
		format: config.Format.Clamp(),
	}
	if config.ControlAddr != "" {
		f.control = NewControl(config.ControlAddr)
	}
	return f
}

// Connect opens the FIFO non-blocking so an idle writer never wedges the
// producer loop.
func (f *FIFO) Connect() error {
	f.Close()
	file, err := os.OpenFile(f.path, os.O_RDONLY|syscall.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("open fifo %s: %w", f.path, err)
	}
	f.file = file
	return nil
}

// Read returns raw PCM bytes. The runtime registers a non-blocking FIFO
// with its poller, which would park the read until a writer produces data;
// the per-read deadline turns an idle writer into a timeout error that
// IsTransient recognizes, keeping the producer loop responsive.
func (f *FIFO) Read(p []byte) (int, error) {
	if f.file == nil {
		return 0, io.EOF
	}
	f.file.SetReadDeadline(time.Now().Add(fifoReadTimeout))
	return f.file.Read(p)
}

// Format returns the latest known format, refreshing it from the control
// plane at most once per poll interval. Query failures keep the previous
// format.
func (f *FIFO) Format() airwave.Format {
	if f.control == nil || time.Since(f.polled) < formatPollInterval {
		return f.format
	}
	f.polled = time.Now()
	if format, err := f.control.QueryFormat(); err == nil {
		f.format = format
	}
	return f.format
}

// RetryDelay returns the piped reconnect delay.
func (f *FIFO) RetryDelay() time.Duration {
	return fifoRetryDelay
}

// Close releases the FIFO handle. Safe to call when not connected.
func (f *FIFO) Close() error {
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
