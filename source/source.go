// Package source owns the upstream transport. It yields raw PCM byte
// chunks and the best-known stream format, and survives reconnects: a
// failed connect is retried by the caller for as long as the pipeline
// runs, never treated as fatal.
package source

import (
	"errors"
	"net"
	"os"
	"syscall"
	"time"

	"github.com/dudk/airwave"
)

// Default endpoints of the upstream player.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8000
	DefaultControlPort = 6600
	DefaultFIFOPath    = "/tmp/airwave.fifo"
)

// Kind selects the transport variant.
type Kind int

const (
	// Streamed reads a WAV-header-prefixed HTTP stream, 16 bit only.
	Streamed Kind = iota
	// Piped reads raw PCM from a filesystem FIFO at a bit depth reported
	// by the control plane.
	Piped
)

// ErrNoFormat is returned when the control plane reports no audio line.
var ErrNoFormat = errors.New("control plane reported no audio format")

// Config describes where the pipeline pulls audio from. It is set once at
// pipeline start and replaced wholesale on reconfiguration, never mutated.
type Config struct {
	Kind        Kind
	Host        string
	Port        int
	Path        string
	ControlAddr string // control plane address, used by the Piped variant
	Format      airwave.Format
}

// DefaultConfig returns a streamed config against the default endpoints.
func DefaultConfig() Config {
	return Config{
		Kind:   Streamed,
		Host:   DefaultHost,
		Port:   DefaultPort,
		Format: airwave.DefaultFormat(),
	}
}

// Reader yields raw PCM chunks from the transport. Read may block on IO or
// return a transient error; the producer loop is the only caller and the
// only goroutine allowed to block on it.
type Reader interface {
	// Connect establishes the transport. On failure the caller retries
	// after RetryDelay for as long as the pipeline runs.
	Connect() error
	// Read fills p with raw PCM bytes from the current connection.
	Read(p []byte) (int, error)
	// Format returns the current best-known stream format. Piped readers
	// refresh it from the control plane on a poll interval.
	Format() airwave.Format
	// RetryDelay is the fixed delay between failed connect attempts.
	RetryDelay() time.Duration
	Close() error
}

// New builds a reader for the configured transport.
func New(config Config) Reader {
	switch config.Kind {
	case Piped:
		return NewFIFO(config)
	default:
		return NewHTTP(config)
	}
}

// IsTransient reports whether a read error only means "no data right now":
// a FIFO read deadline expiring against an idle writer or a network read
// timeout. The caller sleeps briefly and retries instead of reconnecting.
func IsTransient(err error) bool {
	if errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EWOULDBLOCK) {
		return true
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}
