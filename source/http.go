package source

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dudk/airwave"
	"github.com/dudk/airwave/signal"
)

const (
	httpRetryDelay  = 500 * time.Millisecond
	httpReadTimeout = 5 * time.Second
	// wavHeaderSize is the canonical RIFF/WAVE/fmt header emitted by the
	// upstream player at the start of every connection.
	wavHeaderSize = 44
)

// HTTP is the streamed transport: a TCP connection carrying an HTTP
// response whose body is a canonical WAV header followed by raw 16-bit
// little-endian PCM.
type HTTP struct {
	host string
	port int

	conn   net.Conn
	reader *bufio.Reader
	format airwave.Format
}

// NewHTTP returns a streamed reader for the configured host and port.
func NewHTTP(config Config) *HTTP {
	format := config.Format.Clamp()
	// the streamed transport is 16 bit only
	format.BitDepth = signal.BitDepth16
	return &HTTP{
		host:   config.Host,
		port:   config.Port,
		format: format,
	}
}

// Connect dials the stream, issues a keep-alive GET, skips response
// headers and parses the in-band WAV header. A malformed header falls back
// to the previously known format instead of failing the connection.
func (h *HTTP) Connect() error {
	h.Close()

	addr := fmt.Sprintf("%s:%d", h.host, h.port)
	conn, err := net.DialTimeout("tcp", addr, httpReadTimeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	request := fmt.Sprintf("GET / HTTP/1.1\r\nHost: %s\r\nConnection: keep-alive\r\n\r\n", addr)
	conn.SetDeadline(time.Now().Add(httpReadTimeout))
	if _, err := conn.Write([]byte(request)); err != nil {
		conn.Close()
		return fmt.Errorf("send request: %w", err)
	}

	reader := bufio.NewReaderSize(conn, 16384)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			conn.Close()
			return fmt.Errorf("read response headers: %w", err)
		}
		if line == "\r\n" || line == "\n" {
			break
		}
	}

	header := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(reader, header); err != nil {
		conn.Close()
		return fmt.Errorf("read wav header: %w", err)
	}
	if format, ok := parseWavHeader(header); ok {
		h.format = format
	}

	h.conn = conn
	h.reader = reader
	return nil
}

// Read returns raw PCM bytes from the stream body.
func (h *HTTP) Read(p []byte) (int, error) {
	if h.conn == nil {
		return 0, io.EOF
	}
	h.conn.SetReadDeadline(time.Now().Add(httpReadTimeout))
	return h.reader.Read(p)
}

// Format returns the format announced by the last in-band WAV header.
func (h *HTTP) Format() airwave.Format {
	return h.format
}

// RetryDelay returns the streamed reconnect delay.
func (h *HTTP) RetryDelay() time.Duration {
	return httpRetryDelay
}

// Close drops the current connection. Safe to call when not connected.
func (h *HTTP) Close() error {
	if h.conn == nil {
		return nil
	}
	err := h.conn.Close()
	h.conn = nil
	h.reader = nil
	return err
}

// parseWavHeader extracts channel count and sample rate from a canonical
// 44-byte WAV header. It reports false on a missing or corrupt signature,
// in which case the caller keeps the previously known format.
func parseWavHeader(header []byte) (airwave.Format, bool) {
	decoder := wav.NewDecoder(bytes.NewReader(header))
	decoder.ReadInfo()
	var info *audio.Format
	if decoder.Err() == nil {
		info = decoder.Format()
	}
	if info == nil || info.NumChannels == 0 || info.SampleRate == 0 {
		return airwave.Format{}, false
	}
	format := airwave.Format{
		SampleRate: info.SampleRate,
		BitDepth:   signal.BitDepth16,
		Channels:   info.NumChannels,
	}
	return format.Clamp(), true
}
