package source

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/airwave"
	"github.com/dudk/airwave/signal"
)

// wavHeader builds the canonical 44-byte header the upstream player
// prefixes to every streamed connection.
func wavHeader(sampleRate uint32, channels uint16) []byte {
	h := make([]byte, 44)
	copy(h[0:4], "RIFF")
	binary.LittleEndian.PutUint32(h[4:8], 36)
	copy(h[8:12], "WAVE")
	copy(h[12:16], "fmt ")
	binary.LittleEndian.PutUint32(h[16:20], 16)
	binary.LittleEndian.PutUint16(h[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(h[22:24], channels)
	binary.LittleEndian.PutUint32(h[24:28], sampleRate)
	binary.LittleEndian.PutUint32(h[28:32], sampleRate*uint32(channels)*2)
	binary.LittleEndian.PutUint16(h[32:34], channels*2)
	binary.LittleEndian.PutUint16(h[34:36], 16)
	copy(h[36:40], "data")
	binary.LittleEndian.PutUint32(h[40:44], 0)
	return h
}

func TestParseWavHeader(t *testing.T) {
	format, ok := parseWavHeader(wavHeader(48000, 2))
	require.True(t, ok)
	assert.Equal(t, 48000, format.SampleRate)
	assert.Equal(t, 2, format.Channels)
	assert.Equal(t, signal.BitDepth16, format.BitDepth)
}

func TestParseWavHeaderCorrupt(t *testing.T) {
	// missing signature
	_, ok := parseWavHeader(make([]byte, 44))
	assert.False(t, ok)

	// absurd channel count gets clamped, not rejected
	format, ok := parseWavHeader(wavHeader(44100, 100))
	require.True(t, ok)
	assert.Equal(t, airwave.MaxChannels, format.Channels)
}

func TestParseAudioLine(t *testing.T) {
	tests := []struct {
		line     string
		expected airwave.Format
		fails    bool
	}{
		{
			line: "96000:24:2",
			expected: airwave.Format{
				SampleRate: 96000,
				BitDepth:   signal.BitDepth24,
				Channels:   2,
			},
		},
		{
			line: "44100:16:2",
			expected: airwave.Format{
				SampleRate: 44100,
				BitDepth:   signal.BitDepth16,
				Channels:   2,
			},
		},
		{
			// corrupt values are clamped to sane bounds
			line: "500000:13:99",
			expected: airwave.Format{
				SampleRate: airwave.MaxSampleRate,
				BitDepth:   signal.BitDepth16,
				Channels:   airwave.MaxChannels,
			},
		},
		{line: "none", fails: true},
		{line: "a:b:c", fails: true},
	}
	for _, test := range tests {
		format, err := parseAudioLine(test.line)
		if test.fails {
			assert.Error(t, err)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, test.expected, format)
	}
}

func TestControlQueryFormat(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("OK MPD 0.23.5\n"))
		buf := make([]byte, 64)
		conn.Read(buf)
		conn.Write([]byte("volume: 100\naudio: 96000:24:2\nstate: play\nOK\n"))
	}()

	control := NewControl(listener.Addr().String())
	format, err := control.QueryFormat()
	require.NoError(t, err)
	assert.Equal(t, 96000, format.SampleRate)
	assert.Equal(t, signal.BitDepth24, format.BitDepth)
	assert.Equal(t, 2, format.Channels)
}

func TestControlQueryNoAudioLine(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("OK MPD 0.23.5\n"))
		buf := make([]byte, 64)
		conn.Read(buf)
		conn.Write([]byte("state: stop\nOK\n"))
	}()

	control := NewControl(listener.Addr().String())
	_, err = control.QueryFormat()
	assert.ErrorIs(t, err, ErrNoFormat)
}

func TestHTTPConnect(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 256)
		conn.Read(buf)
		conn.Write([]byte("HTTP/1.1 200 OK\r\nContent-Type: audio/wav\r\n\r\n"))
		conn.Write(wavHeader(48000, 2))
		conn.Write(pcm)
	}()

	addr := listener.Addr().(*net.TCPAddr)
	h := NewHTTP(Config{Host: "127.0.0.1", Port: addr.Port, Format: airwave.DefaultFormat()})
	require.NoError(t, h.Connect())
	defer h.Close()

	assert.Equal(t, 48000, h.Format().SampleRate)
	assert.Equal(t, 2, h.Format().Channels)

	data := make([]byte, 4)
	_, err = io.ReadFull(h, data)
	require.NoError(t, err)
	assert.Equal(t, pcm, data)
}

func TestHTTPConnectRefused(t *testing.T) {
	// a port that nothing listens on
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	h := NewHTTP(Config{Host: "127.0.0.1", Port: port, Format: airwave.DefaultFormat()})
	assert.Error(t, h.Connect())
}

func TestFIFOReadReturnsWithSilentWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "airwave.fifo")
	require.NoError(t, syscall.Mkfifo(path, 0o600))

	f := NewFIFO(Config{Path: path, Format: airwave.DefaultFormat()})
	require.NoError(t, f.Connect())
	defer f.Close()

	// a writer that connects but never produces data
	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	defer w.Close()

	done := make(chan error, 1)
	go func() {
		_, err := f.Read(make([]byte, 64))
		done <- err
	}()
	select {
	case err := <-done:
		// the read must come back as a transient timeout, not block
		require.Error(t, err)
		assert.True(t, IsTransient(err))
	case <-time.After(time.Second):
		t.Fatal("read blocked on a silent writer")
	}
}

func TestFIFOConnectMissingPath(t *testing.T) {
	f := NewFIFO(Config{Path: "/nonexistent/airwave.fifo", Format: airwave.DefaultFormat()})
	assert.Error(t, f.Connect())
	// format sticks to the configured one without a control plane
	assert.Equal(t, airwave.DefaultFormat(), f.Format())
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(syscall.EAGAIN))
	assert.True(t, IsTransient(os.ErrDeadlineExceeded))
	assert.False(t, IsTransient(io.EOF))
	assert.False(t, IsTransient(errors.New("hard failure")))
}
