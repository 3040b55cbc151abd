package source

import (
	"bufio"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/dudk/airwave"
	"github.com/dudk/airwave/signal"
)

const controlTimeout = 500 * time.Millisecond

// Control queries the upstream player's control plane for the current
// audio format. The exchange is line oriented: a greeting, a literal
// status command, then key-value lines terminated by OK or ACK. The only
// line of interest is "audio: <rate>:<bits>:<channels>".
type Control struct {
	addr string
}

// NewControl returns a client for the given control plane address.
func NewControl(addr string) *Control {
	return &Control{addr: addr}
}

// QueryFormat performs one status exchange and returns the reported
// format, sanity-clamped. Any failure is returned to the caller, which
// keeps its previous format.
func (c *Control) QueryFormat() (airwave.Format, error) {
	conn, err := net.DialTimeout("tcp", c.addr, controlTimeout)
	if err != nil {
		return airwave.Format{}, fmt.Errorf("dial control plane: %w", err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(controlTimeout))

	reader := bufio.NewReader(conn)
	// greeting line
	if _, err := reader.ReadString('\n'); err != nil {
		return airwave.Format{}, fmt.Errorf("read greeting: %w", err)
	}
	if _, err := conn.Write([]byte("status\n")); err != nil {
		return airwave.Format{}, fmt.Errorf("send status: %w", err)
	}

	var audio string
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "OK") || strings.HasPrefix(line, "ACK") {
			break
		}
		if strings.HasPrefix(line, "audio: ") {
			audio = strings.TrimPrefix(line, "audio: ")
		}
	}
	if audio == "" {
		return airwave.Format{}, ErrNoFormat
	}
	return parseAudioLine(audio)
}

// parseAudioLine parses "<rate>:<bits>:<channels>".
func parseAudioLine(s string) (airwave.Format, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return airwave.Format{}, fmt.Errorf("%w: %q", ErrNoFormat, s)
	}
	rate, err := strconv.Atoi(parts[0])
	if err != nil {
		return airwave.Format{}, fmt.Errorf("parse sample rate: %w", err)
	}
	bits, err := strconv.Atoi(parts[1])
	if err != nil {
		return airwave.Format{}, fmt.Errorf("parse bit depth: %w", err)
	}
	channels, err := strconv.Atoi(parts[2])
	if err != nil {
		return airwave.Format{}, fmt.Errorf("parse channels: %w", err)
	}
	format := airwave.Format{
		SampleRate: rate,
		BitDepth:   signal.BitDepth(bits),
		Channels:   channels,
	}
	return format.Clamp(), nil
}
