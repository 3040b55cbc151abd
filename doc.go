/*
Package airwave implements a real-time PCM playback pipeline with a
10-band parametric equalizer.

Concept

The pipeline has a fixed shape with two decoupled halves:

	source -> decode -> equalize -> ring buffer -> output device

Everything left of the ring buffer runs in a single producer goroutine
owned by the pipe package: it connects to the upstream player, reads raw
PCM bytes, decodes them to float32 samples and runs them through the
equalizer chain. The right side is the output device callback, which pops
samples from the ring buffer on the audio host's real-time thread. The
ring buffer is the only point of contact between the two halves, so a
slow or stalled device never blocks a read and a slow network never
blocks the callback beyond a fade-out.

Sources

Two upstream transports are supported, selected by source.Config:

	Streamed - an HTTP endpoint whose body is a WAV header followed by
	raw 16-bit PCM; the in-band header announces rate and channels.
	Piped - a filesystem FIFO carrying raw PCM at 16, 24 or 32 bit;
	the format is polled from the player's control plane.

Both present the same source.Reader interface to the pipeline, so the
producer loop is transport-agnostic. A format change reported by either
reader rebuilds the equalizer and the output stream in place.

Control surface

The eq.Gains block is the shared control surface: band gains, preamp,
stereo balance and the enabled switch can be flipped from any goroutine
while audio is flowing. The equalizer crossfades between its processed
and dry signal when toggled, so control changes never click. Master
volume and the visualizer tap are owned by pipe.Pipe and applied in the
device callback.
*/
package airwave
