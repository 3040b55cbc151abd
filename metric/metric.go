// Package metric publishes pipeline health counters through expvar.
// Dropped samples and callback underruns are recoverable conditions, so
// they surface here instead of as errors.
package metric

import (
	"expvar"
	"fmt"
	"sync"
)

const countersLabel = "airwave.pipeline"

const (
	// SampleCounter measures samples pushed downstream.
	SampleCounter = "Samples"
	// DropCounter measures samples discarded by the ring buffer valve.
	DropCounter = "Drops"
	// UnderrunCounter measures output callback pops that found no data.
	UnderrunCounter = "Underruns"
	// RebuildCounter measures format-change rebuilds of the chain.
	RebuildCounter = "Rebuilds"
	// ReconnectCounter measures source (re)connects.
	ReconnectCounter = "Reconnects"
)

var counters = struct {
	sync.Mutex
	m map[string]*expvar.Int
}{m: make(map[string]*expvar.Int)}

// Add increments a named counter by delta.
func Add(counter string, delta int64) {
	get(counter).Add(delta)
}

// Counter returns the underlying expvar counter. Callers on a real-time
// path resolve it once up front; Add on the result is a single atomic.
func Counter(counter string) *expvar.Int {
	return get(counter)
}

// Value returns the current value of a named counter.
func Value(counter string) int64 {
	return get(counter).Value()
}

func get(counter string) *expvar.Int {
	counters.Lock()
	defer counters.Unlock()
	if v, ok := counters.m[counter]; ok {
		return v
	}
	v := expvar.NewInt(key(counter))
	counters.m[counter] = v
	return v
}

func key(counter string) string {
	return fmt.Sprintf("%s.%s", countersLabel, counter)
}
