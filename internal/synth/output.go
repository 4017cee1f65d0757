package synth

import (
	"encoding/binary"
	"math"
	"sync"
)

// Source produces mono float32 samples.
type Source interface {
	Render(buf []float32)
}

// Output connects sources to an audio device.
type Output interface {
	// Play starts pulling samples from src until the returned Player is closed.
	Play(src Source) (Player, error)
}

// Player is one running stream.
type Player interface {
	Close() error
}

// Discard is an Output that never pulls samples. It backs headless runs.
var Discard Output = discard{}

type discard struct{}

func (discard) Play(Source) (Player, error) { return nopPlayer{}, nil }

type nopPlayer struct{}

func (nopPlayer) Close() error { return nil }

// sourceReader adapts a Source to the little-endian float32 byte stream
// audio devices pull from.
type sourceReader struct {
	src Source

	mu  sync.Mutex
	buf []float32
}

func newSourceReader(src Source) *sourceReader {
	return &sourceReader{src: src, buf: make([]float32, 1024)}
}

// Read fills p with whole samples. It never fails and never returns io.EOF.
func (r *sourceReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(p) / 4
	if cap(r.buf) < n {
		r.buf = make([]float32, n)
	}
	samples := r.buf[:n]
	r.src.Render(samples)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(p[i*4:], math.Float32bits(s))
	}
	return n * 4, nil
}
