//go:build !headless

package synth

import (
	"fmt"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoErr  error
	otoRate int
)

// OtoOutput plays sources on the default audio device.
type OtoOutput struct {
	ctx *oto.Context
}

// NewDeviceOutput opens the default audio device at sampleRate.
// Later calls reuse the first device context and must ask for the same rate.
func NewDeviceOutput(sampleRate int) (Output, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 1,
			Format:       oto.FormatFloat32LE,
			BufferSize:   0,
		}
		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = fmt.Errorf("open audio device: %w", err)
			return
		}
		<-ready
		otoCtx, otoRate = ctx, sampleRate
	})
	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("audio device already open at %d Hz, requested %d Hz", otoRate, sampleRate)
	}
	return &OtoOutput{ctx: otoCtx}, nil
}

// Play starts a device stream pulling from src.
func (o *OtoOutput) Play(src Source) (Player, error) {
	p := o.ctx.NewPlayer(newSourceReader(src))
	p.Play()
	if err := p.Err(); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("start audio stream: %w", err)
	}
	return p, nil
}
