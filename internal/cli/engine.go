package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/padsynth/internal/store"
	"github.com/roach88/padsynth/internal/synth"
)

// Version is recorded with every session.
const Version = "padsynth/0.1"

// newSynth builds the reference engine. Headless runs, from the flag or
// PADSYNTH_HEADLESS, render nowhere.
func newSynth(opts *RootOptions, headless bool) (*synth.Synth, error) {
	cfg := opts.Config
	out := synth.Discard
	if !headless && !cfg.Headless {
		dev, err := synth.NewDeviceOutput(cfg.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("open audio device: %w", err)
		}
		out = dev
	}
	return synth.New(out, synth.WithSampleRate(cfg.SampleRate), synth.WithLogger(slog.Default())), nil
}

// openRecording opens the database at path and starts a new session in it.
// The id, engine version and sample rate of sess are filled in. The caller
// closes the returned store.
func openRecording(ctx context.Context, path string, sess store.Session, gen store.SessionGenerator, opts *RootOptions) (*store.Store, *store.Recorder, error) {
	if gen == nil {
		gen = store.UUIDv7Generator{}
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	sess.ID = gen.Generate()
	sess.EngineVersion = Version
	sess.SampleRate = opts.Config.SampleRate
	rec, err := store.NewRecorder(ctx, st, sess, slog.Default())
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to create session", err)
	}
	return st, rec, nil
}
