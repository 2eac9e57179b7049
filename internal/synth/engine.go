// Package synth adapts local text-to-speech binaries as the fallback
// narration backend. Synthesis is an optional capability: when no engine
// is available, block activation still happens, just without audio.
package synth

import (
	"context"
	"log/slog"
	"os/exec"
	"sync"
)

// Engine is the narrow contract the playback controller depends on.
// Speak blocks until the utterance finishes or ctx is cancelled. Cancel
// stops any in-flight utterance; it must always be called before a new
// Speak so utterances never overlap.
type Engine interface {
	Speak(ctx context.Context, text string) error
	Cancel()
	Available() bool
	Name() string
}

// candidate TTS binaries, tried in order during auto-detection.
var candidates = []string{"espeak-ng", "espeak", "flite", "say"}

// ExecEngine shells out to a local TTS binary per utterance.
type ExecEngine struct {
	binary string
	logger *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewExecEngine creates an engine for the given binary. When binary is
// empty it auto-detects one of the known TTS binaries on PATH, returning
// a NoopEngine when none is found - missing speech capability is a
// degraded mode, not an error.
func NewExecEngine(binary string, logger *slog.Logger) Engine {
	if binary == "" {
		for _, name := range candidates {
			if path, err := exec.LookPath(name); err == nil {
				binary = path
				break
			}
		}
	}
	if binary == "" {
		logger.Warn("no speech synthesis binary found, narration fallback will be silent")
		return NoopEngine{}
	}

	logger.Info("using speech synthesis binary", slog.String("path", binary))
	return &ExecEngine{binary: binary, logger: logger}
}

// Speak synthesizes one utterance. A previous utterance still playing is
// cancelled first.
func (e *ExecEngine) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	e.Cancel()

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()

	cmd := exec.CommandContext(ctx, e.binary, text) //nolint:gosec // binary is from exec.LookPath or operator config
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			// Cancelled mid-utterance, expected on seek or document switch.
			return nil
		}
		e.logger.Warn("speech synthesis failed", "error", err)
		return err
	}
	return nil
}

// Cancel stops the in-flight utterance, if any.
func (e *ExecEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// Available implements Engine.
func (e *ExecEngine) Available() bool { return true }

// Name implements Engine.
func (e *ExecEngine) Name() string { return e.binary }

// NoopEngine is the silent engine used when no TTS binary exists.
type NoopEngine struct{}

// Speak implements Engine as a no-op.
func (NoopEngine) Speak(context.Context, string) error { return nil }

// Cancel implements Engine as a no-op.
func (NoopEngine) Cancel() {}

// Available implements Engine.
func (NoopEngine) Available() bool { return false }

// Name implements Engine.
func (NoopEngine) Name() string { return "none" }
