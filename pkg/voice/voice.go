// Package voice declares the audio capability boundary. The core engine
// never depends on it for correctness; it exists so a deployment can plug
// in playback, recording, and cloning backends.
package voice

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by the stub for every operation.
var ErrUnavailable = errors.New("voice capability not configured")

// AudioRef is an opaque reference to stored audio; backends define its
// meaning.
type AudioRef string

// Capability is the full audio surface: playback, capture, synthesis and
// voice cloning. All operations are potentially long-running.
type Capability interface {
	Play(ctx context.Context, ref AudioRef) error
	Record(ctx context.Context) (AudioRef, error)
	Synthesize(ctx context.Context, text, voiceID string) (AudioRef, error)
	Clone(ctx context.Context, sample AudioRef, text string) (AudioRef, error)
}

// Unconfigured is the default capability; every call fails with
// ErrUnavailable.
type Unconfigured struct{}

func (Unconfigured) Play(ctx context.Context, ref AudioRef) error { return ErrUnavailable }
func (Unconfigured) Record(ctx context.Context) (AudioRef, error) { return "", ErrUnavailable }
func (Unconfigured) Synthesize(ctx context.Context, text, voiceID string) (AudioRef, error) {
	return "", ErrUnavailable
}
func (Unconfigured) Clone(ctx context.Context, sample AudioRef, text string) (AudioRef, error) {
	return "", ErrUnavailable
}
