package playback

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"go.uber.org/zap"
)

// FFPlay plays WAV clips by piping them to an ffplay child process.
type FFPlay struct {
	path   string
	logger *zap.Logger
}

var _ Player = (*FFPlay)(nil)

// NewFFPlay creates a player using the ffplay binary at path, falling
// back to PATH lookup when empty.
func NewFFPlay(path string, logger *zap.Logger) *FFPlay {
	if path == "" {
		path = "ffplay"
	}
	return &FFPlay{path: path, logger: logger}
}

// Play feeds the clip to ffplay over stdin and waits for it to finish.
// Cancelling ctx kills the process.
func (f *FFPlay) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, f.path,
		"-autoexit",
		"-nodisp",
		"-loglevel", "quiet",
		"-i", "pipe:0",
	)
	cmd.Stdin = bytes.NewReader(audio)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffplay failed: %w", err)
	}
	f.logger.Debug("Clip played", zap.Int("bytes", len(audio)))
	return nil
}
