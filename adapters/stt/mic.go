package stt

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strconv"

	"go.uber.org/zap"
)

// Microphone wraps an ffmpeg capture process exposing the default
// input device as a raw LINEAR16 PCM stream.
type Microphone struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	logger *zap.Logger
}

// OpenMicrophone starts ffmpeg reading from the platform's default
// capture device at the given sample rate. The returned Microphone is
// an io.Reader of raw mono 16-bit samples.
func OpenMicrophone(ffmpegPath string, sampleRate int, logger *zap.Logger) (*Microphone, error) {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 16000
	}

	args := micInputArgs()
	args = append(args,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "s16le",
		"-loglevel", "quiet",
		"pipe:1",
	)

	cmd := exec.Command(ffmpegPath, args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg capture: %w", err)
	}

	logger.Info("Microphone capture started",
		zap.String("ffmpeg", ffmpegPath),
		zap.Int("sample_rate", sampleRate))

	return &Microphone{cmd: cmd, stdout: stdout, logger: logger}, nil
}

// Read implements io.Reader over the raw PCM stream.
func (m *Microphone) Read(p []byte) (int, error) {
	return m.stdout.Read(p)
}

// Close terminates the capture process.
func (m *Microphone) Close() error {
	m.stdout.Close()
	if m.cmd.Process != nil {
		m.cmd.Process.Kill()
	}
	return m.cmd.Wait()
}

func micInputArgs() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"-f", "avfoundation", "-i", ":0"}
	case "windows":
		return []string{"-f", "dshow", "-i", "audio=default"}
	default:
		return []string{"-f", "pulse", "-i", "default"}
	}
}
