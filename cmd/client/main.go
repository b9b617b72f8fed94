// The wicara terminal client: type to chat, speak to chat, hear the
// replies. Voice output plays through ffplay; spoken input is captured
// with ffmpeg and transcribed with Google Cloud Speech.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wicara-ai/wicara/adapters/stt"
	"github.com/wicara-ai/wicara/domain/repositories"
	"github.com/wicara-ai/wicara/internal/config"
	"github.com/wicara-ai/wicara/internal/controller"
	"github.com/wicara-ai/wicara/internal/playback"
	"github.com/wicara-ai/wicara/internal/protocol"
	"github.com/wicara-ai/wicara/internal/transport"
)

const clientAgent = "wicara-terminal"

// relay forwards transport callbacks to the controller, which is
// constructed after the transport client it sends through.
type relay struct {
	ctrl *controller.Controller
}

func (r *relay) OnConnect() {
	r.ctrl.OnConnect()
}

func (r *relay) OnEvent(event protocol.Outbound) {
	r.ctrl.OnEvent(event)
}

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadClient()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := playback.NewQueue(playback.NewFFPlay(cfg.FFPlayPath, logger), logger)

	handler := &relay{}
	client, err := transport.NewClient(transport.Config{
		URL:        cfg.ServerURL,
		Backoff:    cfg.ReconnectBackoff,
		MaxRetries: cfg.ReconnectMaxRetries,
	}, handler, logger)
	if err != nil {
		logger.Fatal("Failed to create client", zap.Error(err))
	}
	defer client.Close()

	handler.ctrl = controller.New(client, queue, cfg.DefaultVoice, clientAgent,
		func(line string) { fmt.Println(line) }, logger)

	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("Connection closed", zap.Error(err))
			fmt.Println("[disconnected, giving up]")
			os.Exit(1)
		}
	}()

	fmt.Println("Commands: /voice on | /voice off | /voice <name> | /speak | /replay | /quit")
	runInputLoop(ctx, cfg, handler.ctrl, logger)
}

func runInputLoop(ctx context.Context, cfg *config.ClientConfig, ctrl *controller.Controller, logger *zap.Logger) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		switch {
		case line == "/quit":
			return

		case line == "/voice on":
			ctrl.EnableVoice()

		case line == "/voice off":
			ctrl.DisableVoice()

		case line == "/replay":
			ctrl.Replay()

		case strings.HasPrefix(line, "/voice "):
			ctrl.SetVoice(strings.TrimSpace(strings.TrimPrefix(line, "/voice ")))

		case line == "/speak":
			transcript, err := captureUtterance(ctx, cfg, logger)
			if err != nil {
				fmt.Println("[capture failed]", err)
				continue
			}
			if transcript == "" {
				fmt.Println("[no speech detected]")
				continue
			}
			if err := ctrl.SendSpoken(transcript); err != nil {
				fmt.Println("[send failed]", err)
			}

		default:
			if err := ctrl.SendText(line); err != nil {
				fmt.Println("[send failed]", err)
			}
		}
	}
}

// captureUtterance records from the microphone until the recognizer
// settles on a final transcript or the utterance window elapses.
func captureUtterance(ctx context.Context, cfg *config.ClientConfig, logger *zap.Logger) (string, error) {
	mic, err := stt.OpenMicrophone(cfg.FFmpegPath, cfg.CaptureSampleRate, logger)
	if err != nil {
		return "", err
	}

	capture, err := stt.NewGoogleSpeechCapture(mic, repositories.AudioConfig{
		SampleRate: cfg.CaptureSampleRate,
		Encoding:   "LINEAR16",
		Language:   cfg.CaptureLanguage,
	}, logger)
	if err != nil {
		mic.Close()
		return "", err
	}
	defer capture.Stop()

	captureCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	transcripts, err := capture.Start(captureCtx)
	if err != nil {
		return "", err
	}

	fmt.Println("[listening...]")
	text, ok := stt.AwaitFinal(transcripts, func(partial string) {
		fmt.Printf("\r... %s", partial)
	})
	fmt.Println()
	if !ok {
		// The stream ended on interim results only; those are never
		// sent as spoken input.
		return "", nil
	}
	return text, nil
}
