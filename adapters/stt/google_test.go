package stt

import (
	"context"
	"testing"

	"cloud.google.com/go/speech/apiv1/speechpb"

	"github.com/wicara-ai/wicara/domain/repositories"
)

func TestAudioEncoding(t *testing.T) {
	tests := []struct {
		name    string
		want    speechpb.RecognitionConfig_AudioEncoding
		wantErr bool
	}{
		{"", speechpb.RecognitionConfig_LINEAR16, false},
		{"LINEAR16", speechpb.RecognitionConfig_LINEAR16, false},
		{"FLAC", speechpb.RecognitionConfig_FLAC, false},
		{"MULAW", speechpb.RecognitionConfig_MULAW, false},
		{"OGG_OPUS", speechpb.RecognitionConfig_OGG_OPUS, false},
		{"MP3", speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, true},
	}

	for _, tt := range tests {
		got, err := audioEncoding(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("audioEncoding(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("audioEncoding(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMockSpeechCaptureReplaysScript(t *testing.T) {
	capture := NewMockSpeechCapture(
		repositories.Transcript{Text: "hel", Final: false},
		repositories.Transcript{Text: "hello", Final: true},
	)

	transcripts, err := capture.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var got []repositories.Transcript
	for tr := range transcripts {
		got = append(got, tr)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 transcripts, got %d", len(got))
	}
	if got[0].Final || !got[1].Final {
		t.Errorf("final flags wrong: %+v", got)
	}
	if got[1].Text != "hello" {
		t.Errorf("final transcript = %q, want %q", got[1].Text, "hello")
	}

	if err := capture.Stop(); err != nil {
		t.Fatal(err)
	}
	if !capture.Stopped() {
		t.Error("Stopped() should report true after Stop")
	}
}

func TestAwaitFinalReturnsOnlyFinalResults(t *testing.T) {
	capture := NewMockSpeechCapture(
		repositories.Transcript{Text: "hel", Final: false},
		repositories.Transcript{Text: "hello wor", Final: false},
		repositories.Transcript{Text: "hello world", Final: true},
	)
	transcripts, err := capture.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	var interims []string
	text, ok := AwaitFinal(transcripts, func(partial string) {
		interims = append(interims, partial)
	})
	if !ok {
		t.Fatal("expected a final result")
	}
	if text != "hello world" {
		t.Errorf("final text = %q, want %q", text, "hello world")
	}
	if len(interims) != 2 {
		t.Errorf("interim callbacks = %d, want 2", len(interims))
	}
}

func TestAwaitFinalDiscardsInterimOnlyStream(t *testing.T) {
	capture := NewMockSpeechCapture(
		repositories.Transcript{Text: "half a sen", Final: false},
		repositories.Transcript{Text: "half a sentence", Final: false},
	)
	transcripts, err := capture.Start(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	text, ok := AwaitFinal(transcripts, nil)
	if ok {
		t.Fatal("stream without a final result must not produce input")
	}
	if text != "" {
		t.Errorf("partial text leaked: %q", text)
	}
}
