package voice

import (
	"context"
	"errors"
	"os/exec"
	"sync"
	"testing"
	"time"
)

func TestDetectDisabled(t *testing.T) {
	rec, synth := Detect(Config{Enabled: false})
	if rec.Available() || synth.Available() {
		t.Error("expected no-op subsystems when disabled")
	}
	if err := synth.Speak("hello"); err != nil {
		t.Errorf("no-op Speak should succeed, got %v", err)
	}
}

func TestDetectMissingPrograms(t *testing.T) {
	orig := lookPath
	lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	defer func() { lookPath = orig }()

	rec, synth := Detect(Config{Enabled: true, RecognizeCommand: "whisper-stream"})
	if rec.Available() || synth.Available() {
		t.Error("expected no-op subsystems when programs are missing")
	}
}

func TestDetectPrefersConfiguredCommand(t *testing.T) {
	orig := lookPath
	var looked []string
	lookPath = func(name string) (string, error) {
		looked = append(looked, name)
		if name == "piper" {
			return "/usr/bin/piper", nil
		}
		return "", errors.New("not found")
	}
	defer func() { lookPath = orig }()

	_, synth := Detect(Config{Enabled: true, SpeakCommand: "piper --quiet"})
	s, ok := synth.(*ExecSynthesizer)
	if !ok {
		t.Fatalf("expected ExecSynthesizer, got %T", synth)
	}
	if s.path != "/usr/bin/piper" || len(s.args) != 1 || s.args[0] != "--quiet" {
		t.Errorf("unexpected synthesizer %+v", s)
	}
	if len(looked) != 1 {
		t.Errorf("expected only the configured command looked up, got %v", looked)
	}
}

func TestExecSynthesizerSpeaks(t *testing.T) {
	path, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}
	s := NewExecSynthesizer(path)

	var mu sync.Mutex
	var spoken []string
	ended := make(chan struct{}, 2)
	s.On(EventStart, func(text string) {
		mu.Lock()
		spoken = append(spoken, text)
		mu.Unlock()
	})
	s.On(EventEnd, func(string) { ended <- struct{}{} })

	if err := s.Speak("too early"); err == nil {
		t.Error("expected error before Start")
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	s.Speak("first")
	s.Speak("second")
	for i := 0; i < 2; i++ {
		select {
		case <-ended:
		case <-time.After(5 * time.Second):
			t.Fatal("utterance never finished")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(spoken) != 2 || spoken[0] != "first" || spoken[1] != "second" {
		t.Errorf("expected ordered utterances, got %v", spoken)
	}
}

func TestExecRecognizerEmitsLines(t *testing.T) {
	path, err := exec.LookPath("printf")
	if err != nil {
		t.Skip("printf not available")
	}
	r := NewExecRecognizer(path, "what is my cgpa\n\nwhen is the exam\n")

	results := make(chan string, 4)
	ended := make(chan struct{})
	r.On(EventResult, func(text string) { results <- text })
	r.On(EventEnd, func(string) { close(ended) })

	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	select {
	case <-ended:
	case <-time.After(5 * time.Second):
		t.Fatal("recognizer never ended")
	}
	r.Stop()

	close(results)
	var got []string
	for text := range results {
		got = append(got, text)
	}
	if len(got) != 2 || got[0] != "what is my cgpa" || got[1] != "when is the exam" {
		t.Errorf("unexpected transcripts %v", got)
	}
}
