package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
)

// ExecSynthesizer speaks through an external text-to-speech program that
// takes the text as its final argument (espeak, say).
type ExecSynthesizer struct {
	emitter
	path string
	args []string

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	queue   chan string
	stopped chan struct{}
}

// NewExecSynthesizer creates a synthesizer for the program at path.
func NewExecSynthesizer(path string, args ...string) *ExecSynthesizer {
	return &ExecSynthesizer{path: path, args: args}
}

func (s *ExecSynthesizer) Available() bool { return true }

// Start launches the speaking loop. Utterances are spoken one at a time
// in submission order.
func (s *ExecSynthesizer) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.queue = make(chan string, 16)
	s.stopped = make(chan struct{})
	go s.loop(s.ctx, s.queue, s.stopped)
	return nil
}

// Stop interrupts the current utterance and drops queued ones.
func (s *ExecSynthesizer) Stop() error {
	s.mu.Lock()
	cancel, stopped := s.cancel, s.stopped
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-stopped
	return nil
}

// Speak queues text. It never blocks; when the queue is full the text is
// dropped and an error returned.
func (s *ExecSynthesizer) Speak(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return errors.New("synthesizer not started")
	}
	select {
	case s.queue <- text:
		return nil
	default:
		return errors.New("speech queue full")
	}
}

func (s *ExecSynthesizer) loop(ctx context.Context, queue <-chan string, stopped chan<- struct{}) {
	defer close(stopped)
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-queue:
			s.emit(EventStart, text)
			args := append(append([]string(nil), s.args...), text)
			if err := exec.CommandContext(ctx, s.path, args...).Run(); err != nil && ctx.Err() == nil {
				slog.Debug("speech synthesis failed", "program", s.path, "error", err)
				s.emit(EventError, err.Error())
			}
			s.emit(EventEnd, "")
		}
	}
}

// ExecRecognizer reads transcripts, one per line, from the standard
// output of an external speech-to-text program.
type ExecRecognizer struct {
	emitter
	path string
	args []string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewExecRecognizer(path string, args ...string) *ExecRecognizer {
	return &ExecRecognizer{path: path, args: args}
}

func (r *ExecRecognizer) Available() bool { return true }

// Start runs the program until Stop or ctx is done, emitting EventResult
// for each non-empty line.
func (r *ExecRecognizer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, r.path, r.args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return fmt.Errorf("recognizer stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return fmt.Errorf("start recognizer: %w", err)
	}
	r.cancel = cancel
	r.done = make(chan struct{})
	r.emit(EventStart, "")

	go func(done chan struct{}) {
		defer close(done)
		scanner := bufio.NewScanner(stdout)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				r.emit(EventResult, line)
			}
		}
		if err := cmd.Wait(); err != nil && ctx.Err() == nil {
			r.emit(EventError, err.Error())
		}
		r.emit(EventEnd, "")
	}(r.done)
	return nil
}

func (r *ExecRecognizer) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}
