// Package voice holds the optional speech subsystems. Neither is required
// for chat: when the host lacks a capability the no-op implementation is
// used and every call succeeds without effect.
package voice

import (
	"context"
	"sync"
)

// Event names a subsystem notification.
type Event string

const (
	EventStart  Event = "start"
	EventEnd    Event = "end"
	EventResult Event = "result"
	EventError  Event = "error"
)

// Handler receives an event payload: the transcript for EventResult, the
// error text for EventError, empty otherwise.
type Handler func(payload string)

// Recognizer turns speech into text.
type Recognizer interface {
	Start(ctx context.Context) error
	Stop() error
	On(event Event, h Handler)
	Available() bool
}

// Synthesizer reads text aloud.
type Synthesizer interface {
	Start(ctx context.Context) error
	Stop() error
	On(event Event, h Handler)
	Speak(text string) error
	Available() bool
}

type emitter struct {
	mu       sync.Mutex
	handlers map[Event][]Handler
}

func (e *emitter) On(event Event, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.handlers == nil {
		e.handlers = make(map[Event][]Handler)
	}
	e.handlers[event] = append(e.handlers[event], h)
}

func (e *emitter) emit(event Event, payload string) {
	e.mu.Lock()
	hs := append([]Handler(nil), e.handlers[event]...)
	e.mu.Unlock()
	for _, h := range hs {
		h(payload)
	}
}

// NoopRecognizer is used when speech input is unavailable.
type NoopRecognizer struct{}

func (NoopRecognizer) Start(context.Context) error { return nil }
func (NoopRecognizer) Stop() error                 { return nil }
func (NoopRecognizer) On(Event, Handler)           {}
func (NoopRecognizer) Available() bool             { return false }

// NoopSynthesizer is used when speech output is unavailable.
type NoopSynthesizer struct{}

func (NoopSynthesizer) Start(context.Context) error { return nil }
func (NoopSynthesizer) Stop() error                 { return nil }
func (NoopSynthesizer) On(Event, Handler)           {}
func (NoopSynthesizer) Speak(string) error          { return nil }
func (NoopSynthesizer) Available() bool             { return false }
