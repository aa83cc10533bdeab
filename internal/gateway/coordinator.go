package gateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/user/campuschat/internal/session"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
)

var (
	// ErrBusy rejects a submission while another request is in flight.
	ErrBusy = errors.New("a request is already in flight")
	// ErrClosed rejects submissions after Close.
	ErrClosed = errors.New("coordinator closed")
	// ErrEmptyMessage rejects blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// DefaultHistoryLimit is how many prior messages accompany a request.
const DefaultHistoryLimit = 10

type Options struct {
	Stream       bool
	Cache        bool
	HistoryLimit int
	// Limiter, when set, is shared across coordinators to cap concurrent
	// backend requests.
	Limiter *semaphore.Weighted
	// OnState is called on every state transition.
	OnState func(run *Run, state State)
	// OnDelta is called with the accumulated content as it streams.
	OnDelta func(run *Run, content string)
}

// Coordinator drives one session's requests, one at a time.
type Coordinator struct {
	session  *session.Session
	backend  assistant.Backend
	contexts ContextSource
	opts     Options

	inflight *semaphore.Weighted

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	closed bool

	life     context.Context
	stopLife context.CancelFunc
}

// NewCoordinator creates a coordinator in the Idle state.
func NewCoordinator(sess *session.Session, backend assistant.Backend, contexts ContextSource, opts Options) *Coordinator {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = DefaultHistoryLimit
	}
	life, stop := context.WithCancel(context.Background())
	return &Coordinator{
		session:  sess,
		backend:  backend,
		contexts: contexts,
		opts:     opts,
		inflight: semaphore.NewWeighted(1),
		state:    StateIdle,
		life:     life,
		stopLife: stop,
	}
}

// Session returns the coordinated session.
func (c *Coordinator) Session() *session.Session { return c.session }

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit sends text and blocks until the request resolves. It returns
// ErrBusy without side effects while another request is in flight. On a
// failed request the placeholder is replaced with an error bubble, which
// is returned alongside the error.
func (c *Coordinator) Submit(ctx context.Context, text string) (*assistant.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !c.inflight.TryAcquire(1) {
		c.mu.Lock()
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return nil, ErrClosed
		}
		return nil, ErrBusy
	}
	defer c.inflight.Release(1)

	reqCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.life, cancel)
	defer stop()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.cancel = cancel
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.cancel = nil
		c.mu.Unlock()
	}()

	run := NewRun(c.session.Key(), text)
	log := slog.With("request_id", string(run.ID), "identity", string(run.Identity))
	c.transition(run, StateSending)

	// Persistence writes complete even when the request is cancelled.
	persistCtx := context.WithoutCancel(reqCtx)

	history := c.session.History(c.opts.HistoryLimit)
	if err := c.session.AppendUser(persistCtx, text); err != nil {
		log.Warn("persist user message failed", "error", err)
	}
	if err := c.session.BeginPlaceholder(); err != nil {
		c.transition(run, StateIdle)
		return nil, err
	}

	req := &assistant.ChatRequest{
		Message: text,
		History: history,
		Context: c.requestContext(reqCtx),
		Stream:  c.opts.Stream,
		Cache:   c.opts.Cache,
	}

	msg, err := c.send(reqCtx, run, req)
	if err != nil {
		c.transition(run, StateErrored)
		bubble := failureMessage(err)
		if errors.Is(err, context.Canceled) {
			log.Info("request cancelled", "partial_len", len(assistant.PartialContent(err)))
		} else {
			log.Warn("chat request failed", "error", err)
		}
		if rerr := c.session.ResolvePlaceholder(persistCtx, bubble); rerr != nil {
			log.Warn("persist error message failed", "error", rerr)
		}
		run.finish(err)
		c.transition(run, StateIdle)
		return &bubble, err
	}

	final := assistant.FillEmpty(*msg)
	if final.Content != msg.Content {
		log.Warn("chat response was empty")
	}
	if err := c.session.ResolvePlaceholder(persistCtx, final); err != nil {
		log.Warn("persist response failed", "error", err)
	}
	run.finish(nil)
	c.transition(run, StateIdle)
	return &final, nil
}

func (c *Coordinator) send(ctx context.Context, run *Run, req *assistant.ChatRequest) (*assistant.Message, error) {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer c.opts.Limiter.Release(1)
	}

	c.transition(run, StateStreaming)
	return c.backend.Chat(ctx, req, func(content string) {
		if err := c.session.UpdatePlaceholder(content); err != nil {
			return
		}
		if c.opts.OnDelta != nil {
			c.opts.OnDelta(run, content)
		}
	})
}

func (c *Coordinator) requestContext(ctx context.Context) assistant.RequestContext {
	user := c.session.User()
	if c.contexts == nil {
		role := types.RoleOf(user)
		return assistant.RequestContext{Role: string(role), Name: string(role)}
	}
	return c.contexts.Context(ctx, user)
}

// Cancel aborts the in-flight request, if any. The placeholder resolves
// to whatever content had arrived.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Close cancels any in-flight request, waits for it to resolve and
// rejects further submissions.
func (c *Coordinator) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	c.stopLife()
	// Holding the slot forever keeps later TryAcquire calls failing.
	_ = c.inflight.Acquire(context.Background(), 1)
	c.session.Close()
}

func (c *Coordinator) transition(run *Run, s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	run.State = s
	if c.opts.OnState != nil {
		c.opts.OnState(run, s)
	}
}

// failureMessage builds the model bubble that replaces the placeholder
// after err.
func failureMessage(err error) assistant.Message {
	if errors.Is(err, context.Canceled) {
		if partial := assistant.PartialContent(err); partial != "" {
			return assistant.Message{
				Role:     assistant.RoleModel,
				Content:  partial,
				Metadata: map[string]any{"cancelled": true},
			}
		}
	}
	return assistant.Message{
		Role:     assistant.RoleModel,
		Content:  assistant.UserMessage(err),
		Metadata: map[string]any{"error": true},
	}
}
