package gateway

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/user/campuschat/internal/campus"
	"github.com/user/campuschat/internal/session"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
)

// Gateway resolves one Coordinator per identity and caps the number of
// backend requests in flight across all of them.
type Gateway struct {
	store    types.HistoryStore
	backend  assistant.Backend
	contexts ContextSource
	opts     Options
	session  session.Options

	mu           sync.Mutex
	coordinators map[types.IdentityKey]*Coordinator
	closed       bool
}

// New creates a Gateway. maxConcurrent bounds simultaneous backend
// requests across identities; it defaults to 2.
func New(store types.HistoryStore, backend assistant.Backend, contexts ContextSource, opts Options, maxConcurrent ...int64) *Gateway {
	var concurrency int64 = 2
	if len(maxConcurrent) > 0 && maxConcurrent[0] > 0 {
		concurrency = maxConcurrent[0]
	}
	if opts.Limiter == nil {
		opts.Limiter = semaphore.NewWeighted(concurrency)
	}
	return &Gateway{
		store:        store,
		backend:      backend,
		contexts:     contexts,
		opts:         opts,
		session:      session.Options{BannerDelay: -1},
		coordinators: make(map[types.IdentityKey]*Coordinator),
	}
}

// WithSessionOptions sets the options used for sessions opened from now on.
func (g *Gateway) WithSessionOptions(opts session.Options) *Gateway {
	g.mu.Lock()
	g.session = opts
	g.mu.Unlock()
	return g
}

// Resolve returns the identity's coordinator, opening its session on
// first use.
func (g *Gateway) Resolve(ctx context.Context, user *types.User) (*Coordinator, error) {
	key := types.IdentityOf(user)

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	if c, ok := g.coordinators[key]; ok {
		g.mu.Unlock()
		return c, nil
	}
	sessOpts := g.session
	g.mu.Unlock()

	profile := g.profile(ctx, user)
	sess := session.Open(ctx, g.store, user, profile, sessOpts)
	c := NewCoordinator(sess, g.backend, g.contexts, g.opts)

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		c.Close()
		return nil, ErrClosed
	}
	if existing, ok := g.coordinators[key]; ok {
		c.Close()
		return existing, nil
	}
	g.coordinators[key] = c
	return c, nil
}

// Submit resolves the user's coordinator and submits text to it.
func (g *Gateway) Submit(ctx context.Context, user *types.User, text string) (*assistant.Message, error) {
	c, err := g.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	return c.Submit(ctx, text)
}

// Close closes every coordinator and rejects further resolution.
func (g *Gateway) Close() {
	g.mu.Lock()
	g.closed = true
	coordinators := make([]*Coordinator, 0, len(g.coordinators))
	for _, c := range g.coordinators {
		coordinators = append(coordinators, c)
	}
	g.coordinators = map[types.IdentityKey]*Coordinator{}
	g.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range coordinators {
		wg.Add(1)
		go func(c *Coordinator) {
			defer wg.Done()
			c.Close()
		}(c)
	}
	wg.Wait()
}

func (g *Gateway) profile(ctx context.Context, user *types.User) *campus.Profile {
	if g.contexts == nil {
		return nil
	}
	return g.contexts.Profile(ctx, user)
}
