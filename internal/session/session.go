// Package session owns one identity's ordered conversation: the welcome
// message, the in-flight placeholder and persistence through a
// types.HistoryStore.
//
// Only durable messages are written to the store. AppendUser,
// ResolvePlaceholder and Clear persist; BeginPlaceholder and
// UpdatePlaceholder change the in-memory list only, so the placeholder and
// its partial content are never persisted and a reloaded session never
// starts with one.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/campuschat/internal/campus"
	"github.com/user/campuschat/internal/types"
	"github.com/user/campuschat/pkg/assistant"
)

var (
	// ErrPlaceholderActive is returned when a second placeholder is begun
	// while one is still in flight.
	ErrPlaceholderActive = errors.New("placeholder already active")
	// ErrNoPlaceholder is returned when there is no placeholder to update
	// or resolve.
	ErrNoPlaceholder = errors.New("no active placeholder")
)

// DefaultBannerDelay is how long the welcome banner stays visible.
const DefaultBannerDelay = 5 * time.Second

type Options struct {
	// BannerDelay hides the welcome banner after this long. Zero uses
	// DefaultBannerDelay; negative hides it immediately.
	BannerDelay time.Duration
	// OnChange is called after every change to the message list, with a
	// copy of the list. It runs outside the session lock.
	OnChange func(messages []assistant.Message)
	// OnBannerHidden is called once when the banner delay elapses.
	OnBannerHidden func()
}

// Session is the conversation for one identity.
type Session struct {
	mu          sync.Mutex
	key         types.IdentityKey
	user        *types.User
	profile     *campus.Profile
	store       types.HistoryStore
	messages    []assistant.Message
	placeholder int

	opts         Options
	bannerHidden atomic.Bool
	bannerTimer  *time.Timer
}

// Open loads the identity's persisted conversation, or seeds a single
// welcome message when none exists. A store that fails to load degrades
// to a fresh conversation.
func Open(ctx context.Context, store types.HistoryStore, user *types.User, profile *campus.Profile, opts Options) *Session {
	s := &Session{
		key:         types.IdentityOf(user),
		user:        user,
		profile:     profile,
		store:       store,
		placeholder: -1,
		opts:        opts,
	}

	msgs, ok, err := store.Load(ctx, s.key.HistoryKey())
	if err != nil {
		slog.Warn("load chat history failed", "identity", string(s.key), "error", err)
	}
	if ok && len(msgs) > 0 {
		s.messages = dropEmptyModel(msgs)
	}
	if len(s.messages) == 0 {
		s.messages = []assistant.Message{WelcomeMessage(user, profile)}
	}

	delay := opts.BannerDelay
	if delay == 0 {
		delay = DefaultBannerDelay
	}
	if delay < 0 {
		s.bannerHidden.Store(true)
	} else {
		s.bannerTimer = time.AfterFunc(delay, s.hideBanner)
	}
	return s
}

func (s *Session) hideBanner() {
	if s.bannerHidden.CompareAndSwap(false, true) && s.opts.OnBannerHidden != nil {
		s.opts.OnBannerHidden()
	}
}

// Key returns the identity this session belongs to.
func (s *Session) Key() types.IdentityKey { return s.key }

// User returns the session's user, nil for a guest.
func (s *Session) User() *types.User { return s.user }

// BannerVisible reports whether the welcome banner is still shown.
func (s *Session) BannerVisible() bool { return !s.bannerHidden.Load() }

// Messages returns a copy of the current message list, including any
// in-flight placeholder.
func (s *Session) Messages() []assistant.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Pending reports whether a placeholder is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeholder >= 0
}

// History returns up to limit of the most recent conversation messages,
// excluding the welcome message and any in-flight placeholder.
func (s *Session) History(limit int) []assistant.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []assistant.Message
	for i, m := range s.messages {
		if i == s.placeholder || IsWelcome(m) {
			continue
		}
		out = append(out, m)
	}
	if limit >= 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return slices.Clone(out)
}

// AppendUser appends a user message and persists.
func (s *Session) AppendUser(ctx context.Context, text string) error {
	durable, err := s.mutate(func() error {
		s.messages = append(s.messages, assistant.Message{Role: assistant.RoleUser, Content: text})
		return nil
	})
	if err != nil {
		return err
	}
	return s.save(ctx, durable)
}

// BeginPlaceholder appends the transient empty model message. At most one
// may exist at a time.
func (s *Session) BeginPlaceholder() error {
	_, err := s.mutate(func() error {
		if s.placeholder >= 0 {
			return ErrPlaceholderActive
		}
		s.messages = append(s.messages, assistant.Message{Role: assistant.RoleModel})
		s.placeholder = len(s.messages) - 1
		return nil
	})
	return err
}

// UpdatePlaceholder sets the placeholder's content to the accumulated
// text so far.
func (s *Session) UpdatePlaceholder(content string) error {
	_, err := s.mutate(func() error {
		if s.placeholder < 0 {
			return ErrNoPlaceholder
		}
		s.messages[s.placeholder].Content = content
		return nil
	})
	return err
}

// ResolvePlaceholder replaces the placeholder with msg and persists. An
// empty model reply is stored as assistant.EmptyResponseMessage.
func (s *Session) ResolvePlaceholder(ctx context.Context, msg assistant.Message) error {
	msg = assistant.FillEmpty(msg)
	durable, err := s.mutate(func() error {
		if s.placeholder < 0 {
			return ErrNoPlaceholder
		}
		s.messages[s.placeholder] = msg
		s.placeholder = -1
		return nil
	})
	if err != nil {
		return err
	}
	return s.save(ctx, durable)
}

// Clear deletes the persisted entry and resets the list to a freshly
// generated welcome message.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.messages = []assistant.Message{WelcomeMessage(s.user, s.profile)}
	s.placeholder = -1
	snapshot := slices.Clone(s.messages)
	s.mu.Unlock()

	s.notify(snapshot)
	if err := s.store.Clear(ctx, s.key.HistoryKey()); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	return nil
}

// Close stops the banner timer.
func (s *Session) Close() {
	if s.bannerTimer != nil {
		s.bannerTimer.Stop()
	}
}

// mutate applies fn under the lock and notifies observers. It returns
// the list as it would be persisted.
func (s *Session) mutate(fn func() error) ([]assistant.Message, error) {
	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	snapshot := slices.Clone(s.messages)
	durable := s.durableLocked()
	s.mu.Unlock()

	s.notify(snapshot)
	return durable, nil
}

func (s *Session) save(ctx context.Context, durable []assistant.Message) error {
	if err := s.store.Save(ctx, s.key.HistoryKey(), durable); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// durableLocked returns the messages that are persisted: everything but
// the in-flight placeholder. Caller must hold s.mu.
func (s *Session) durableLocked() []assistant.Message {
	out := make([]assistant.Message, 0, len(s.messages))
	for i, m := range s.messages {
		if i != s.placeholder {
			out = append(out, m)
		}
	}
	return out
}

func (s *Session) notify(snapshot []assistant.Message) {
	if s.opts.OnChange != nil {
		s.opts.OnChange(snapshot)
	}
}

// dropEmptyModel removes empty model messages a crashed writer may have
// left behind, so a loaded session never starts with a placeholder.
func dropEmptyModel(msgs []assistant.Message) []assistant.Message {
	return slices.DeleteFunc(slices.Clone(msgs), func(m assistant.Message) bool {
		return m.Role == assistant.RoleModel && m.Content == ""
	})
}
