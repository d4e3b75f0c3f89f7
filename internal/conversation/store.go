// Package conversation holds the state of a single chat widget mount: the ordered message history, the typing
// indicator and the visitor's draft. Every visible change goes through a Store, and observers registered with
// Subscribe are told about each transition.
package conversation

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/jdphotomoments/chatwidget/internal/models"
)

var (
	// ErrMessageNotFound is returned by UpdateMessageContent when no message has the given ID.
	ErrMessageNotFound = errors.New("message not found")
	// ErrDetached is returned by every mutation once the rendering surface has gone away.
	ErrDetached = errors.New("conversation detached")
	// ErrTyping is returned by SetIdleDraft while the typing indicator is on.
	ErrTyping = errors.New("reply in progress")
)

// State is a point-in-time copy of a conversation.
type State struct {
	Messages   []models.Message
	IsTyping   bool
	DraftInput string
}

// Store is the single source of truth for a conversation. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	messages []models.Message
	typing   bool
	draft    string
	detached bool

	observers map[int]func(State)
	nextObsID int
}

// New creates a Store seeded with the greeting message.
func New(greeting models.Message) *Store {
	return &Store{
		messages:  []models.Message{greeting},
		observers: make(map[int]func(State)),
	}
}

// AppendMessage inserts msg at the end of the history. IDs are generated by callers and assumed unique.
func (s *Store) AppendMessage(msg models.Message) error {
	return s.mutate(func() error {
		s.messages = append(s.messages, msg)
		return nil
	})
}

// UpdateMessageContent replaces the content of the message with the given ID, leaving everything else as is.
func (s *Store) UpdateMessageContent(id, content string) error {
	return s.mutate(func() error {
		idx := slices.IndexFunc(s.messages, func(m models.Message) bool { return m.ID == id })
		if idx == -1 {
			return ErrMessageNotFound
		}
		s.messages[idx].Content = content
		return nil
	})
}

// SetTyping sets the typing indicator.
func (s *Store) SetTyping(typing bool) error {
	return s.mutate(func() error {
		s.typing = typing
		return nil
	})
}

// SetDraft sets the not-yet-submitted input.
func (s *Store) SetDraft(text string) error {
	return s.mutate(func() error {
		s.draft = text
		return nil
	})
}

// SetIdleDraft is SetDraft for edits that may race a submit: it refuses with ErrTyping while the typing
// indicator is on, so a late write cannot restore the draft BeginTurn just cleared.
func (s *Store) SetIdleDraft(text string) error {
	return s.mutate(func() error {
		if s.typing {
			return ErrTyping
		}
		s.draft = text
		return nil
	})
}

// BeginTurn accepts a user message if no reply is in flight and the message is not blank. On acceptance the
// message is appended, the draft cleared and typing set, all in one transition. A rejected turn changes nothing
// and notifies nobody.
func (s *Store) BeginTurn(msg models.Message) bool {
	s.mu.Lock()
	if s.detached || s.typing || strings.TrimSpace(msg.Content) == "" {
		s.mu.Unlock()
		return false
	}
	s.messages = append(s.messages, msg)
	s.draft = ""
	s.typing = true
	st, obs := s.snapshotLocked()
	s.mu.Unlock()

	notify(obs, st)
	return true
}

// FinishTurn appends the final bot message and clears typing in one transition.
func (s *Store) FinishTurn(msg models.Message) error {
	return s.mutate(func() error {
		s.messages = append(s.messages, msg)
		s.typing = false
		return nil
	})
}

// State returns a copy of the current conversation state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Messages:   slices.Clone(s.messages),
		IsTyping:   s.typing,
		DraftInput: s.draft,
	}
}

// Messages returns a copy of the message history in insertion order.
func (s *Store) Messages() []models.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.messages)
}

// IsTyping reports whether a reply is in flight.
func (s *Store) IsTyping() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.typing
}

// Draft returns the current draft input.
func (s *Store) Draft() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft
}

// Subscribe registers fn to be called after every successful mutation. Observers run synchronously on the
// mutating goroutine, outside the store lock, and receive a copy of the new state. The returned function
// removes the observer.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	id := s.nextObsID
	s.nextObsID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Detach marks the rendering surface as gone. Later mutations fail with ErrDetached and notify nobody.
func (s *Store) Detach() {
	s.mu.Lock()
	s.detached = true
	clear(s.observers)
	s.mu.Unlock()
}

// Detached reports whether Detach has been called.
func (s *Store) Detached() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detached
}

func (s *Store) mutate(fn func() error) error {
	s.mu.Lock()
	if s.detached {
		s.mu.Unlock()
		return ErrDetached
	}
	if err := fn(); err != nil {
		s.mu.Unlock()
		return err
	}
	st, obs := s.snapshotLocked()
	s.mu.Unlock()

	notify(obs, st)
	return nil
}

func (s *Store) snapshotLocked() (State, []func(State)) {
	if len(s.observers) == 0 {
		return State{}, nil
	}

	ids := make([]int, 0, len(s.observers))
	for id := range s.observers {
		ids = append(ids, id)
	}
	// Subscription order.
	slices.Sort(ids)

	obs := make([]func(State), len(ids))
	for i, id := range ids {
		obs[i] = s.observers[id]
	}

	return State{
		Messages:   slices.Clone(s.messages),
		IsTyping:   s.typing,
		DraftInput: s.draft,
	}, obs
}

func notify(observers []func(State), st State) {
	for _, fn := range observers {
		fn(st)
	}
}
