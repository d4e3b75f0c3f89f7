package handlers

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jdphotomoments/chatwidget"
	"github.com/jdphotomoments/chatwidget/internal/conversation"
	"github.com/jdphotomoments/chatwidget/internal/models"
	"github.com/tmaxmax/go-sse"
)

// Pipeline answers the user messages of one conversation. Submit reports whether the message was accepted and
// returns before the reply is complete.
type Pipeline interface {
	Submit(text string) bool
}

// PipelineFactory creates the pipeline of a freshly mounted conversation.
type PipelineFactory func(store *conversation.Store) Pipeline

// Main serves the chat widget. Every page load mounts a new conversation, which lives until the page's SSE
// session ends. A conversation whose page never opens its SSE session is unmounted after the claim timeout.
type Main struct {
	sseSrv    *sse.Server
	templates *template.Template

	greeting     string
	newPipeline  PipelineFactory
	claimTimeout time.Duration

	mu      *sync.Mutex
	widgets map[string]widget

	logger *slog.Logger
}

// Option configures Main.
type Option func(*Main)

type widget struct {
	store    *conversation.Store
	pipeline Pipeline

	claimTimer *time.Timer
	claimed    bool
}

const (
	conversationIDParam = "conversation_id"
	errLoggerKey        = "err"

	// DefaultClaimTimeout is how long a rendered conversation waits for its page to open the SSE session.
	DefaultClaimTimeout = 30 * time.Second
)

// WithClaimTimeout sets how long a mounted conversation may go without an SSE session before it is
// unmounted.
func WithClaimTimeout(d time.Duration) Option {
	return func(m *Main) {
		m.claimTimeout = d
	}
}

// NewMain parses the widget templates and prepares the SSE server. Sessions subscribe to the default topic,
// used for broadcasts, and to the topic of the conversation named in the request; sessions for unknown
// conversations are refused with 404.
func NewMain(greeting string, newPipeline PipelineFactory, logger *slog.Logger, opts ...Option) (Main, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(
		chatwidget.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, fmt.Errorf("failed to parse templates: %w", err)
	}

	m := Main{
		templates:    tmpl,
		greeting:     greeting,
		newPipeline:  newPipeline,
		claimTimeout: DefaultClaimTimeout,
		mu:           &sync.Mutex{},
		widgets:      make(map[string]widget),
		logger:       logger.With(slog.String("module", "main")),
	}
	for _, opt := range opts {
		opt(&m)
	}

	m.sseSrv = &sse.Server{
		OnSession: func(w http.ResponseWriter, r *http.Request) ([]string, bool) {
			id := r.URL.Query().Get(conversationIDParam)
			if id == "" {
				http.Error(w, "Conversation ID is required", http.StatusBadRequest)
				return nil, false
			}
			if !m.claim(id) {
				http.Error(w, "Conversation not found", http.StatusNotFound)
				return nil, false
			}
			return []string{sse.DefaultTopic, conversationTopic(id)}, true
		},
	}

	return m, nil
}

func conversationTopic(id string) string {
	return fmt.Sprintf("conversation-%s", id)
}

// Mounted returns the number of live conversations.
func (m Main) Mounted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.widgets)
}

// mount creates a conversation seeded with the greeting and starts pushing its changes to subscribers.
func (m Main) mount() (string, *conversation.Store) {
	id := uuid.New().String()
	store := conversation.New(models.NewMessage(models.RoleBot, m.greeting))
	pipeline := m.newPipeline(store)

	lastDraft := &draftMemo{draft: store.Draft()}
	store.Subscribe(func(st conversation.State) {
		m.publishState(id, st, lastDraft)
	})

	m.mu.Lock()
	m.widgets[id] = widget{
		store:      store,
		pipeline:   pipeline,
		claimTimer: time.AfterFunc(m.claimTimeout, func() { m.reclaim(id) }),
	}
	m.mu.Unlock()

	m.logger.Debug("Conversation mounted", slog.String("conversationID", id))
	return id, store
}

// unmount detaches the conversation, so an in-flight reply stops at its next update, and forgets it.
func (m Main) unmount(id string) {
	m.mu.Lock()
	w, ok := m.widgets[id]
	delete(m.widgets, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	w.claimTimer.Stop()
	w.store.Detach()
	m.logger.Debug("Conversation unmounted", slog.String("conversationID", id))
}

// claim marks the conversation as served by an SSE session, which stops its claim timer. It reports whether
// the conversation is mounted.
func (m Main) claim(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.widgets[id]
	if !ok {
		return false
	}
	w.claimTimer.Stop()
	w.claimed = true
	m.widgets[id] = w
	return true
}

// reclaim unmounts a conversation that no SSE session has claimed.
func (m Main) reclaim(id string) {
	m.mu.Lock()
	w, ok := m.widgets[id]
	if !ok || w.claimed {
		m.mu.Unlock()
		return
	}
	delete(m.widgets, id)
	m.mu.Unlock()

	w.store.Detach()
	m.logger.Debug("Unclaimed conversation reclaimed", slog.String("conversationID", id))
}

func (m Main) widget(id string) (widget, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.widgets[id]
	return w, ok
}

// Shutdown broadcasts a close event to every connected widget, detaches all conversations and waits up to 5
// seconds for the SSE connections to terminate.
func (m Main) Shutdown(ctx context.Context) error {
	e := &sse.Message{Type: sse.Type("closeChat")}
	// SSE requires a data field for the event to be dispatched.
	e.AppendData("bye")

	_ = m.sseSrv.Publish(e)

	m.mu.Lock()
	for id, w := range m.widgets {
		w.claimTimer.Stop()
		w.store.Detach()
		delete(m.widgets, id)
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, time.Second*5)
	defer cancel()

	return m.sseSrv.Shutdown(ctx)
}
