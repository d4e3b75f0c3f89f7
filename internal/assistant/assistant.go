// Package assistant produces the bot side of a widget conversation. For every accepted user message it answers
// exactly once, either from the offline FAQ after a simulated delay or by streaming a hosted completion into a
// placeholder message, and it always leaves the conversation with the typing indicator off.
package assistant

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/jdphotomoments/chatwidget/internal/conversation"
	"github.com/jdphotomoments/chatwidget/internal/models"
)

// Streamer streams a reply to a conversation whose last message is the new user message. It yields content
// deltas and at most one error, after which iteration ends.
type Streamer interface {
	Chat(ctx context.Context, messages []models.Message) iter.Seq2[string, error]
}

// Responder answers a question without any network access.
type Responder interface {
	Respond(input string) string
}

// Mode is the way a send is answered.
type Mode int

// StreamState is the position of the pipeline in its reply state machine.
type StreamState int

// Options configures an Assistant.
type Options struct {
	// Credential gates Online Mode. Blank or placeholder values select Offline Mode.
	Credential string
	// OfflineDelay is how long an offline answer is held back. Zero answers immediately.
	OfflineDelay time.Duration
	// Apology is the bot message appended when an online reply fails.
	Apology string
}

// Assistant is the response pipeline of one conversation.
type Assistant struct {
	store     *conversation.Store
	responder Responder
	streamer  Streamer

	credential   string
	offlineDelay time.Duration
	apology      string

	mu    sync.Mutex
	state StreamState
	busy  bool

	wg sync.WaitGroup

	logger *slog.Logger
}

const (
	// ModeOffline answers from the FAQ table.
	ModeOffline Mode = iota
	// ModeOnline streams from the hosted completion endpoint.
	ModeOnline
)

// Pipeline states. Failed is reachable from every state on a transport error.
const (
	StateIdle StreamState = iota
	StateAwaitingFirstByte
	StateStreaming
	StateCompleted
	StateFailed
)

const (
	// DefaultOfflineDelay matches the latency of a live responder closely enough for the typing indicator to show.
	DefaultOfflineDelay = time.Second
	// DefaultGreeting is the bot message every conversation starts with.
	DefaultGreeting = "Hi there! 👋 I'm your JD Photomoments assistant. How can I help you capture your special " +
		"moments today?"
	// DefaultApology is shown when the hosted model cannot be reached.
	DefaultApology = "I'm having a bit of trouble connecting to my brain right now. Please try again in a moment, " +
		"or email us at hello@jdphotomoments.com!"

	errLoggerKey = "err"
)

// New creates an Assistant writing into store. streamer may be nil, in which case every send is answered
// offline regardless of the credential.
func New(store *conversation.Store, responder Responder, streamer Streamer, opts Options, logger *slog.Logger) *Assistant {
	apology := opts.Apology
	if apology == "" {
		apology = DefaultApology
	}

	return &Assistant{
		store:        store,
		responder:    responder,
		streamer:     streamer,
		credential:   opts.Credential,
		offlineDelay: opts.OfflineDelay,
		apology:      apology,
		logger:       logger.With(slog.String("module", "assistant")),
	}
}

// IsPlaceholderCredential reports whether key is missing or still holds a template value such as
// "your_api_key_here".
func IsPlaceholderCredential(key string) bool {
	key = strings.TrimSpace(key)
	return key == "" || strings.Contains(strings.ToLower(key), "your_")
}

// Mode returns the mode the next send will use. It is evaluated on every call.
func (a *Assistant) Mode() Mode {
	if a.streamer == nil || IsPlaceholderCredential(a.credential) {
		return ModeOffline
	}
	return ModeOnline
}

// State returns the pipeline's current state.
func (a *Assistant) State() StreamState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Send submits text and blocks until the reply is complete. It returns false, without touching the
// conversation, when text is blank or a reply is still in flight. A streamed reply stays in flight after the
// typing indicator goes off, until its stream ends. Cancelling ctx cuts the offline delay short; the canned
// answer is still appended.
func (a *Assistant) Send(ctx context.Context, text string) bool {
	history, msg, ok := a.begin(text)
	if !ok {
		return false
	}
	defer a.release()
	a.respond(ctx, history, msg)
	return true
}

// Submit is Send without waiting for the reply. The guard runs before Submit returns, so the result is exact.
func (a *Assistant) Submit(text string) bool {
	history, msg, ok := a.begin(text)
	if !ok {
		return false
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.release()
		a.respond(context.Background(), history, msg)
	}()
	return true
}

// Wait blocks until every reply started by Submit has finished.
func (a *Assistant) Wait() {
	a.wg.Wait()
}

func (a *Assistant) begin(text string) ([]models.Message, models.Message, bool) {
	content := strings.TrimSpace(text)
	if content == "" {
		return nil, models.Message{}, false
	}

	a.mu.Lock()
	if a.busy {
		a.mu.Unlock()
		a.logger.Debug("Send rejected, reply in flight")
		return nil, models.Message{}, false
	}
	a.busy = true
	a.mu.Unlock()

	history := a.store.Messages()
	msg := models.NewMessage(models.RoleUser, content)
	if !a.store.BeginTurn(msg) {
		a.logger.Debug("Send rejected", slog.Bool("typing", a.store.IsTyping()))
		a.release()
		return nil, models.Message{}, false
	}
	return history, msg, true
}

func (a *Assistant) release() {
	a.mu.Lock()
	a.busy = false
	a.mu.Unlock()
}

func (a *Assistant) respond(ctx context.Context, history []models.Message, msg models.Message) {
	switch a.Mode() {
	case ModeOnline:
		a.respondOnline(ctx, history, msg)
	default:
		a.respondOffline(ctx, msg)
	}
}

func (a *Assistant) respondOffline(ctx context.Context, msg models.Message) {
	a.setState(StateIdle)
	reply := a.responder.Respond(msg.Content)

	if a.offlineDelay > 0 {
		timer := time.NewTimer(a.offlineDelay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			a.logger.Debug("Offline delay cut short", slog.String(errLoggerKey, ctx.Err().Error()))
		}
	}

	if err := a.store.FinishTurn(models.NewMessage(models.RoleBot, reply)); err != nil {
		a.logStoreError("Failed to append offline reply", err)
		a.setState(StateFailed)
		return
	}
	a.setState(StateCompleted)
}

func (a *Assistant) respondOnline(ctx context.Context, history []models.Message, msg models.Message) {
	placeholder := models.NewMessage(models.RoleBot, "")
	if err := a.store.AppendMessage(placeholder); err != nil {
		a.logStoreError("Failed to add placeholder message", err)
		a.setState(StateFailed)
		return
	}
	a.setState(StateAwaitingFirstByte)

	messages := make([]models.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, msg)

	var content strings.Builder
	for delta, err := range a.streamer.Chat(ctx, messages) {
		if err != nil {
			a.fail(err)
			return
		}
		if delta == "" {
			continue
		}

		if a.State() == StateAwaitingFirstByte {
			if err := a.store.SetTyping(false); err != nil {
				a.logStoreError("Failed to clear typing", err)
				a.setState(StateFailed)
				return
			}
			a.setState(StateStreaming)
		}

		content.WriteString(delta)
		if err := a.store.UpdateMessageContent(placeholder.ID, content.String()); err != nil {
			a.logStoreError("Failed to update streamed message", err)
			a.setState(StateFailed)
			return
		}
	}

	if err := a.store.SetTyping(false); err != nil {
		a.logStoreError("Failed to clear typing", err)
	}
	a.logger.Debug("Reply completed", slog.Int("length", content.Len()))
	a.setState(StateCompleted)
}

func (a *Assistant) fail(err error) {
	a.logger.Error("Chat request failed", slog.String(errLoggerKey, err.Error()))
	a.setState(StateFailed)

	if err := a.store.FinishTurn(models.NewMessage(models.RoleBot, a.apology)); err != nil {
		a.logStoreError("Failed to append apology", err)
	}
}

// logStoreError keeps a detached conversation quiet: the surface is gone and nobody is left to tell.
func (a *Assistant) logStoreError(msg string, err error) {
	if errors.Is(err, conversation.ErrDetached) {
		a.logger.Debug("Conversation detached, stopping reply")
		return
	}
	a.logger.Error(msg, slog.String(errLoggerKey, err.Error()))
}

func (a *Assistant) setState(s StreamState) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (m Mode) String() string {
	if m == ModeOnline {
		return "online"
	}
	return "offline"
}

func (s StreamState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstByte:
		return "awaiting_first_byte"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}
