package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jdphotomoments/chatwidget/internal/conversation"
	"github.com/jdphotomoments/chatwidget/internal/models"
	"github.com/tmaxmax/go-sse"
)

type message struct {
	ID        string
	Role      string
	Content   template.HTML
	Timestamp time.Time
}

type chatbox struct {
	ConversationID string
	Messages       []message
	IsTyping       bool
	Suggestions    []string
	Draft          string
}

// SSE event types for real-time updates.
var (
	messagesSSEType = sse.Type("messages")
	draftSSEType    = sse.Type("draft")
)

var templateFuncs = template.FuncMap{
	"clock": func(t time.Time) string { return t.Format("15:04") },
}

// HandleChats accepts a user message for a mounted conversation. The reply is produced in the background and
// reaches the page through the conversation's SSE stream.
//
// The handler expects "conversation_id" and "message" form fields. It answers 202 when the message was
// accepted and 409 when the conversation refused it, because a reply is still in flight or the message is
// blank.
func (m Main) HandleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	wg, ok := m.requestWidget(w, r)
	if !ok {
		return
	}

	if !wg.pipeline.Submit(r.FormValue("message")) {
		m.logger.Debug("Message rejected", slog.String("conversationID", r.FormValue(conversationIDParam)))
		http.Error(w, "Message rejected", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusAccepted)
}

// HandleDraft sets the text being composed. The draft comes from the "draft" form field or, when
// "suggestion" holds the index of a suggestion chip, from that chip's label. The resulting draft is written
// back as plain text.
func (m Main) HandleDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	wg, ok := m.requestWidget(w, r)
	if !ok {
		return
	}

	draft := r.FormValue("draft")
	if s := r.FormValue("suggestion"); s != "" {
		idx, err := strconv.Atoi(s)
		if err != nil || idx < 0 || idx >= len(models.Suggestions) {
			http.Error(w, "Unknown suggestion", http.StatusBadRequest)
			return
		}
		draft = models.SuggestionDraft(models.Suggestions[idx])
	}

	if err := wg.store.SetIdleDraft(draft); err != nil {
		switch {
		case errors.Is(err, conversation.ErrDetached):
			http.Error(w, "Conversation not found", http.StatusNotFound)
			return
		case errors.Is(err, conversation.ErrTyping):
			http.Error(w, "Reply in progress", http.StatusConflict)
			return
		}
		m.logger.Error("Failed to set draft", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(draft))
}

// HandleSSE streams the changes of one conversation. When the session ends, because the page went away or
// the server is shutting down, the conversation is unmounted.
func (m Main) HandleSSE(w http.ResponseWriter, r *http.Request) {
	m.sseSrv.ServeHTTP(w, r)

	if id := r.URL.Query().Get(conversationIDParam); id != "" {
		m.unmount(id)
	}
}

func (m Main) requestWidget(w http.ResponseWriter, r *http.Request) (widget, bool) {
	id := r.FormValue(conversationIDParam)
	if id == "" {
		m.logger.Error("Conversation ID is required")
		http.Error(w, "Conversation ID is required", http.StatusBadRequest)
		return widget{}, false
	}

	wg, ok := m.widget(id)
	if !ok {
		m.logger.Warn("Conversation not found", slog.String("conversationID", id))
		http.Error(w, "Conversation not found", http.StatusNotFound)
		return widget{}, false
	}
	return wg, true
}

// publishState pushes the rendered messages on every change. The draft is pushed only when it differs from
// the last one sent, since the page's input may already be ahead of it.
func (m Main) publishState(id string, st conversation.State, lastDraft *draftMemo) {
	html, err := m.renderMessages(id, st)
	if err != nil {
		m.logger.Error("Failed to render messages",
			slog.String("conversationID", id),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	msg := sse.Message{Type: messagesSSEType}
	msg.AppendData(html)
	if err := m.sseSrv.Publish(&msg, conversationTopic(id)); err != nil {
		m.logger.Error("Failed to publish messages",
			slog.String("conversationID", id),
			slog.String(errLoggerKey, err.Error()))
		return
	}

	if !lastDraft.swap(st.DraftInput) {
		return
	}

	// An empty data field would not be dispatched by the browser, so the draft travels as a JSON string.
	draftJSON, err := json.Marshal(st.DraftInput)
	if err != nil {
		m.logger.Error("Failed to marshal draft", slog.String(errLoggerKey, err.Error()))
		return
	}
	draft := sse.Message{Type: draftSSEType}
	draft.AppendData(string(draftJSON))
	if err := m.sseSrv.Publish(&draft, conversationTopic(id)); err != nil {
		m.logger.Error("Failed to publish draft",
			slog.String("conversationID", id),
			slog.String(errLoggerKey, err.Error()))
	}
}

// draftMemo remembers the last draft pushed for a conversation.
type draftMemo struct {
	mu    sync.Mutex
	draft string
}

// swap stores draft and reports whether it differs from the previous one.
func (d *draftMemo) swap(draft string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.draft == draft {
		return false
	}
	d.draft = draft
	return true
}

func (m Main) renderMessages(id string, st conversation.State) (string, error) {
	data, err := newChatbox(id, st)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	if err := m.templates.ExecuteTemplate(&sb, "messages", data); err != nil {
		return "", fmt.Errorf("failed to execute messages template: %w", err)
	}
	return sb.String(), nil
}

// newChatbox prepares a conversation snapshot for the templates. Bot messages without content are left out:
// they are streaming placeholders that have not received their first token yet.
func newChatbox(id string, st conversation.State) (chatbox, error) {
	msgs := make([]message, 0, len(st.Messages))
	for _, msg := range st.Messages {
		var content template.HTML
		switch msg.Role {
		case models.RoleBot:
			if msg.Content == "" {
				continue
			}
			rc, err := models.RenderContent(msg.Content)
			if err != nil {
				return chatbox{}, fmt.Errorf("failed to render message %s: %w", msg.ID, err)
			}
			content = rc
		default:
			content = template.HTML(template.HTMLEscapeString(msg.Content))
		}

		msgs = append(msgs, message{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Content:   content,
			Timestamp: msg.Timestamp,
		})
	}

	data := chatbox{
		ConversationID: id,
		Messages:       msgs,
		IsTyping:       st.IsTyping,
		Draft:          st.DraftInput,
	}
	if models.ShowSuggestions(st.Messages) {
		data.Suggestions = models.Suggestions
	}
	return data, nil
}
