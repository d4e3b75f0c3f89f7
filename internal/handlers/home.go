package handlers

import (
	"log/slog"
	"net/http"
)

// HandleHome mounts a new conversation and renders the page hosting its widget. Reloading the page starts
// over from the greeting.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	id, store := m.mount()

	data, err := newChatbox(id, store.State())
	if err != nil {
		m.logger.Error("Failed to prepare chatbox", slog.String(errLoggerKey, err.Error()))
		m.unmount(id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to render home", slog.String(errLoggerKey, err.Error()))
		m.unmount(id)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
