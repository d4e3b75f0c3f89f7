package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jdphotomoments/chatwidget"
	"github.com/jdphotomoments/chatwidget/internal/assistant"
	"github.com/jdphotomoments/chatwidget/internal/conversation"
	"github.com/jdphotomoments/chatwidget/internal/handlers"
	"github.com/spf13/cobra"
)

const errLoggerKey = "err"

func (a *app) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat widget over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return a.serve()
		},
	}
}

func (a *app) serve() error {
	if assistant.IsPlaceholderCredential(a.cfg.LLM.APIKey) {
		a.logger.Info("No completion credential configured, answering from the FAQ")
	} else {
		a.logger.Info("Streaming replies", slog.String("model", a.cfg.LLM.Model))
	}

	m, err := handlers.NewMain(a.cfg.Greeting, func(store *conversation.Store) handlers.Pipeline {
		return a.newAssistant(store)
	}, a.logger)
	if err != nil {
		return err
	}

	staticFS, err := fs.Sub(chatwidget.StaticFS, "static")
	if err != nil {
		return fmt.Errorf("error opening static files: %w", err)
	}
	fileServer := http.FileServer(http.FS(staticFS))

	mux := http.NewServeMux()
	mux.Handle("/static/", http.StripPrefix("/static/", fileServer))
	mux.HandleFunc("/", m.HandleHome)
	mux.HandleFunc("/chats", m.HandleChats)
	mux.HandleFunc("/draft", m.HandleDraft)
	mux.HandleFunc("/sse/messages", m.HandleSSE)

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv.RegisterOnShutdown(func() {
		if err := m.Shutdown(context.Background()); err != nil {
			a.logger.Error("Failed to shutdown sse server", slog.String(errLoggerKey, err.Error()))
		}
	})

	// Channel to listen for errors coming from the listener
	serverErrors := make(chan error, 1)

	go func() {
		a.logger.Info("Server starting", slog.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		a.logger.Info("Start shutdown", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			a.logger.Error("Graceful shutdown failed", slog.String(errLoggerKey, err.Error()))
			if err := srv.Close(); err != nil {
				return fmt.Errorf("forcing server close: %w", err)
			}
		}
	}
	return nil
}
