package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdphotomoments/chatwidget/internal/assistant"
	"github.com/jdphotomoments/chatwidget/internal/services"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GROQ_API_KEY",
		"CHATWIDGET_PORT",
		"CHATWIDGET_LLM_MODEL",
		"CHATWIDGET_LLM_ENDPOINT",
		"CHATWIDGET_LOG_LEVEL",
		"CHATWIDGET_LOG_FORMAT",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, assistant.DefaultGreeting, cfg.Greeting)
	assert.Equal(t, assistant.DefaultApology, cfg.Apology)
	assert.Equal(t, time.Second, cfg.OfflineDelay)
	assert.Equal(t, services.DefaultSystemPrompt, cfg.SystemPrompt)
	assert.Equal(t, services.DefaultCompletionEndpoint, cfg.LLM.Endpoint)
	assert.Equal(t, services.DefaultCompletionModel, cfg.LLM.Model)
	assert.Empty(t, cfg.LLM.APIKey)
	assert.Equal(t, services.DefaultFAQEntries(), cfg.FAQ)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, logFormatText, cfg.Log.Format)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	clearEnv(t)

	cfg, err := loadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
port: "9090"
greeting: "Welcome!"
offlineDelay: 250ms
llm:
  model: llama-3.1-8b-instant
  apiKey: gsk_file
faqDefault: "Ask me anything."
faq:
  - keyword: Drone
    response: "Yes, we fly drones."
log:
  level: debug
  format: json
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, "Welcome!", cfg.Greeting)
	assert.Equal(t, 250*time.Millisecond, cfg.OfflineDelay)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, services.DefaultCompletionEndpoint, cfg.LLM.Endpoint, "unset fields keep their defaults")
	assert.Equal(t, "gsk_file", cfg.LLM.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)

	faq := cfg.faq()
	assert.Equal(t, "Yes, we fly drones.", faq.Respond("Do you use a DRONE?"))
	assert.Equal(t, "Ask me anything.", faq.Respond("wedding?"), "the file replaces the whole table")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk_env")
	t.Setenv("CHATWIDGET_PORT", "7000")
	t.Setenv("CHATWIDGET_LLM_MODEL", "env-model")
	t.Setenv("CHATWIDGET_LOG_FORMAT", "json")

	path := writeConfig(t, `
port: "9090"
llm:
  model: file-model
  apiKey: gsk_file
`)

	cfg, err := loadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, "env-model", cfg.LLM.Model)
	assert.Equal(t, "gsk_env", cfg.LLM.APIKey)
	assert.Equal(t, logFormatJSON, cfg.Log.Format)
}

func TestLoadConfigInvalid(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
	}{
		{"Bad yaml", "port: [1, 2"},
		{"Unknown log format", "log:\n  format: xml\n"},
		{"Unknown log level", "log:\n  level: loud\n"},
		{"Negative delay", "offlineDelay: -1s\n"},
		{"Empty port", "port: \"\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, logConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", slog.String("module", "test"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "test", rec["module"])
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, logConfig{Level: "debug", Format: "text"})

	logger.Debug("Conversation mounted", slog.String("conversationID", "c1"))

	assert.Contains(t, buf.String(), "Conversation mounted")
	assert.Contains(t, buf.String(), "c1")
}

func offlineApp() *app {
	cfg := defaultConfig()
	cfg.OfflineDelay = 0
	cfg.LLM.APIKey = ""
	return &app{cfg: cfg, logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func TestAskQuestion(t *testing.T) {
	var out bytes.Buffer

	err := offlineApp().ask(context.Background(), strings.NewReader(""), &out, "Where is your location?")
	require.NoError(t, err)

	assert.Contains(t, out.String(), "JD Assistant")
	assert.Contains(t, out.String(), "based in Chennai")
	assert.NotContains(t, out.String(), "You:")
}

func TestAskInteractive(t *testing.T) {
	var out bytes.Buffer

	in := strings.NewReader("what are your pricing options\n\n   \nhow do I contact you\nexit\nwedding\n")
	err := offlineApp().ask(context.Background(), in, &out, "")
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, assistant.DefaultGreeting)
	assert.Contains(t, got, "Wedding Packages")
	assert.Contains(t, got, "Pricing depends on the service")
	assert.Contains(t, got, "hello@jdphotomoments.com")
	assert.NotContains(t, got, "full-day coverage", "input after exit is not read")
}

func TestAskEmptyQuestion(t *testing.T) {
	err := offlineApp().ask(context.Background(), strings.NewReader(""), io.Discard, "   ")
	assert.Error(t, err)
}
