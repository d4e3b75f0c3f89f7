package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/charmbracelet/log"
	"github.com/jdphotomoments/chatwidget/internal/assistant"
	"github.com/jdphotomoments/chatwidget/internal/services"
	"gopkg.in/yaml.v3"
)

type config struct {
	Port         string        `yaml:"port" env:"CHATWIDGET_PORT"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Greeting     string        `yaml:"greeting"`
	Apology      string        `yaml:"apology"`
	OfflineDelay time.Duration `yaml:"offlineDelay"`

	LLM llmConfig `yaml:"llm"`

	FAQDefault string              `yaml:"faqDefault"`
	FAQ        []services.FAQEntry `yaml:"faq"`

	Log logConfig `yaml:"log"`
}

type llmConfig struct {
	Endpoint string `yaml:"endpoint" env:"CHATWIDGET_LLM_ENDPOINT"`
	Model    string `yaml:"model" env:"CHATWIDGET_LLM_MODEL"`
	APIKey   string `yaml:"apiKey" env:"GROQ_API_KEY"`
}

type logConfig struct {
	Level  string `yaml:"level" env:"CHATWIDGET_LOG_LEVEL"`
	Format string `yaml:"format" env:"CHATWIDGET_LOG_FORMAT"`
}

const (
	logFormatText = "text"
	logFormatJSON = "json"
)

func defaultConfig() config {
	return config{
		Port:         "8080",
		SystemPrompt: services.DefaultSystemPrompt,
		Greeting:     assistant.DefaultGreeting,
		Apology:      assistant.DefaultApology,
		OfflineDelay: assistant.DefaultOfflineDelay,
		LLM: llmConfig{
			Endpoint: services.DefaultCompletionEndpoint,
			Model:    services.DefaultCompletionModel,
		},
		FAQDefault: services.DefaultFAQResponse(),
		FAQ:        services.DefaultFAQEntries(),
		Log: logConfig{
			Level:  "info",
			Format: logFormatText,
		},
	}
}

func defaultConfigPath() (string, error) {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("error getting user config dir: %w", err)
	}
	return filepath.Join(cfgDir, "chatwidget", "config.yaml"), nil
}

// loadConfig reads the YAML file at path over the defaults, then applies environment overrides. A missing
// file is not an error.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()

	cfgFile, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return config{}, fmt.Errorf("error opening config file: %w", err)
	default:
		defer cfgFile.Close()
		if err := yaml.NewDecoder(cfgFile).Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return config{}, fmt.Errorf("error decoding config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("error parsing environment: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return config{}, err
	}
	return cfg, nil
}

func (c config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.OfflineDelay < 0 {
		return fmt.Errorf("offlineDelay must not be negative, got %s", c.OfflineDelay)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Log.Level, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logFormatText, logFormatJSON:
	default:
		return fmt.Errorf("unknown log format: %s", c.Log.Format)
	}
	return nil
}

func (c config) faq() services.FAQ {
	return services.NewFAQ(c.FAQ, c.FAQDefault)
}

func (c config) completion(logger *slog.Logger) services.Completion {
	return services.NewCompletion(services.CompletionConfig{
		APIKey:       c.LLM.APIKey,
		Endpoint:     c.LLM.Endpoint,
		Model:        c.LLM.Model,
		SystemPrompt: c.SystemPrompt,
	}, logger)
}

func (c config) assistantOptions() assistant.Options {
	return assistant.Options{
		Credential:   c.LLM.APIKey,
		OfflineDelay: c.OfflineDelay,
		Apology:      c.Apology,
	}
}
