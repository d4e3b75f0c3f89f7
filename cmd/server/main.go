package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/jdphotomoments/chatwidget/internal/assistant"
	"github.com/jdphotomoments/chatwidget/internal/conversation"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type app struct {
	cfgPath string
	cfg     config
	logger  *slog.Logger
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "chatwidget",
		Short: "JD Photomoments chat widget",
		Long: `chatwidget serves the studio's chat widget. Questions are answered from a keyword FAQ, or streamed
from a hosted chat-completion model when GROQ_API_KEY is set.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgPath, "config", "", "Config file (default <user config dir>/chatwidget/config.yaml)")

	rootCmd.AddCommand(a.serveCommand(), a.askCommand())
	return rootCmd
}

// setup loads .env, the config file and the environment, and builds the process logger.
func (a *app) setup(logOut io.Writer) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error loading .env: %w", err)
	}

	path := a.cfgPath
	if path == "" {
		p, err := defaultConfigPath()
		if err != nil {
			return err
		}
		path = p
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(logOut, cfg.Log)
	return nil
}

// newLogger builds the process logger: charmbracelet/log rendering for text, slog's JSON handler otherwise.
// The level has already been validated.
func newLogger(w io.Writer, cfg logConfig) *slog.Logger {
	level, _ := log.ParseLevel(cfg.Level)

	if strings.EqualFold(cfg.Format, logFormatJSON) {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.Level(level)}))
	}

	return slog.New(log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
	}))
}

// newAssistant wires the response pipeline of one conversation from the config.
func (a *app) newAssistant(store *conversation.Store) *assistant.Assistant {
	return assistant.New(store, a.cfg.faq(), a.cfg.completion(a.logger), a.cfg.assistantOptions(), a.logger)
}
