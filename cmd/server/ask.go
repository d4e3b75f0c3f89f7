package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/jdphotomoments/chatwidget/internal/conversation"
	"github.com/jdphotomoments/chatwidget/internal/models"
	"github.com/spf13/cobra"
)

var (
	botLabelStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	userLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	hintStyle      = lipgloss.NewStyle().Faint(true)
)

func (a *app) askCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Chat with the assistant in the terminal",
		Long: `ask sends the question and prints the reply. Without a question it starts an interactive session
that reads one message per line until EOF or "exit".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.ask(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), strings.Join(args, " "))
		},
	}
}

func (a *app) ask(ctx context.Context, in io.Reader, out io.Writer, question string) error {
	store := conversation.New(models.NewMessage(models.RoleBot, a.cfg.Greeting))
	defer store.Detach()

	asst := a.newAssistant(store)
	p := newReplyPrinter(out, store.Messages()[0])
	store.Subscribe(p.observe)

	if question != "" {
		if !asst.Send(ctx, question) {
			return fmt.Errorf("question is empty")
		}
		p.endTurn()
		return nil
	}

	p.printMessage(store.Messages()[0])
	labels := make([]string, len(models.Suggestions))
	for i, s := range models.Suggestions {
		labels[i] = models.SuggestionDraft(s)
	}
	fmt.Fprintln(out, hintStyle.Render("Try: "+strings.Join(labels, " · ")))

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, userLabelStyle.Render("You:")+" ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if !asst.Send(ctx, line) {
			continue
		}
		p.endTurn()

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// replyPrinter writes bot replies as they grow, printing only the part of the content not yet shown.
type replyPrinter struct {
	out io.Writer

	mu      sync.Mutex
	lastID  string
	printed int
	open    bool
}

func newReplyPrinter(out io.Writer, greeting models.Message) *replyPrinter {
	return &replyPrinter{out: out, lastID: greeting.ID, printed: len(greeting.Content)}
}

func (p *replyPrinter) observe(st conversation.State) {
	if len(st.Messages) == 0 {
		return
	}
	last := st.Messages[len(st.Messages)-1]
	if last.Role != models.RoleBot || last.Content == "" {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if last.ID != p.lastID {
		if p.open {
			fmt.Fprintln(p.out)
		}
		fmt.Fprint(p.out, botLabel(last)+" ")
		p.lastID = last.ID
		p.printed = 0
		p.open = true
	}
	if len(last.Content) > p.printed {
		fmt.Fprint(p.out, last.Content[p.printed:])
		p.printed = len(last.Content)
	}
}

func (p *replyPrinter) printMessage(msg models.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, botLabel(msg)+" "+msg.Content)
}

// endTurn terminates the line of the reply that was just printed.
func (p *replyPrinter) endTurn() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.open {
		fmt.Fprintln(p.out)
		p.open = false
	}
}

func botLabel(msg models.Message) string {
	return botLabelStyle.Render("JD Assistant") + " " + hintStyle.Render(msg.Timestamp.Format("15:04"))
}
